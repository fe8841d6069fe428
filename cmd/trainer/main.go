// Command trainer fits and publishes the specialist model, or sweeps a
// learning curve over dataset sizes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/config"
	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/model"
	"github.com/specialist-recommender/internal/setup"
	"github.com/specialist-recommender/internal/training"
)

const usage = `Usage:
  trainer train [options]   fit a model on the dataset and publish it
  trainer curve [options]   report metrics across dataset sizes

Run "trainer <command> -h" for the options of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "trainer:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:], out)
	case "curve":
		return runCurve(ctx, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// common holds the flags shared by both commands
type common struct {
	configFile string
	dataset    string
	logLevel   string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", os.Getenv(setup.ConfigFileEnv), "path to the config file")
	fs.StringVar(&c.dataset, "dataset", "", "training CSV (default: retrain.dataset_path)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level override")
}

// load reads the service configuration and builds a stderr logger
func (c *common) load() (*domain.Config, *logrus.Logger, io.Closer, error) {
	var opts []config.Option
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	manager, err := config.NewManager(opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := manager.GetConfig()

	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == logging.OutputStdout {
		logCfg.Output = logging.OutputStderr
	}
	if c.logLevel != "" {
		logCfg.Level = c.logLevel
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if c.dataset == "" {
		c.dataset = cfg.Retrain.DatasetPath
	}
	if c.dataset == "" {
		closer.Close()
		return nil, nil, nil, fmt.Errorf("no dataset given; pass -dataset or set retrain.dataset_path")
	}
	return cfg, logger, closer, nil
}

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(out)
	var c common
	c.register(fs)
	modelDir := fs.String("model-dir", "", "artifact directory (default: model.dir)")
	maxFeatures := fs.Int("max-features", 0, "vocabulary size limit")
	epochs := fs.Int("epochs", 0, "training epochs per class")
	keep := fs.Int("keep", -1, "published releases to keep")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, closer, err := c.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}
	if *maxFeatures > 0 {
		cfg.Retrain.MaxFeatures = *maxFeatures
	}
	if *epochs > 0 {
		cfg.Retrain.Epochs = *epochs
	}
	opts := training.OptionsFromConfig(cfg.Retrain)
	if *keep >= 0 {
		opts.KeepReleases = *keep
	}

	store := model.NewStore(cfg.Model.Dir, cfg.Model.ArtifactNames())
	report, err := training.NewTrainer(store, opts, logger).Run(ctx, c.dataset)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReport(out, report)
	return nil
}

func runCurve(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("curve", flag.ContinueOnError)
	fs.SetOutput(out)
	var c common
	c.register(fs)
	defaults := training.DefaultCurveOptions()
	sizes := fs.String("sizes", joinInts(defaults.Sizes), "comma separated dataset sizes")
	repeats := fs.Int("repeats", defaults.Repeats, "repeats per size")
	seed := fs.Uint64("seed", defaults.SeedBase, "base random seed")
	csvOut := fs.String("out", "", "also write the aggregated curve as CSV to this file")
	verbose := fs.Bool("runs", false, "print every individual run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := parseInts(*sizes)
	if err != nil {
		return fmt.Errorf("invalid -sizes: %w", err)
	}

	_, logger, closer, err := c.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	ds, err := training.LoadDataset(c.dataset)
	if err != nil {
		return err
	}

	opts := defaults
	opts.Sizes = parsed
	opts.Repeats = *repeats
	opts.SeedBase = *seed

	points, runs, err := training.LearningCurve(ctx, ds, opts, logger)
	if err != nil {
		return err
	}

	if *verbose {
		renderRuns(out, runs)
		fmt.Fprintln(out)
	}
	renderCurve(out, points)

	if *csvOut != "" {
		f, err := os.Create(*csvOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *csvOut, err)
		}
		if err := training.WriteCurveCSV(f, points); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.WithField("path", *csvOut).Info("Learning curve written")
	}
	return nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return out, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
