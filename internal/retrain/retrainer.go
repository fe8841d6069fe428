// Package retrain produces fresh model artifacts on demand and swaps them
// into the running provider once they are published.
package retrain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/model"
	"github.com/specialist-recommender/internal/training"
)

// Retrain modes
const (
	ModeInProcess = "inprocess"
	ModeCommand   = "command"
)

// maxOutput bounds how much command output is kept for the response
const maxOutput = 4096

// ErrRetrainInProgress is returned when another retrain has not finished yet
var ErrRetrainInProgress = errors.New("a retrain is already in progress")

// Runner trains and publishes a model from a dataset file
type Runner interface {
	Run(ctx context.Context, datasetPath string) (*training.Report, error)
}

// Reloader swaps newly published artifacts into service
type Reloader interface {
	Reload(ctx context.Context) (*model.Bundle, error)
}

// Result describes a finished retrain
type Result struct {
	Mode     string           `json:"mode"`
	Version  string           `json:"version"`
	Report   *training.Report `json:"report,omitempty"`
	Output   string           `json:"output,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// Retrainer serializes retrain requests. Only one runs at a time; the
// recommender keeps serving the previous model until Reload succeeds.
type Retrainer struct {
	config   domain.RetrainConfig
	runner   Runner
	reloader Reloader
	logger   *logrus.Logger
	mu       sync.Mutex
}

// NewRetrainer creates a retrainer. runner may be nil in command mode.
func NewRetrainer(config domain.RetrainConfig, runner Runner, reloader Reloader, logger *logrus.Logger) (*Retrainer, error) {
	if reloader == nil {
		return nil, fmt.Errorf("retrainer requires a reloader")
	}
	switch config.Mode {
	case ModeInProcess, "":
		if runner == nil {
			return nil, fmt.Errorf("in-process retraining requires a trainer")
		}
		config.Mode = ModeInProcess
	case ModeCommand:
		if config.Command == "" {
			return nil, fmt.Errorf("command retraining requires a command")
		}
	default:
		return nil, fmt.Errorf("unknown retrain mode %q", config.Mode)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Retrainer{config: config, runner: runner, reloader: reloader, logger: logger}, nil
}

// Retrain runs training and reloads the provider. It returns
// ErrRetrainInProgress without waiting if another retrain holds the lock.
func (r *Retrainer) Retrain(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer r.mu.Unlock()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := &Result{Mode: r.config.Mode}
	log := r.logger.WithField("mode", r.config.Mode)
	log.Info("Retrain started")

	var err error
	switch r.config.Mode {
	case ModeCommand:
		result.Output, err = r.runCommand(ctx)
	default:
		result.Report, err = r.runner.Run(ctx, r.config.DatasetPath)
	}
	if err != nil {
		log.WithError(err).Error("Retrain failed")
		return nil, err
	}

	bundle, err := r.reloader.Reload(ctx)
	if err != nil {
		log.WithError(err).Error("Retrained artifacts could not be loaded")
		return nil, fmt.Errorf("reloading model: %w", err)
	}
	result.Version = bundle.Version
	result.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"version":  result.Version,
		"duration": result.Duration.String(),
	}).Info("Retrain completed")
	return result, nil
}

func (r *Retrainer) runCommand(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, r.config.Command, r.config.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := tail(out.String(), maxOutput)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("training command %s: %w", r.config.Command, ctxErr)
		}
		return output, fmt.Errorf("training command %s failed: %w: %s", r.config.Command, err, output)
	}
	return output, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
