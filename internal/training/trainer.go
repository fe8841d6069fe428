package training

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/model"
)

// Options controls a full training run
type Options struct {
	Vectorizer VectorizerOptions
	SVM        SVMOptions
	TestSize   float64
	// KeepReleases bounds how many published releases stay on disk; 0 keeps all
	KeepReleases int
}

// DefaultOptions returns the production training settings
func DefaultOptions() Options {
	return Options{
		Vectorizer:   DefaultVectorizerOptions(),
		SVM:          DefaultSVMOptions(),
		TestSize:     0.2,
		KeepReleases: 5,
	}
}

// OptionsFromConfig overlays retrain configuration on the defaults
func OptionsFromConfig(cfg domain.RetrainConfig) Options {
	opts := DefaultOptions()
	if cfg.MaxFeatures > 0 {
		opts.Vectorizer.MaxFeatures = cfg.MaxFeatures
	}
	if cfg.Epochs > 0 {
		opts.SVM.Epochs = cfg.Epochs
	}
	if cfg.C > 0 {
		opts.SVM.C = cfg.C
	}
	if cfg.TestSize > 0 && cfg.TestSize < 1 {
		opts.TestSize = cfg.TestSize
	}
	opts.SVM.Seed = cfg.Seed
	return opts
}

// Report describes a finished training run
type Report struct {
	Version      string        `json:"version,omitempty"`
	Samples      int           `json:"samples"`
	Skipped      int           `json:"skipped"`
	TrainSamples int           `json:"train_samples"`
	TestSamples  int           `json:"test_samples"`
	Stratified   bool          `json:"stratified"`
	Classes      []string      `json:"classes"`
	Features     int           `json:"features"`
	Metrics      Metrics       `json:"metrics"`
	Duration     time.Duration `json:"duration"`
}

// Trainer fits models and publishes them to an artifact store
type Trainer struct {
	store  *model.Store
	opts   Options
	logger *logrus.Logger
}

// NewTrainer creates a trainer publishing to store
func NewTrainer(store *model.Store, opts Options, logger *logrus.Logger) *Trainer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Trainer{store: store, opts: opts, logger: logger}
}

// Fit trains on a stratified split of ds and evaluates on the holdout part
func Fit(ctx context.Context, ds *Dataset, opts Options) (*model.Bundle, *Report, error) {
	if ds.Len() < 2 {
		return nil, nil, fmt.Errorf("need at least 2 usable samples, got %d", ds.Len())
	}
	labels := model.FitLabels(ds.Labels())
	if labels.Len() < 2 {
		return nil, nil, fmt.Errorf("need at least 2 specialist classes, got %d", labels.Len())
	}

	y := make([]int, ds.Len())
	for i, s := range ds.Samples {
		y[i], _ = labels.Encode(s.Specialist)
	}

	split, err := TrainTestSplit(y, opts.TestSize, opts.SVM.Seed)
	if err != nil {
		return nil, nil, err
	}
	train, test := ds.Subset(split.Train), ds.Subset(split.Test)
	yTrain, yTest := pick(y, split.Train), pick(y, split.Test)

	vec, xTrain, err := FitVectorizer(train.Texts(), opts.Vectorizer)
	if err != nil {
		return nil, nil, err
	}
	clf, err := TrainOneVsRest(ctx, xTrain, yTrain, labels.Len(), vec.Dim(), opts.SVM)
	if err != nil {
		return nil, nil, fmt.Errorf("training classifier: %w", err)
	}

	xTest, err := TransformAll(vec, test.Texts())
	if err != nil {
		return nil, nil, err
	}
	pred := make([]int, len(xTest))
	for i, x := range xTest {
		if pred[i], err = clf.Predict(x); err != nil {
			return nil, nil, err
		}
	}
	metrics, err := Evaluate(yTest, pred)
	if err != nil {
		return nil, nil, err
	}

	bundle, err := model.NewBundle(vec, clf, labels, "")
	if err != nil {
		return nil, nil, err
	}
	return bundle, &Report{
		Samples:      ds.Len(),
		Skipped:      ds.Skipped,
		TrainSamples: len(split.Train),
		TestSamples:  len(split.Test),
		Stratified:   split.Stratified,
		Classes:      labels.Classes,
		Features:     vec.Dim(),
		Metrics:      metrics,
	}, nil
}

// Run loads the dataset at path, trains, publishes a release and prunes old ones
func (t *Trainer) Run(ctx context.Context, datasetPath string) (*Report, error) {
	start := time.Now()
	ds, err := LoadDataset(datasetPath)
	if err != nil {
		return nil, err
	}
	t.logger.WithFields(logrus.Fields{
		"dataset": datasetPath,
		"samples": ds.Len(),
		"skipped": ds.Skipped,
	}).Info("Training dataset loaded")

	bundle, report, err := Fit(ctx, ds, t.opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	version, err := t.store.Publish(bundle, model.Manifest{Metrics: report.Metrics.Map()})
	if err != nil {
		return nil, fmt.Errorf("publishing model: %w", err)
	}
	report.Version = version
	report.Duration = time.Since(start)

	if t.opts.KeepReleases > 0 {
		removed, err := t.store.Prune(t.opts.KeepReleases)
		if err != nil {
			t.logger.WithError(err).Warn("Failed to prune old model releases")
		} else if len(removed) > 0 {
			t.logger.WithField("removed", removed).Info("Pruned old model releases")
		}
	}

	t.logger.WithFields(logrus.Fields{
		"version":  version,
		"classes":  len(report.Classes),
		"features": report.Features,
		"accuracy": report.Metrics.Accuracy,
		"f1":       report.Metrics.F1,
		"duration": report.Duration.String(),
	}).Info("Model trained and published")
	return report, nil
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
