package training

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// minCurveSamples is the smallest sample a learning curve point is fitted on
const minCurveSamples = 10

// CurveOptions configures a learning curve sweep
type CurveOptions struct {
	Sizes    []int
	Repeats  int
	SeedBase uint64
	Training Options
}

// DefaultCurveOptions returns the sweep used for dataset sizing reports
func DefaultCurveOptions() CurveOptions {
	training := DefaultOptions()
	training.Vectorizer.MaxFeatures = 5000
	return CurveOptions{
		Sizes:    []int{100, 200, 300, 400, 500, 600},
		Repeats:  5,
		SeedBase: 42,
		Training: training,
	}
}

// Stat is a mean and population standard deviation over repeats
type Stat struct {
	Mean float64
	Std  float64
}

// CurvePoint aggregates the repeats evaluated at one dataset size
type CurvePoint struct {
	Size      int
	Repeats   int
	Accuracy  Stat
	Precision Stat
	Recall    Stat
	F1        Stat
	RMSE      Stat
}

// CurveRun is a single repeat at one size
type CurveRun struct {
	Size    int
	Repeat  int
	Classes int
	Metrics Metrics
}

// LearningCurve trains and evaluates on class-stratified subsamples of ds at
// each requested size. Sizes larger than the dataset are skipped; a repeat
// that fails is logged and left out of the aggregate.
func LearningCurve(ctx context.Context, ds *Dataset, opts CurveOptions, logger *logrus.Logger) ([]CurvePoint, []CurveRun, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Repeats <= 0 {
		opts.Repeats = 1
	}

	var sizes []int
	for _, s := range opts.Sizes {
		if s > 0 && s <= ds.Len() {
			sizes = append(sizes, s)
		}
	}
	if len(sizes) == 0 {
		return nil, nil, fmt.Errorf("no requested dataset size fits the %d available samples", ds.Len())
	}
	sort.Ints(sizes)

	var (
		points []CurvePoint
		runs   []CurveRun
	)
	for _, size := range sizes {
		var acc, prec, rec, f1, rmse []float64
		for r := 0; r < opts.Repeats; r++ {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			seed := opts.SeedBase + uint64(r)
			sample := ds.Subset(stratifiedSample(ds.Labels(), size, seed))

			m, classes, err := evaluateSample(ctx, sample, opts.Training, seed)
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"size":   size,
					"repeat": r,
				}).Warn("Learning curve evaluation failed")
				continue
			}
			runs = append(runs, CurveRun{Size: size, Repeat: r, Classes: classes, Metrics: m})
			acc = append(acc, m.Accuracy)
			prec = append(prec, m.Precision)
			rec = append(rec, m.Recall)
			f1 = append(f1, m.F1)
			rmse = append(rmse, m.RMSE)
		}

		p := CurvePoint{Size: size, Repeats: len(acc)}
		p.Accuracy.Mean, p.Accuracy.Std = meanStd(acc)
		p.Precision.Mean, p.Precision.Std = meanStd(prec)
		p.Recall.Mean, p.Recall.Std = meanStd(rec)
		p.F1.Mean, p.F1.Std = meanStd(f1)
		p.RMSE.Mean, p.RMSE.Std = meanStd(rmse)
		points = append(points, p)
	}
	return points, runs, nil
}

func evaluateSample(ctx context.Context, sample *Dataset, opts Options, seed uint64) (Metrics, int, error) {
	if sample.Len() < minCurveSamples {
		return Metrics{}, 0, fmt.Errorf("not enough samples: %d", sample.Len())
	}
	opts.SVM.Seed = seed
	_, report, err := Fit(ctx, sample, opts)
	if err != nil {
		return Metrics{}, 0, err
	}
	return report.Metrics, len(report.Classes), nil
}

// stratifiedSample picks size indices keeping each label's share of the
// dataset. Rounding leftovers are filled from a shuffled pool of the rest.
func stratifiedSample(labels []string, size int, seed uint64) []int {
	n := len(labels)
	if size >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	names := make([]string, 0, len(byLabel))
	for l := range byLabel {
		names = append(names, l)
	}
	sort.Strings(names)

	rng := newRand(seed)
	var picked, rest []int
	for _, l := range names {
		members := byLabel[l]
		take := len(members) * size / n
		perm := rng.Perm(len(members))
		for j, p := range perm {
			if j < take {
				picked = append(picked, members[p])
			} else {
				rest = append(rest, members[p])
			}
		}
	}
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	picked = append(picked, rest[:size-len(picked)]...)
	sort.Ints(picked)
	return picked
}

// WriteCurveCSV writes one row per curve point with mean and std columns
func WriteCurveCSV(w io.Writer, points []CurvePoint) error {
	cw := csv.NewWriter(w)
	header := []string{"size", "n_repeats"}
	for _, name := range []string{"accuracy", "precision", "recall", "f1", "rmse"} {
		header = append(header, name+"_mean", name+"_std")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, p := range points {
		row := []string{strconv.Itoa(p.Size), strconv.Itoa(p.Repeats)}
		for _, s := range []Stat{p.Accuracy, p.Precision, p.Recall, p.F1, p.RMSE} {
			row = append(row, f(s.Mean), f(s.Std))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
