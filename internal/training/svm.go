package training

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/specialist-recommender/internal/model"
)

// SVMOptions configures the Pegasos solver
type SVMOptions struct {
	// C is the inverse regularization strength, as in a soft-margin SVM
	C      float64
	Epochs int
	Seed   uint64
}

// DefaultSVMOptions returns the production solver settings
func DefaultSVMOptions() SVMOptions {
	return SVMOptions{C: 1.0, Epochs: 20, Seed: 42}
}

// TrainOneVsRest fits one linear hinge-loss separator per class. With two
// classes a single separator is trained whose positive side is class 1.
// The intercept is learned as the weight of a constant feature, so it is
// regularized together with the other weights.
func TrainOneVsRest(ctx context.Context, x []model.SparseVector, y []int, numClasses int, dim int, opts SVMOptions) (*model.LinearClassifier, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("need matching non-empty samples and labels, got %d and %d", len(x), len(y))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least two classes, got %d", numClasses)
	}
	if opts.C <= 0 {
		return nil, fmt.Errorf("C must be positive, got %v", opts.C)
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("sample %d has label %d outside [0, %d)", i, label, numClasses)
		}
	}

	rows := numClasses
	positive := func(k int) int { return k }
	if numClasses == 2 {
		rows = 1
		positive = func(int) int { return 1 }
	}

	clf := &model.LinearClassifier{
		Weights:    make([][]float64, rows),
		Intercepts: make([]float64, rows),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for k := 0; k < rows; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			target := positive(k)
			signs := make([]float64, len(y))
			for i, label := range y {
				if label == target {
					signs[i] = 1
				} else {
					signs[i] = -1
				}
			}
			w, b, err := pegasos(ctx, x, signs, dim, opts, opts.Seed+uint64(k))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			clf.Weights[k] = w
			clf.Intercepts[k] = b
		}(k)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return clf, nil
}

// pegasos runs stochastic sub-gradient descent on the primal SVM objective
// with step size 1/(lambda*t). The weight vector is stored as scale*v so the
// per-step shrink is O(1).
func pegasos(ctx context.Context, x []model.SparseVector, signs []float64, dim int, opts SVMOptions, seed uint64) ([]float64, float64, error) {
	n := len(x)
	lambda := 1 / (opts.C * float64(n))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	v := make([]float64, dim)
	var bias float64
	scale := 1.0

	t := 0
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		for _, i := range rng.Perm(n) {
			t++
			eta := 1 / (lambda * float64(t))

			xi := x[i]
			margin := bias
			for j, idx := range xi.Indices {
				margin += v[idx] * xi.Values[j]
			}
			margin = signs[i] * margin * scale

			shrink := 1 - eta*lambda
			if shrink <= 0 {
				clear(v)
				bias = 0
				scale = 1
			} else {
				scale *= shrink
			}

			if margin < 1 {
				step := eta * signs[i] / scale
				for j, idx := range xi.Indices {
					v[idx] += step * xi.Values[j]
				}
				bias += step
			}
		}
	}

	w := make([]float64, dim)
	for j := range v {
		w[j] = v[j] * scale
	}
	return w, bias * scale, nil
}
