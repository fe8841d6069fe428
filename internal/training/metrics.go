package training

import (
	"fmt"
	"math"
)

// Metrics summarizes classifier quality on a holdout set. Precision, recall
// and F1 are macro averages over every class seen in either the truth or the
// predictions; a class with no predictions or no support scores zero.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	// RMSE is the root mean squared distance between true and predicted class indices
	RMSE float64 `json:"rmse"`
}

// Map flattens the metrics for the release manifest
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
		"rmse":      m.RMSE,
	}
}

// Evaluate compares true and predicted class indices
func Evaluate(yTrue, yPred []int) (Metrics, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("need matching non-empty label slices, got %d and %d", len(yTrue), len(yPred))
	}

	type counts struct{ tp, fp, fn int }
	perClass := make(map[int]*counts)
	get := func(c int) *counts {
		if perClass[c] == nil {
			perClass[c] = &counts{}
		}
		return perClass[c]
	}

	var correct int
	var sqErr float64
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		d := float64(t - p)
		sqErr += d * d
		if t == p {
			correct++
			get(t).tp++
			continue
		}
		get(p).fp++
		get(t).fn++
	}

	var precSum, recSum, f1Sum float64
	for _, c := range perClass {
		var prec, rec, f1 float64
		if c.tp+c.fp > 0 {
			prec = float64(c.tp) / float64(c.tp+c.fp)
		}
		if c.tp+c.fn > 0 {
			rec = float64(c.tp) / float64(c.tp+c.fn)
		}
		if prec+rec > 0 {
			f1 = 2 * prec * rec / (prec + rec)
		}
		precSum += prec
		recSum += rec
		f1Sum += f1
	}
	k := float64(len(perClass))
	n := float64(len(yTrue))

	return Metrics{
		Accuracy:  float64(correct) / n,
		Precision: precSum / k,
		Recall:    recSum / k,
		F1:        f1Sum / k,
		RMSE:      math.Sqrt(sqErr / n),
	}, nil
}

// meanStd returns the mean and population standard deviation of xs
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
