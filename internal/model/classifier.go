package model

import (
	"fmt"
)

// LinearClassifier is a one-vs-rest linear model. A single weight row
// encodes a binary problem where a positive score selects class 1.
type LinearClassifier struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// Dim returns the expected feature dimension
func (c *LinearClassifier) Dim() int {
	if len(c.Weights) == 0 {
		return 0
	}
	return len(c.Weights[0])
}

// NumClasses returns how many class indices Predict can produce
func (c *LinearClassifier) NumClasses() int {
	if len(c.Weights) == 1 {
		return 2
	}
	return len(c.Weights)
}

// Validate checks the weight matrix is rectangular and matches the intercepts
func (c *LinearClassifier) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("classifier has no weight rows")
	}
	if len(c.Intercepts) != len(c.Weights) {
		return fmt.Errorf("classifier has %d weight rows but %d intercepts", len(c.Weights), len(c.Intercepts))
	}
	dim := len(c.Weights[0])
	for i, row := range c.Weights {
		if len(row) != dim {
			return fmt.Errorf("weight row %d has dimension %d, expected %d", i, len(row), dim)
		}
	}
	return nil
}

// Decision returns the raw score of every weight row
func (c *LinearClassifier) Decision(x SparseVector) ([]float64, error) {
	dim := c.Dim()
	scores := make([]float64, len(c.Weights))
	for k, row := range c.Weights {
		s := c.Intercepts[k]
		for i, idx := range x.Indices {
			if idx < 0 || idx >= dim {
				return nil, fmt.Errorf("feature index %d outside classifier dimension %d", idx, dim)
			}
			s += row[idx] * x.Values[i]
		}
		scores[k] = s
	}
	return scores, nil
}

// Predict returns the index of the highest scoring class. Ties go to the
// lowest index.
func (c *LinearClassifier) Predict(x SparseVector) (int, error) {
	scores, err := c.Decision(x)
	if err != nil {
		return 0, err
	}
	if len(scores) == 1 {
		if scores[0] > 0 {
			return 1, nil
		}
		return 0, nil
	}

	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best, nil
}
