// Package modeltest provides a small deterministic model for tests.
package modeltest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/model"
)

// Fixture class labels, in encoder order
const (
	Cardiologist     = "Cardiologist"
	GeneralPhysician = "General Physician"
	Orthopedist      = "Orthopedist"
)

// Bundle returns a three-class model over a five-term vocabulary.
// "leg pain" scores Orthopedist, "chest pain" Cardiologist, and text with no
// known terms falls to General Physician through its intercept.
func Bundle(t testing.TB, version string) *model.Bundle {
	t.Helper()

	vec := &model.Vectorizer{
		Vocabulary: map[string]int{"leg": 0, "pain": 1, "cough": 2, "chest": 3, "fever": 4},
		IDF:        []float64{1, 1, 1, 1, 1},
		NgramMin:   1,
		NgramMax:   2,
		Norm:       model.NormL2,
	}
	clf := &model.LinearClassifier{
		Weights: [][]float64{
			{0, 0.5, 0, 2, 0},
			{0, 0, 1, 0, 2},
			{2, 0.5, 0, 0, 0},
		},
		Intercepts: []float64{0, 0.1, 0},
	}
	labels := &model.LabelEncoder{Classes: []string{Cardiologist, GeneralPhysician, Orthopedist}}

	b, err := model.NewBundle(vec, clf, labels, version)
	if err != nil {
		t.Fatalf("fixture bundle is incompatible: %v", err)
	}
	return b
}

// WriteFlat writes the bundle's artifacts directly into dir using the
// default file names
func WriteFlat(t testing.TB, dir string, b *model.Bundle) {
	t.Helper()

	names := domain.DefaultArtifactNames
	for name, v := range map[string]interface{}{
		names.Vectorizer: b.Vectorizer,
		names.Classifier: b.Classifier,
		names.Labels:     b.Labels,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// StaticProvider always returns the same bundle or error
type StaticProvider struct {
	Bundle *model.Bundle
	Err    error
	calls  atomic.Int64
}

// Model returns the configured bundle or error
func (p *StaticProvider) Model(_ context.Context) (*model.Bundle, error) {
	p.calls.Add(1)
	return p.Bundle, p.Err
}

// Calls returns how many times Model was called
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}
