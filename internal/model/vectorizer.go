package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NormL2 scales each document vector to unit Euclidean length
const NormL2 = "l2"

// Vectorizer maps normalized text onto a fixed TF-IDF feature space.
// The vocabulary is frozen at training time; unknown terms are ignored.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NgramMin   int            `json:"ngram_min"`
	NgramMax   int            `json:"ngram_max"`
	Norm       string         `json:"norm"`
}

// SparseVector holds the non-zero features of a document, ordered by index
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero features
func (s SparseVector) Len() int { return len(s.Indices) }

// Dim returns the feature space size
func (v *Vectorizer) Dim() int {
	return len(v.IDF)
}

// Validate checks that the vocabulary fits the idf table
func (v *Vectorizer) Validate() error {
	if len(v.IDF) == 0 {
		return fmt.Errorf("vectorizer has an empty feature space")
	}
	if v.NgramMin < 1 || v.NgramMax < v.NgramMin {
		return fmt.Errorf("invalid ngram range (%d, %d)", v.NgramMin, v.NgramMax)
	}
	if len(v.Vocabulary) != len(v.IDF) {
		return fmt.Errorf("vocabulary size %d does not match idf size %d", len(v.Vocabulary), len(v.IDF))
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return fmt.Errorf("term %q has out of range index %d", term, idx)
		}
	}
	return nil
}

// Analyze splits normalized text into the n-grams the vocabulary is keyed by.
// Single-letter tokens are skipped.
func Analyze(text string, ngramMin, ngramMax int) []string {
	var tokens []string
	for _, tok := range strings.Fields(text) {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	if ngramMin < 1 {
		ngramMin = 1
	}

	var grams []string
	for n := ngramMin; n <= ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Transform converts normalized text into a weighted, normalized feature vector
func (v *Vectorizer) Transform(text string) (SparseVector, error) {
	counts := make(map[int]float64)
	for _, gram := range Analyze(text, v.NgramMin, v.NgramMax) {
		idx, ok := v.Vocabulary[gram]
		if !ok {
			continue
		}
		if idx < 0 || idx >= len(v.IDF) {
			return SparseVector{}, fmt.Errorf("term %q maps outside the feature space", gram)
		}
		counts[idx]++
	}
	return weigh(counts, v.IDF, v.Norm), nil
}

// weigh applies idf weights and optional l2 normalization to raw term counts
func weigh(counts map[int]float64, idf []float64, norm string) SparseVector {
	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var sumSq float64
	for _, idx := range vec.Indices {
		w := counts[idx] * idf[idx]
		vec.Values = append(vec.Values, w)
		sumSq += w * w
	}
	if norm == NormL2 && sumSq > 0 {
		scale := 1 / math.Sqrt(sumSq)
		for i := range vec.Values {
			vec.Values[i] *= scale
		}
	}
	return vec
}

// Weigh is exported for training, which builds vectors from precomputed counts
func Weigh(counts map[int]float64, idf []float64, norm string) SparseVector {
	return weigh(counts, idf, norm)
}
