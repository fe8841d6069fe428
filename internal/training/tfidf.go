package training

import (
	"fmt"
	"math"
	"sort"

	"github.com/specialist-recommender/internal/model"
)

// VectorizerOptions controls vocabulary construction
type VectorizerOptions struct {
	MaxFeatures int
	NgramMin    int
	NgramMax    int
}

// DefaultVectorizerOptions mirrors the production feature space
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{MaxFeatures: 3000, NgramMin: 1, NgramMax: 2}
}

// FitVectorizer builds the vocabulary and smoothed idf table from docs and
// returns the vectorizer together with the transformed training matrix.
// When the vocabulary exceeds MaxFeatures the most frequent terms across the
// corpus are kept, ties broken alphabetically. Feature indices follow the
// alphabetical order of the kept terms.
func FitVectorizer(docs []string, opts VectorizerOptions) (*model.Vectorizer, []model.SparseVector, error) {
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("cannot fit vectorizer on an empty corpus")
	}
	if opts.NgramMin < 1 {
		opts.NgramMin = 1
	}
	if opts.NgramMax < opts.NgramMin {
		opts.NgramMax = opts.NgramMin
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	docGrams := make([][]string, len(docs))
	for i, doc := range docs {
		grams := model.Analyze(doc, opts.NgramMin, opts.NgramMax)
		docGrams[i] = grams
		seen := make(map[string]struct{}, len(grams))
		for _, g := range grams {
			termFreq[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				docFreq[g]++
			}
		}
	}
	if len(termFreq) == 0 {
		return nil, nil, fmt.Errorf("corpus produced an empty vocabulary")
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vec := &model.Vectorizer{
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
		NgramMin:   opts.NgramMin,
		NgramMax:   opts.NgramMax,
		Norm:       model.NormL2,
	}
	for i, term := range terms {
		vec.Vocabulary[term] = i
		vec.IDF[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	matrix := make([]model.SparseVector, len(docs))
	for i, grams := range docGrams {
		counts := make(map[int]float64)
		for _, g := range grams {
			if idx, ok := vec.Vocabulary[g]; ok {
				counts[idx]++
			}
		}
		matrix[i] = model.Weigh(counts, vec.IDF, vec.Norm)
	}
	return vec, matrix, nil
}

// TransformAll applies a fitted vectorizer to every document
func TransformAll(vec *model.Vectorizer, docs []string) ([]model.SparseVector, error) {
	out := make([]model.SparseVector, len(docs))
	for i, doc := range docs {
		x, err := vec.Transform(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}
