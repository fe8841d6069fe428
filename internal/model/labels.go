package model

import (
	"fmt"
	"sort"
)

// LabelEncoder maps class indices to specialist names. Classes are sorted so
// the same label set always yields the same indices.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabels builds an encoder from the distinct values of labels
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Len returns the number of classes
func (e *LabelEncoder) Len() int {
	return len(e.Classes)
}

// Encode returns the index of label
func (e *LabelEncoder) Encode(label string) (int, bool) {
	i := sort.SearchStrings(e.Classes, label)
	if i < len(e.Classes) && e.Classes[i] == label {
		return i, true
	}
	return 0, false
}

// Decode returns the label at idx
func (e *LabelEncoder) Decode(idx int) (string, error) {
	if idx < 0 || idx >= len(e.Classes) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", idx, len(e.Classes))
	}
	return e.Classes[idx], nil
}

// Contains reports whether label is a known class
func (e *LabelEncoder) Contains(label string) bool {
	_, ok := e.Encode(label)
	return ok
}

// Validate checks the classes are sorted and unique
func (e *LabelEncoder) Validate() error {
	if len(e.Classes) == 0 {
		return fmt.Errorf("label encoder has no classes")
	}
	for i := 1; i < len(e.Classes); i++ {
		if e.Classes[i-1] >= e.Classes[i] {
			return fmt.Errorf("label classes must be sorted and unique, found %q before %q", e.Classes[i-1], e.Classes[i])
		}
	}
	return nil
}
