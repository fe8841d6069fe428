// Package training fits the TF-IDF vectorizer, the one-vs-rest linear SVM
// and the label encoder from a labelled symptom dataset, evaluates them on a
// holdout split and publishes the result as a model release.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/textnorm"
)

// Required dataset columns
const (
	ColumnDisease    = "disease"
	ColumnSymptoms   = "symptoms"
	ColumnSpecialist = "specialist"
)

// Sample is one labelled dataset row
type Sample struct {
	Disease    string
	Symptoms   string
	Specialist string
	// Text is the normalized model input built from disease and symptoms
	Text string
}

// Dataset is an ordered list of samples
type Dataset struct {
	Samples []Sample
	// Skipped counts rows dropped because they normalized to nothing or had no label
	Skipped int
}

// Len returns the number of usable samples
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// Texts returns the normalized text of every sample
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Text
	}
	return out
}

// Labels returns the specialist of every sample
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Specialist
	}
	return out
}

// Subset returns a dataset holding the samples at idx, in that order
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{Samples: make([]Sample, len(idx))}
	for i, j := range idx {
		out.Samples[i] = d.Samples[j]
	}
	return out
}

// LoadDataset reads a CSV file with a header naming the disease, symptoms
// and specialist columns
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses dataset rows from r
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range []string{ColumnDisease, ColumnSymptoms, ColumnSpecialist} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset must contain columns %s; missing %s",
			strings.Join([]string{ColumnDisease, ColumnSymptoms, ColumnSpecialist}, ", "),
			strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		report := domain.SymptomReport{
			Disease:  field(row, ColumnDisease),
			Symptoms: field(row, ColumnSymptoms),
		}
		sample := Sample{
			Disease:    report.Disease,
			Symptoms:   report.Symptoms,
			Specialist: field(row, ColumnSpecialist),
			Text:       textnorm.Normalize(report.ModelInput()),
		}
		if sample.Text == "" || sample.Specialist == "" {
			ds.Skipped++
			continue
		}
		ds.Samples = append(ds.Samples, sample)
	}
	return ds, nil
}
