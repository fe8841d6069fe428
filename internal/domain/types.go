// Package domain contains the core entities shared by the specialist
// recommender: symptom reports, specialist labels, recommendations and the
// audit records written after every successful recommendation.
package domain

import (
	"strings"
	"time"
)

// SpecialistLabel is the human readable specialist category produced either
// by the rule table or by the trained model.
type SpecialistLabel string

const (
	Urologist       SpecialistLabel = "Urologist"
	Gynecologist    SpecialistLabel = "Gynecologist"
	Ophthalmologist SpecialistLabel = "Ophthalmologist"
	Dermatologist   SpecialistLabel = "Dermatologist"
)

// String returns the label text
func (l SpecialistLabel) String() string {
	return string(l)
}

// RecommendationSource records which layer produced a recommendation.
type RecommendationSource string

const (
	SourceRule  RecommendationSource = "rule"
	SourceModel RecommendationSource = "model"
)

// SymptomReport is the per-request input of the recommender.
type SymptomReport struct {
	Symptoms string `json:"symptoms"`
	Disease  string `json:"disease,omitempty"`
}

// Validate checks that the report carries non-blank symptoms.
func (r SymptomReport) Validate() error {
	if strings.TrimSpace(r.Symptoms) == "" {
		return NewValidationError("symptoms", "No symptoms provided", r.Symptoms)
	}
	return nil
}

// ModelInput builds the text handed to the trained model. The disease label,
// when present, is prepended to the symptoms.
func (r SymptomReport) ModelInput() string {
	if r.Disease != "" {
		return r.Disease + " " + r.Symptoms
	}
	return r.Symptoms
}

// Recommendation is the outcome of a single recommend call.
type Recommendation struct {
	Specialist   SpecialistLabel      `json:"specialist"`
	Source       RecommendationSource `json:"source"`
	RuleName     string               `json:"rule,omitempty"`
	ModelVersion string               `json:"model_version,omitempty"`
	Cached       bool                 `json:"cached,omitempty"`
}

// AuditRecord is the append-only trail entry written after a successful
// recommendation.
type AuditRecord struct {
	ID         int64     `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Symptoms   string    `json:"symptoms"`
	Disease    string    `json:"disease"`
	Specialist string    `json:"specialist"`
	Source     string    `json:"source,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewAuditRecord creates an audit record for a finished recommendation.
func NewAuditRecord(report SymptomReport, rec *Recommendation, requestID string) *AuditRecord {
	return &AuditRecord{
		Timestamp:  time.Now().UTC(),
		Symptoms:   report.Symptoms,
		Disease:    report.Disease,
		Specialist: rec.Specialist.String(),
		Source:     string(rec.Source),
		RequestID:  requestID,
	}
}
