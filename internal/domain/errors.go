package domain

import (
	"errors"
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"error"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrValidation        = "VALIDATION_ERROR"
	ErrModelNotFound     = "MODEL_NOT_FOUND"
	ErrProcessing        = "PROCESSING_ERROR"
	ErrRetrainFailed     = "RETRAIN_FAILED"
	ErrRetrainInProgress = "RETRAIN_IN_PROGRESS"
	ErrRateLimit         = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer    = "INTERNAL_SERVER_ERROR"
)

// ValidationError is returned when a caller supplied missing or malformed
// input. The caller must correct the request.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ModelNotFoundError is returned when the trained model artifacts are missing
// or do not fit together. Training has to run before the model can serve.
type ModelNotFoundError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ModelNotFoundError) Error() string {
	msg := fmt.Sprintf("model artifacts unavailable at %s", e.Path)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + "; run the trainer first to generate model files"
}

// Unwrap exposes the underlying I/O or decode error
func (e *ModelNotFoundError) Unwrap() error {
	return e.Err
}

// ProcessingError wraps any failure during feature extraction, prediction or
// label decoding.
type ProcessingError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the wrapped error
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewModelNotFoundError creates a new ModelNotFoundError
func NewModelNotFoundError(path, reason string, err error) *ModelNotFoundError {
	return &ModelNotFoundError{Path: path, Reason: reason, Err: err}
}

// NewProcessingError creates a new ProcessingError for the given stage
func NewProcessingError(stage string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}

// ErrorCode maps an error to its stable code.
func ErrorCode(err error) string {
	var validationErr *ValidationError
	var modelErr *ModelNotFoundError
	var processingErr *ProcessingError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return ErrValidation
	case errors.As(err, &modelErr):
		return ErrModelNotFound
	case errors.As(err, &processingErr):
		return ErrProcessing
	default:
		return ErrInternalServer
	}
}
