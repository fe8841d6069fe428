package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/audit"
	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/middleware"
	"github.com/specialist-recommender/internal/retrain"
)

// Response messages kept stable for existing clients
const (
	msgNoSymptoms        = "No symptoms provided"
	msgInvalidBody       = "Invalid request body"
	msgModelUnavailable  = "Model not available"
	msgProcessingFailed  = "Failed to process symptoms"
	msgRecommendationOK  = "Specialist recommendation generated successfully."
	msgRetrainOK         = "Model retrained successfully"
	msgRetrainFailed     = "Failed to retrain model"
	msgRetrainInProgress = "Model retraining already in progress"
	msgRetrainDisabled   = "Model retraining is not enabled"
)

// AnalyzeRequest is the body of POST /nlp/analyze
type AnalyzeRequest struct {
	Symptoms string `json:"symptoms"`
	Disease  string `json:"disease"`
}

// AnalyzeResponse is returned for a successful recommendation
type AnalyzeResponse struct {
	Symptoms                      string `json:"symptoms"`
	Disease                       string `json:"disease"`
	RecommendedSpecialistCategory string `json:"recommended_specialist_category"`
	Source                        string `json:"source"`
	ModelVersion                  string `json:"model_version,omitempty"`
	Message                       string `json:"message"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) fail(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: c.GetString(middleware.RequestIDKey),
	})
}

// handleHealth handles liveness requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports whether the model is loaded. The model loads lazily,
// so an unloaded model is reported but does not make the service unready.
func (s *Server) handleReady(c *gin.Context) {
	body := gin.H{"status": "ready"}
	if s.deps.Model != nil {
		body["model_loaded"] = s.deps.Model.Loaded()
		body["model_version"] = s.deps.Model.Version()
	}
	c.JSON(http.StatusOK, body)
}

// handleAnalyze recommends a specialist for the posted symptoms and records
// the outcome in the audit trail
func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()
	log := logging.FromContext(ctx, s.logger)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, domain.ErrValidation, msgInvalidBody, "request body too large")
			return
		}
		log.WithError(err).Warn("Malformed analyze request")
		s.fail(c, http.StatusBadRequest, domain.ErrValidation, msgInvalidBody, err.Error())
		return
	}

	report := domain.SymptomReport{
		Symptoms: strings.TrimSpace(req.Symptoms),
		Disease:  strings.TrimSpace(req.Disease),
	}
	if report.Symptoms == "" {
		log.Warn("No symptoms provided in request")
		s.fail(c, http.StatusBadRequest, domain.ErrValidation, msgNoSymptoms, "")
		return
	}

	rec, err := s.deps.Recommender.Recommend(ctx, report)
	if err != nil {
		log.WithError(err).WithField("code", domain.ErrorCode(err)).Error("Error processing symptoms")
		var validationErr *domain.ValidationError
		var modelErr *domain.ModelNotFoundError
		switch {
		case errors.As(err, &validationErr):
			s.fail(c, http.StatusBadRequest, domain.ErrValidation, msgNoSymptoms, "")
		case errors.As(err, &modelErr):
			s.fail(c, http.StatusServiceUnavailable, domain.ErrModelNotFound, msgModelUnavailable, err.Error())
		default:
			s.fail(c, http.StatusInternalServerError, domain.ErrorCode(err), msgProcessingFailed, err.Error())
		}
		return
	}

	record := domain.NewAuditRecord(report, rec, c.GetString(middleware.RequestIDKey))
	if err := s.deps.Audit.Append(ctx, record); err != nil {
		log.WithError(err).Error("Failed to record recommendation")
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, msgProcessingFailed, err.Error())
		return
	}

	log.WithFields(logrus.Fields{
		"specialist": rec.Specialist,
		"source":     rec.Source,
		"rule":       rec.RuleName,
		"cached":     rec.Cached,
	}).Info("Recommended specialist")

	c.JSON(http.StatusOK, AnalyzeResponse{
		Symptoms:                      report.Symptoms,
		Disease:                       report.Disease,
		RecommendedSpecialistCategory: rec.Specialist.String(),
		Source:                        string(rec.Source),
		ModelVersion:                  rec.ModelVersion,
		Message:                       msgRecommendationOK,
	})
}

// handleRetrain runs a retrain and swaps the new model into service
func (s *Server) handleRetrain(c *gin.Context) {
	if s.deps.Retrainer == nil {
		s.fail(c, http.StatusServiceUnavailable, domain.ErrRetrainFailed, msgRetrainDisabled, "")
		return
	}
	log := logging.FromContext(c.Request.Context(), s.logger)

	result, err := s.deps.Retrainer.Retrain(c.Request.Context())
	if err != nil {
		if errors.Is(err, retrain.ErrRetrainInProgress) {
			s.fail(c, http.StatusConflict, domain.ErrRetrainInProgress, msgRetrainInProgress, "")
			return
		}
		log.WithError(err).Error("Error retraining model")
		s.fail(c, http.StatusInternalServerError, domain.ErrRetrainFailed, msgRetrainFailed, err.Error())
		return
	}

	log.WithField("version", result.Version).Info("Model retrained successfully")
	c.JSON(http.StatusOK, gin.H{
		"message": msgRetrainOK,
		"version": result.Version,
		"result":  result,
	})
}

// handleLogs pages through recorded recommendations, newest first
func (s *Server) handleLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.fail(c, http.StatusBadRequest, domain.ErrValidation, "Invalid limit", err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.fail(c, http.StatusBadRequest, domain.ErrValidation, "Invalid offset", err.Error())
		return
	}

	ctx := c.Request.Context()
	records, err := s.deps.Audit.List(ctx, limit, offset)
	if err != nil {
		if errors.Is(err, audit.ErrNotQueryable) {
			s.fail(c, http.StatusNotImplemented, domain.ErrInternalServer, "Audit trail is not queryable", "")
			return
		}
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, "Failed to read audit trail", err.Error())
		return
	}
	total, err := s.deps.Audit.Count(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, "Failed to read audit trail", err.Error())
		return
	}
	if records == nil {
		records = []*domain.AuditRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}
