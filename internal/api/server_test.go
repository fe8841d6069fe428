package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/audit"
	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/model/modeltest"
	"github.com/specialist-recommender/internal/retrain"
	"github.com/specialist-recommender/internal/service"
)

type stubConfig struct {
	cfg *domain.Config
}

func newStubConfig() *stubConfig {
	return &stubConfig{cfg: &domain.Config{
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           5001,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Logging: domain.LoggingConfig{Level: "info"},
	}}
}

func (s *stubConfig) GetConfig() *domain.Config { return s.cfg }
func (s *stubConfig) GetServerConfig() *domain.ServerConfig { return &s.cfg.Server }
func (s *stubConfig) GetModelConfig() *domain.ModelConfig { return &s.cfg.Model }
func (s *stubConfig) GetLoggingConfig() *domain.LoggingConfig { return &s.cfg.Logging }
func (s *stubConfig) Reload() error { return nil }
func (s *stubConfig) Validate() error { return nil }
func (s *stubConfig) IsProduction() bool { return false }
func (s *stubConfig) IsDevelopment() bool { return true }

type stubRecommender struct {
	rec    *domain.Recommendation
	err    error
	calls  int
	report domain.SymptomReport
}

func (s *stubRecommender) Recommend(_ context.Context, report domain.SymptomReport) (*domain.Recommendation, error) {
	s.calls++
	s.report = report
	return s.rec, s.err
}

type stubRetrainer struct {
	result *retrain.Result
	err    error
}

func (s *stubRetrainer) Retrain(context.Context) (*retrain.Result, error) {
	return s.result, s.err
}

type failingAudit struct {
	audit.Discard
}

func (failingAudit) Append(context.Context, *domain.AuditRecord) error {
	return errors.New("disk full")
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	if deps.Audit == nil {
		store, err := audit.NewCSVStore(filepath.Join(t.TempDir(), "symptom_logs.csv"))
		require.NoError(t, err)
		deps.Audit = store
	}
	deps.Logger = logging.Discard()
	srv, err := NewServer(newStubConfig(), deps)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(newStubConfig(), Dependencies{})
	require.Error(t, err)
	_, err = NewServer(newStubConfig(), Dependencies{Recommender: &stubRecommender{}})
	require.Error(t, err)
}

func TestAnalyze_Success(t *testing.T) {
	rec := &stubRecommender{rec: &domain.Recommendation{
		Specialist:   "Cardiologist",
		Source:       domain.SourceModel,
		ModelVersion: "v1",
	}}
	srv := newTestServer(t, Dependencies{Recommender: rec})

	w := do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"  chest pain  ","disease":" angina "}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "chest pain", body["symptoms"])
	assert.Equal(t, "angina", body["disease"])
	assert.Equal(t, "Cardiologist", body["recommended_specialist_category"])
	assert.Equal(t, "model", body["source"])
	assert.Equal(t, "v1", body["model_version"])
	assert.Equal(t, "Specialist recommendation generated successfully.", body["message"])
	assert.Equal(t, domain.SymptomReport{Symptoms: "chest pain", Disease: "angina"}, rec.report)

	total, err := srv.deps.Audit.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAnalyze_NoSymptoms(t *testing.T) {
	rec := &stubRecommender{}
	srv := newTestServer(t, Dependencies{Recommender: rec})

	for _, body := range []string{`{"symptoms":"   "}`, `{"disease":"flu"}`} {
		w := do(srv, http.MethodPost, "/nlp/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No symptoms provided", decode(t, w)["error"])
	}
	assert.Equal(t, 0, rec.calls)
}

func TestAnalyze_InvalidBody(t *testing.T) {
	srv := newTestServer(t, Dependencies{Recommender: &stubRecommender{}})

	w := do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		code    string
	}{
		{"model missing", domain.NewModelNotFoundError("model", "artifacts not found", nil), http.StatusServiceUnavailable, "Model not available", "MODEL_NOT_FOUND"},
		{"processing", domain.NewProcessingError("prediction", errors.New("bad vector")), http.StatusInternalServerError, "Failed to process symptoms", "PROCESSING_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Failed to process symptoms", "INTERNAL_SERVER_ERROR"},
		{"validation", domain.NewValidationError("symptoms", "No symptoms provided", ""), http.StatusBadRequest, "No symptoms provided", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Dependencies{Recommender: &stubRecommender{err: tt.err}})

			w := do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"cough"}`)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.code, body["code"])

			total, err := srv.deps.Audit.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, total, "failed recommendations are not audited")
		})
	}
}

func TestAnalyze_AuditFailureIsReported(t *testing.T) {
	rec := &stubRecommender{rec: &domain.Recommendation{Specialist: domain.Dermatologist, Source: domain.SourceRule}}
	srv := newTestServer(t, Dependencies{Recommender: rec, Audit: failingAudit{}})

	w := do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"skin rash"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Failed to process symptoms", body["error"])
	assert.Contains(t, body["details"], "disk full")
}

func TestAnalyze_WithRealRecommender(t *testing.T) {
	provider := &modeltest.StaticProvider{Bundle: modeltest.Bundle(t, "fixture")}
	svc, err := service.NewRecommenderService(provider, service.WithLogger(logging.Discard()))
	require.NoError(t, err)
	srv := newTestServer(t, Dependencies{Recommender: svc})

	w := do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"blurred vision"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ophthalmologist", decode(t, w)["recommended_specialist_category"])

	w = do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"chest pain"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, modeltest.Cardiologist, body["recommended_specialist_category"])
	assert.Equal(t, "fixture", body["model_version"])
}

func TestRetrain(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestServer(t, Dependencies{
			Recommender: &stubRecommender{},
			Retrainer:   &stubRetrainer{result: &retrain.Result{Mode: "inprocess", Version: "v9"}},
		})
		w := do(srv, http.MethodPost, "/nlp/retrain", "")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Model retrained successfully", body["message"])
		assert.Equal(t, "v9", body["version"])
	})

	t.Run("in progress", func(t *testing.T) {
		srv := newTestServer(t, Dependencies{
			Recommender: &stubRecommender{},
			Retrainer:   &stubRetrainer{err: retrain.ErrRetrainInProgress},
		})
		w := do(srv, http.MethodPost, "/nlp/retrain", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "RETRAIN_IN_PROGRESS", decode(t, w)["code"])
	})

	t.Run("failure", func(t *testing.T) {
		srv := newTestServer(t, Dependencies{
			Recommender: &stubRecommender{},
			Retrainer:   &stubRetrainer{err: errors.New("exit status 1")},
		})
		w := do(srv, http.MethodPost, "/nlp/retrain", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Failed to retrain model", body["error"])
		assert.Equal(t, "exit status 1", body["details"])
	})

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, Dependencies{Recommender: &stubRecommender{}})
		w := do(srv, http.MethodPost, "/nlp/retrain", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestLogs(t *testing.T) {
	rec := &stubRecommender{rec: &domain.Recommendation{Specialist: domain.Urologist, Source: domain.SourceRule}}
	srv := newTestServer(t, Dependencies{Recommender: rec})

	for _, s := range []string{"groin pain", "penis swelling", "testicle ache"} {
		require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/nlp/analyze", `{"symptoms":"`+s+`"}`).Code)
	}

	w := do(srv, http.MethodGet, "/nlp/logs?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total"])
	records := body["records"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, "testicle ache", records[0].(map[string]interface{})["symptoms"])

	w = do(srv, http.MethodGet, "/nlp/logs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	discard := newTestServer(t, Dependencies{Recommender: rec, Audit: audit.Discard{}})
	w = do(discard, http.MethodGet, "/nlp/logs", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	provider := &modeltest.StaticProvider{Bundle: modeltest.Bundle(t, "v1")}
	srv := newTestServer(t, Dependencies{Recommender: &stubRecommender{}, Model: readyStatus{provider}})

	w := do(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["model_loaded"])
	assert.Equal(t, "v1", body["model_version"])
}

type readyStatus struct {
	p *modeltest.StaticProvider
}

func (r readyStatus) Loaded() bool    { return r.p.Bundle != nil }
func (r readyStatus) Version() string { return r.p.Bundle.Version }

func TestStart_ShutsDownOnCancel(t *testing.T) {
	cfg := newStubConfig()
	cfg.cfg.Server.Port = 0
	srv, err := NewServer(cfg, Dependencies{Recommender: &stubRecommender{}, Audit: audit.Discard{}, Logger: logging.Discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
