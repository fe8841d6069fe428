package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/model/modeltest"
)

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))

	return &domain.Config{
		Model: domain.ModelConfig{Dir: modelDir},
		Cache: domain.CacheConfig{Enabled: true, MaxItems: 100, TTL: time.Minute},
		Audit: domain.AuditConfig{
			Sinks:   []string{"csv"},
			CSVPath: filepath.Join(dir, "symptom_logs.csv"),
		},
		Retrain: domain.RetrainConfig{Mode: "inprocess", Timeout: time.Minute},
	}
}

func TestBuild_Recommends(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Model.EagerLoad = true
	modeltest.WriteFlat(t, cfg.Model.Dir, modeltest.Bundle(t, "flat"))

	a, err := Build(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Provider.Loaded(), "eager load")
	assert.Nil(t, a.Retrainer, "no dataset configured")
	require.NotNil(t, a.Cache)

	rec, err := a.Recommender.Recommend(ctx, domain.SymptomReport{Symptoms: "chest pain"})
	require.NoError(t, err)
	assert.Equal(t, modeltest.Cardiologist, rec.Specialist.String())

	rec, err = a.Recommender.Recommend(ctx, domain.SymptomReport{Symptoms: "chest pain"})
	require.NoError(t, err)
	assert.True(t, rec.Cached)

	_, err = a.Reload(ctx)
	require.NoError(t, err)
	rec, err = a.Recommender.Recommend(ctx, domain.SymptomReport{Symptoms: "chest pain"})
	require.NoError(t, err)
	assert.False(t, rec.Cached, "reload empties the cache")
}

func TestBuild_MissingModelIsLazy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Model.EagerLoad = true

	a, err := Build(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Provider.Loaded())
	_, err = a.Recommender.Recommend(ctx, domain.SymptomReport{Symptoms: "chest pain"})
	assert.Equal(t, domain.ErrModelNotFound, domain.ErrorCode(err))

	rec, err := a.Recommender.Recommend(ctx, domain.SymptomReport{Symptoms: "itchy skin on my arm"})
	require.NoError(t, err, "rules work without a model")
	assert.Equal(t, domain.Dermatologist, rec.Specialist)
}

func TestBuild_WithRetrainer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrain.DatasetPath = filepath.Join(t.TempDir(), "dataset.csv")

	a, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Retrainer)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Sinks = []string{"kafka"}
	_, err := Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Cache.MaxItems = 0
	_, err = Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Cache.RedisURL = "not-a-url"
	_, err = Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Retrain.Mode = "command"
	_, err = Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err, "command mode needs a command")
}
