package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/domain"
)

func TestNew_JSONFormat(t *testing.T) {
	logger, closer, err := New(domain.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("specialist", "Urologist").Info("recommendation generated")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "recommendation generated", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Urologist", entry["specialist"])
	assert.Contains(t, entry, "timestamp")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, _, err := New(domain.LoggingConfig{Level: "chatty", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nlp_service.log")

	logger, closer, err := New(domain.LoggingConfig{Level: "info", Format: "json", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.Info("model loaded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "model loaded")
}

func TestNew_UnsupportedOutput(t *testing.T) {
	_, _, err := New(domain.LoggingConfig{Output: "syslog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log output")
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestID(ctx))

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	FromContext(ctx, logger).Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}
