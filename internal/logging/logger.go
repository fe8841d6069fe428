// Package logging configures the logrus logger shared by the HTTP server,
// the MCP server and the trainer, and carries request correlation IDs
// through context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
)

// Output destinations
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// New builds a logger from configuration. The returned closer releases the
// log file when output is "file" and is a no-op otherwise.
func New(config domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(config.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(config.Output) {
	case "", OutputStdout:
		logger.SetOutput(os.Stdout)
	case OutputStderr:
		logger.SetOutput(os.Stderr)
	case OutputFile:
		filename := config.Filename
		if filename == "" {
			filename = "nlp_service.log"
		}
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
		}
		logger.SetOutput(f)
		closer = f
	default:
		return nil, nil, fmt.Errorf("unsupported log output: %s", config.Output)
	}

	return logger, closer, nil
}

// Discard returns a logger that drops everything, for tests and library defaults
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithRequestID stores a correlation ID on the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts the correlation ID, or "" if none was set
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns an entry carrying the request ID when one is present
func FromContext(ctx context.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	if id := RequestID(ctx); id != "" {
		return logger.WithField("request_id", id)
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
