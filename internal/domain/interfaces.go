package domain

import (
	"context"
)

// Recommender maps a symptom report to a specialist
type Recommender interface {
	Recommend(ctx context.Context, report SymptomReport) (*Recommendation, error)
}

// AuditStore receives an append-only trail of successful recommendations
type AuditStore interface {
	Append(ctx context.Context, record *AuditRecord) error
	List(ctx context.Context, limit, offset int) ([]*AuditRecord, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// ModelStatus reports whether the trained model is currently loaded
type ModelStatus interface {
	Loaded() bool
	Version() string
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetModelConfig() *ModelConfig
	GetLoggingConfig() *LoggingConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
