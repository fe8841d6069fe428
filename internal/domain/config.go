package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Model       ModelConfig     `mapstructure:"model"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Audit       AuditConfig     `mapstructure:"audit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Retrain     RetrainConfig   `mapstructure:"retrain"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// ModelConfig locates the trained model artifacts
type ModelConfig struct {
	Dir            string `mapstructure:"dir"`
	VectorizerFile string `mapstructure:"vectorizer_file"`
	ClassifierFile string `mapstructure:"classifier_file"`
	LabelsFile     string `mapstructure:"labels_file"`
	EagerLoad      bool   `mapstructure:"eager_load"`
}

// CacheConfig represents prediction cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxItems      int           `mapstructure:"max_items"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisTimeout  time.Duration `mapstructure:"redis_timeout"`
	BreakerWindow time.Duration `mapstructure:"breaker_window"`
	BreakerOpen   time.Duration `mapstructure:"breaker_open"`
}

// AuditConfig selects where audit records are written
type AuditConfig struct {
	Sinks          []string `mapstructure:"sinks"`
	CSVPath        string   `mapstructure:"csv_path"`
	SQLitePath     string   `mapstructure:"sqlite_path"`
	PostgresURL    string   `mapstructure:"postgres_url"`
	MigrationsPath string   `mapstructure:"migrations_path"`
	AutoMigrate    bool     `mapstructure:"auto_migrate"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// RetrainConfig controls how the retrain endpoint produces new artifacts
type RetrainConfig struct {
	Mode        string        `mapstructure:"mode"` // "inprocess", "command"
	Command     string        `mapstructure:"command"`
	Args        []string      `mapstructure:"args"`
	DatasetPath string        `mapstructure:"dataset_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFeatures int           `mapstructure:"max_features"`
	Epochs      int           `mapstructure:"epochs"`
	C           float64       `mapstructure:"c"`
	TestSize    float64       `mapstructure:"test_size"`
	Seed        uint64        `mapstructure:"seed"`
}

// RateLimitConfig controls per-client request limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}

// ArtifactNames returns the configured file names of the three model artifacts
func (m ModelConfig) ArtifactNames() ArtifactNames {
	return ArtifactNames{
		Vectorizer: m.VectorizerFile,
		Classifier: m.ClassifierFile,
		Labels:     m.LabelsFile,
	}
}

// ArtifactNames holds the file names of the vectorizer, classifier and label decoder.
type ArtifactNames struct {
	Vectorizer string
	Classifier string
	Labels     string
}

// DefaultArtifactNames are used when no names are configured
var DefaultArtifactNames = ArtifactNames{
	Vectorizer: "tfidf_vectorizer.json",
	Classifier: "svm_model.json",
	Labels:     "label_encoder.json",
}

// OrDefault fills blank names with the defaults
func (n ArtifactNames) OrDefault() ArtifactNames {
	if n.Vectorizer == "" {
		n.Vectorizer = DefaultArtifactNames.Vectorizer
	}
	if n.Classifier == "" {
		n.Classifier = DefaultArtifactNames.Classifier
	}
	if n.Labels == "" {
		n.Labels = DefaultArtifactNames.Labels
	}
	return n
}
