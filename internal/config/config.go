package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/specialist-recommender/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g. SPECIALIST_SERVER_PORT
const EnvPrefix = "SPECIALIST"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	config     *domain.Config
	configFile string
}

// Option customizes a Manager before the first load
type Option func(*Manager)

// WithConfigFile reads configuration from an explicit file instead of the search paths
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/specialist-recommender/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "0s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Model defaults
	v.SetDefault("model.dir", "model")
	v.SetDefault("model.vectorizer_file", domain.DefaultArtifactNames.Vectorizer)
	v.SetDefault("model.classifier_file", domain.DefaultArtifactNames.Classifier)
	v.SetDefault("model.labels_file", domain.DefaultArtifactNames.Labels)
	v.SetDefault("model.eager_load", false)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_timeout", "200ms")
	v.SetDefault("cache.breaker_window", "60s")
	v.SetDefault("cache.breaker_open", "30s")

	// Audit defaults
	v.SetDefault("audit.sinks", []string{"csv"})
	v.SetDefault("audit.csv_path", "symptom_logs.csv")
	v.SetDefault("audit.sqlite_path", "data/audit.db")
	v.SetDefault("audit.postgres_url", "")
	v.SetDefault("audit.migrations_path", "")
	v.SetDefault("audit.auto_migrate", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "nlp_service.log")

	// Retrain defaults
	v.SetDefault("retrain.mode", "inprocess")
	v.SetDefault("retrain.command", "")
	v.SetDefault("retrain.args", []string{})
	v.SetDefault("retrain.dataset_path", "symptoms_dataset.csv")
	v.SetDefault("retrain.timeout", "10m")
	v.SetDefault("retrain.max_features", 3000)
	v.SetDefault("retrain.epochs", 20)
	v.SetDefault("retrain.c", 1.0)
	v.SetDefault("retrain.test_size", 0.2)
	v.SetDefault("retrain.seed", 42)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	// MCP defaults
	v.SetDefault("mcp.server_name", "specialist-recommender")
	v.SetDefault("mcp.server_version", "v0.1.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetModelConfig returns model artifact configuration
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var (
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
		"error": true, "fatal": true, "panic": true,
	}
	validAuditSinks   = map[string]bool{"csv": true, "sqlite": true, "postgres": true, "none": true}
	validRetrainModes = map[string]bool{"inprocess": true, "command": true}
)

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max_body_bytes must be positive")
	}

	if config.Model.Dir == "" {
		return fmt.Errorf("model directory is required")
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch config.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	for _, sink := range config.Audit.Sinks {
		if !validAuditSinks[strings.ToLower(sink)] {
			return fmt.Errorf("invalid audit sink: %s", sink)
		}
		if strings.EqualFold(sink, "postgres") && config.Audit.PostgresURL == "" {
			return fmt.Errorf("audit postgres_url is required when the postgres sink is enabled")
		}
	}

	if !validRetrainModes[config.Retrain.Mode] {
		return fmt.Errorf("invalid retrain mode: %s", config.Retrain.Mode)
	}
	if config.Retrain.Mode == "command" && config.Retrain.Command == "" {
		return fmt.Errorf("retrain command is required when mode is command")
	}
	if config.Retrain.TestSize <= 0 || config.Retrain.TestSize >= 1 {
		return fmt.Errorf("retrain test_size must be in (0, 1), got %v", config.Retrain.TestSize)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	if config.Cache.Enabled && config.Cache.MaxItems <= 0 {
		return fmt.Errorf("cache max_items must be positive when the cache is enabled")
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
