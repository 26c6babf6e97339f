// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Session   SessionConfig   `mapstructure:"session"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds
}

// ProvidersConfig holds the downstream capability providers the executor and
// synthesis stages call out to.
type ProvidersConfig struct {
	BookingOps        ProviderConfig `mapstructure:"booking_ops"`
	CapacityAnalytics ProviderConfig `mapstructure:"capacity_analytics"`
	GenAI             GenAIConfig    `mapstructure:"genai"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type GenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// PipelineConfig tunes the request pipeline stages.
type PipelineConfig struct {
	ClassifierThreshold   float64 `mapstructure:"classifier_threshold"`
	ExecutionTimeout      int     `mapstructure:"execution_timeout"` // milliseconds
	MaxRetries            int     `mapstructure:"max_retries"`
	RetryBaseDelay        int     `mapstructure:"retry_base_delay"` // milliseconds
	RetryMaxDelay         int     `mapstructure:"retry_max_delay"`  // milliseconds
	RetryMultiplier       float64 `mapstructure:"retry_multiplier"`
	StrictSanitizer       bool    `mapstructure:"strict_sanitizer"`
	StrictConfidentiality bool    `mapstructure:"strict_confidentiality"`
}

// ExecutionTimeoutDuration returns the plan execution deadline.
func (p PipelineConfig) ExecutionTimeoutDuration() time.Duration {
	return time.Duration(p.ExecutionTimeout) * time.Millisecond
}

type SessionConfig struct {
	TTL int `mapstructure:"ttl"` // seconds
}

// TTLDuration returns the session idle expiry.
func (s SessionConfig) TTLDuration() time.Duration {
	return time.Duration(s.TTL) * time.Second
}

type DatabaseConfig struct {
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.ClassifierThreshold < 0 || cfg.Pipeline.ClassifierThreshold > 1 {
		return fmt.Errorf("pipeline.classifier_threshold must be between 0 and 1, got %f", cfg.Pipeline.ClassifierThreshold)
	}
	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative, got %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Providers.BookingOps.BaseURL == "" {
		return fmt.Errorf("providers.booking_ops.base_url is required")
	}
	if cfg.Providers.CapacityAnalytics.BaseURL == "" {
		return fmt.Errorf("providers.capacity_analytics.base_url is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "portlink-orchestrator"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15
	}
	if cfg.Pipeline.ClassifierThreshold == 0 {
		cfg.Pipeline.ClassifierThreshold = 0.7
	}
	if cfg.Pipeline.ExecutionTimeout == 0 {
		cfg.Pipeline.ExecutionTimeout = 30000
	}
	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 2
	}
	if cfg.Pipeline.RetryBaseDelay == 0 {
		cfg.Pipeline.RetryBaseDelay = 100
	}
	if cfg.Pipeline.RetryMaxDelay == 0 {
		cfg.Pipeline.RetryMaxDelay = 5000
	}
	if cfg.Pipeline.RetryMultiplier == 0 {
		cfg.Pipeline.RetryMultiplier = 2.0
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 1800
	}
	if cfg.Providers.GenAI.Timeout == 0 {
		cfg.Providers.GenAI.Timeout = 10000
	}
	if cfg.Providers.BookingOps.Timeout == 0 {
		cfg.Providers.BookingOps.Timeout = 8000
	}
	if cfg.Providers.CapacityAnalytics.Timeout == 0 {
		cfg.Providers.CapacityAnalytics.Timeout = 8000
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
