// Package config provides configuration management for the gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"aigate/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Providers ProvidersConfig `toml:"providers"`
	Cache     CacheConfig     `toml:"cache"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Timeouts  TimeoutConfig   `toml:"timeouts"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	HTTPPort       int           `toml:"http_port"`
	BindAddress    string        `toml:"bind_address"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	MaxRequestSize int64         `toml:"max_request_size"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled   bool   `toml:"enabled"`
	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`
}

// ProvidersConfig contains provider credentials. A provider with no
// credential is treated as not configured.
type ProvidersConfig struct {
	OpenAI  OpenAIConfig  `toml:"openai"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Bedrock BedrockConfig `toml:"bedrock"`
}

// OpenAIConfig contains OpenAI-specific settings
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	OrgID   string `toml:"org_id"`
}

// GeminiConfig contains Gemini-specific settings
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// BedrockConfig contains AWS Bedrock-specific settings
type BedrockConfig struct {
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Configured reports whether Bedrock has usable credentials
func (b BedrockConfig) Configured() bool {
	return b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// CacheConfig contains response cache settings
type CacheConfig struct {
	Enabled    bool          `toml:"enabled"`
	Driver     string        `toml:"driver"` // "memory" or "postgres"
	DSN        string        `toml:"dsn"`    // connection string for the postgres driver
	DefaultTTL time.Duration `toml:"default_ttl"`
	MaxEntries int           `toml:"max_entries"` // memory driver only
}

// RateLimitConfig contains admission-control settings. The general policy
// applies to ordinary calls, the expensive policy to vision/multimodal calls.
type RateLimitConfig struct {
	Enabled         bool          `toml:"enabled"`
	GeneralWindow   time.Duration `toml:"general_window"`
	GeneralMax      int           `toml:"general_max"`
	ExpensiveWindow time.Duration `toml:"expensive_window"`
	ExpensiveMax    int           `toml:"expensive_max"`
	ExemptLoopback  bool          `toml:"exempt_loopback"`
}

// TimeoutConfig contains per-operation-class call timeouts
type TimeoutConfig struct {
	Chat   time.Duration `toml:"chat"`
	Vision time.Duration `toml:"vision"`
}

// For returns the timeout for an operation class
func (t TimeoutConfig) For(class domain.OperationClass) time.Duration {
	if class == domain.ClassVision {
		return t.Vision
	}
	return t.Chat
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       8080,
			BindAddress:    "0.0.0.0",
			ReadTimeout:    2 * time.Minute,
			WriteTimeout:   3 * time.Minute,
			MaxRequestSize: 2 * 1024 * 1024, // 2MB
		},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			LogFormat: "json",
			LogLevel:  "info",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Driver:     "memory",
			DefaultTTL: time.Hour,
			MaxEntries: 4096,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			GeneralWindow:   15 * time.Minute,
			GeneralMax:      100,
			ExpensiveWindow: time.Hour,
			ExpensiveMax:    10,
			ExemptLoopback:  true,
		},
		Timeouts: TimeoutConfig{
			Chat:   30 * time.Second,
			Vision: 60 * time.Second,
		},
	}
}

// Load loads configuration from a file, applying environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault loads config from file or returns defaults
func LoadOrDefault(path string) *Config {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg
	}

	cfg, err := Load(path)
	if err != nil {
		fmt.Printf("Warning: Failed to load config from %s: %v\n", path, err)
		return Default()
	}

	return cfg
}

// applyEnv expands ${VAR} patterns in credential fields and applies direct
// AIGATE_* environment variable overrides
func (c *Config) applyEnv() {
	c.Providers.OpenAI.APIKey = expandEnv(c.Providers.OpenAI.APIKey)
	c.Providers.Gemini.APIKey = expandEnv(c.Providers.Gemini.APIKey)
	c.Providers.Bedrock.AccessKeyID = expandEnv(c.Providers.Bedrock.AccessKeyID)
	c.Providers.Bedrock.SecretAccessKey = expandEnv(c.Providers.Bedrock.SecretAccessKey)
	c.Cache.DSN = expandEnv(c.Cache.DSN)

	if v := os.Getenv("AIGATE_OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("AIGATE_GEMINI_API_KEY"); v != "" {
		c.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("AIGATE_AWS_ACCESS_KEY_ID"); v != "" {
		c.Providers.Bedrock.AccessKeyID = v
	}
	if v := os.Getenv("AIGATE_AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Providers.Bedrock.SecretAccessKey = v
	}
	if v := os.Getenv("AIGATE_AWS_REGION"); v != "" {
		c.Providers.Bedrock.Region = v
	}

	if v := os.Getenv("AIGATE_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.HTTPPort = port
		}
	}
	if v := os.Getenv("AIGATE_CACHE_DRIVER"); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv("AIGATE_CACHE_DSN"); v != "" {
		c.Cache.DSN = v
	}
	if v := os.Getenv("AIGATE_CACHE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv("AIGATE_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Cache.DefaultTTL = ttl
		}
	}
}

// expandEnv expands ${VAR} or $VAR patterns
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}
