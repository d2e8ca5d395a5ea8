// Package config loads gateway configuration from YAML with .env and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the cloud AI provider connection. Only sanitized
// payloads are ever sent to this endpoint.
type ProviderConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTokens      int    `yaml:"max_tokens"`
}

// BudgetConfig caps provider spend and call rates.
type BudgetConfig struct {
	DailyBudgetUSD     float64 `yaml:"daily_budget_usd"`
	MaxCallsPerHour    int     `yaml:"max_calls_per_hour"`
	MaxConcurrentCalls int     `yaml:"max_concurrent_calls"`
}

// Config holds gateway configuration.
type Config struct {
	ListenPort int `yaml:"listen_port"`

	// Admin
	AdminToken string `yaml:"admin_token"` // Bearer token for /admin/metrics; "" = open

	// Behavior
	CacheMaxSize    int   `yaml:"cache_max_size"`
	ImageFailClosed bool  `yaml:"image_fail_closed"` // reject uploads whose metadata strip failed
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`

	// Logging
	LogLevel string `yaml:"log_level"`

	Provider ProviderConfig `yaml:"provider"`
	Budget   BudgetConfig   `yaml:"budget"`

	// Audit trail; "" = log-only sink
	AuditDatabaseURL string `yaml:"audit_database_url"`
}

// DefaultConfig returns a config with sane defaults.
func DefaultConfig() Config {
	return Config{
		ListenPort:      8080,
		CacheMaxSize:    128,
		ImageFailClosed: false,
		MaxUploadBytes:  10 << 20,
		LogLevel:        "INFO",
		Provider: ProviderConfig{
			Endpoint:       "https://api.groq.com/openai/v1",
			Model:          "meta-llama/llama-4-scout-17b-16e-instruct",
			TimeoutSeconds: 30,
			MaxTokens:      4096,
		},
		Budget: BudgetConfig{
			DailyBudgetUSD:     10.00,
			MaxCallsPerHour:    60,
			MaxConcurrentCalls: 3,
		},
	}
}

// LoadConfig loads configuration from a YAML file with env overrides.
// A .env file in the working directory is loaded first, if present.
func LoadConfig(path string) (*Config, error) {
	godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_PORT: %w", err)
		}
		cfg.ListenPort = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv("PROVIDER_ENDPOINT"); v != "" {
		cfg.Provider.Endpoint = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("AUDIT_DATABASE_URL"); v != "" {
		cfg.AuditDatabaseURL = v
	}

	// Validate required fields
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("provider.api_key is required (or PROVIDER_API_KEY env)")
	}
	if cfg.Provider.Endpoint == "" {
		return nil, fmt.Errorf("provider.endpoint is required")
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return nil, fmt.Errorf("listen_port out of range: %d", cfg.ListenPort)
	}
	if cfg.CacheMaxSize < 1 {
		cfg.CacheMaxSize = 1
	}
	if cfg.Provider.TimeoutSeconds < 1 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.MaxUploadBytes < 1 {
		cfg.MaxUploadBytes = 10 << 20
	}

	return &cfg, nil
}
