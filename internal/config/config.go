package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// DefaultConfigPath is read when REPORT_CONFIG is not set and the file exists
const DefaultConfigPath = "configs/report.yaml"

// Config holds all configuration for the application
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Report     ReportConfig     `yaml:"report"`
	Tracing    TracingConfig    `yaml:"tracing"`
	History    HistoryConfig    `yaml:"history"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ReportConfig holds defaults for CLI flags
type ReportConfig struct {
	Path  string `yaml:"path"`  // --report default
	Kind  string `yaml:"kind"`  // --report-kind default
	Chart bool   `yaml:"chart"` // --chart default
}

// TracingConfig configures the OTLP exporter
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Protocol string `yaml:"protocol"` // grpc or http
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of runs traced; 0 or 1 traces every run
	SampleRatio float64 `yaml:"sample_ratio"`
}

// HistoryConfig selects where finished runs are recorded
type HistoryConfig struct {
	Backend string `yaml:"backend"` // none, bolt or sqlite
	Path    string `yaml:"path"`
}

// ClickHouseConfig configures the optional report export
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`

	// Deduplicate skips runs whose checksum is already in the table
	Deduplicate bool `yaml:"deduplicate"`

	RetryMaxAttempts    int     `yaml:"retry_max_attempts"`
	RetryInitialDelayMs int     `yaml:"retry_initial_delay_ms"`
	RetryMaxDelayMs     int     `yaml:"retry_max_delay_ms"`
	RetryMultiplier     float64 `yaml:"retry_multiplier"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Report: ReportConfig{
			Path: "report.csv",
			Kind: string(domain.KindURL),
		},
		Tracing: TracingConfig{
			Protocol: "grpc",
		},
		History: HistoryConfig{
			Backend: "none",
			Path:    "report_history.db",
		},
		ClickHouse: ClickHouseConfig{
			Host:                "localhost",
			Port:                9000,
			Database:            "logs",
			Username:            "default",
			Table:               "access_report_rows",
			RetryMaxAttempts:    3,
			RetryInitialDelayMs: 100,
			RetryMaxDelayMs:     5000,
			RetryMultiplier:     2.0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// an optional .env file and environment variables, in that order
func Load() (*Config, error) {
	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	path := os.Getenv("REPORT_CONFIG")
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			path = DefaultConfigPath
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays YAML settings on top of cfg
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides settings from environment variables
func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.Report.Path = getEnv("REPORT_PATH", c.Report.Path)
	c.Report.Kind = getEnv("REPORT_KIND", c.Report.Kind)
	c.Report.Chart = getEnvBool("REPORT_CHART", c.Report.Chart)

	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Protocol = getEnv("OTEL_PROTOCOL", c.Tracing.Protocol)
	c.Tracing.Endpoint = getEnv("OTEL_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.SampleRatio = getEnvFloat("OTEL_SAMPLE_RATIO", c.Tracing.SampleRatio)

	c.History.Backend = getEnv("HISTORY_BACKEND", c.History.Backend)
	c.History.Path = getEnv("HISTORY_PATH", c.History.Path)

	c.ClickHouse.Enabled = getEnvBool("CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.ClickHouse.Host = getEnv("CLICKHOUSE_HOST", c.ClickHouse.Host)
	c.ClickHouse.Port = getEnvInt("CLICKHOUSE_PORT", c.ClickHouse.Port)
	c.ClickHouse.Database = getEnv("CLICKHOUSE_DB", c.ClickHouse.Database)
	c.ClickHouse.Username = getEnv("CLICKHOUSE_USER", c.ClickHouse.Username)
	c.ClickHouse.Password = getEnv("CLICKHOUSE_PASSWORD", c.ClickHouse.Password)
	c.ClickHouse.Table = getEnv("CLICKHOUSE_TABLE", c.ClickHouse.Table)
	c.ClickHouse.Deduplicate = getEnvBool("CLICKHOUSE_DEDUPLICATE", c.ClickHouse.Deduplicate)
	c.ClickHouse.RetryMaxAttempts = getEnvInt("CLICKHOUSE_RETRY_MAX_ATTEMPTS", c.ClickHouse.RetryMaxAttempts)
	c.ClickHouse.RetryInitialDelayMs = getEnvInt("CLICKHOUSE_RETRY_INITIAL_DELAY_MS", c.ClickHouse.RetryInitialDelayMs)
	c.ClickHouse.RetryMaxDelayMs = getEnvInt("CLICKHOUSE_RETRY_MAX_DELAY_MS", c.ClickHouse.RetryMaxDelayMs)
	c.ClickHouse.RetryMultiplier = getEnvFloat("CLICKHOUSE_RETRY_MULTIPLIER", c.ClickHouse.RetryMultiplier)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Report.Path == "" {
		return fmt.Errorf("REPORT_PATH must not be empty")
	}
	if _, err := domain.ParseReportKind(c.Report.Kind); err != nil {
		return fmt.Errorf("REPORT_KIND: %w", err)
	}

	if c.Tracing.Enabled && c.Tracing.Protocol != "grpc" && c.Tracing.Protocol != "http" {
		return fmt.Errorf("OTEL_PROTOCOL must be grpc or http")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1")
	}

	switch c.History.Backend {
	case "none", "":
	case "bolt", "sqlite":
		if c.History.Path == "" {
			return fmt.Errorf("HISTORY_PATH is required for %s history backend", c.History.Backend)
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be none, bolt or sqlite")
	}

	if c.ClickHouse.Enabled {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required")
		}
		if c.ClickHouse.Port <= 0 || c.ClickHouse.Port > 65535 {
			return fmt.Errorf("CLICKHOUSE_PORT must be between 1 and 65535")
		}
		if c.ClickHouse.Database == "" {
			return fmt.Errorf("CLICKHOUSE_DB is required")
		}
		if c.ClickHouse.Table == "" {
			return fmt.Errorf("CLICKHOUSE_TABLE is required")
		}
		if c.ClickHouse.RetryMaxAttempts < 1 {
			return fmt.Errorf("CLICKHOUSE_RETRY_MAX_ATTEMPTS must be at least 1")
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
