package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate runs the test in an empty directory with no config-related env vars
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		"REPORT_CONFIG", "LOG_LEVEL", "LOG_FILE", "REPORT_PATH", "REPORT_KIND", "REPORT_CHART",
		"TRACING_ENABLED", "OTEL_PROTOCOL", "OTEL_ENDPOINT", "OTEL_SAMPLE_RATIO", "HISTORY_BACKEND", "HISTORY_PATH",
		"CLICKHOUSE_ENABLED", "CLICKHOUSE_HOST", "CLICKHOUSE_PORT", "CLICKHOUSE_DB", "CLICKHOUSE_TABLE",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Report.Path != "report.csv" {
		t.Errorf("Report.Path = %q, want report.csv", cfg.Report.Path)
	}
	if cfg.Report.Kind != "url" {
		t.Errorf("Report.Kind = %q, want url", cfg.Report.Kind)
	}
	if cfg.History.Backend != "none" {
		t.Errorf("History.Backend = %q, want none", cfg.History.Backend)
	}
	if cfg.ClickHouse.Enabled {
		t.Error("ClickHouse export must be disabled by default")
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "custom.yaml")
	content := `
log_level: debug
report:
  path: out/daily.csv
  kind: browser
  chart: true
history:
  backend: bolt
  path: runs.db
clickhouse:
  table: reports
`
	if err := os.WriteFile(yamlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REPORT_CONFIG", yamlPath)
	t.Setenv("REPORT_KIND", "useragent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Report.Path != "out/daily.csv" || !cfg.Report.Chart {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if cfg.Report.Kind != "useragent" {
		t.Errorf("env must override YAML, got kind %q", cfg.Report.Kind)
	}
	if cfg.History.Backend != "bolt" || cfg.History.Path != "runs.db" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.ClickHouse.Table != "reports" || cfg.ClickHouse.Port != 9000 {
		t.Errorf("ClickHouse = %+v, YAML must keep unset defaults", cfg.ClickHouse)
	}
}

func TestLoad_DefaultConfigFileAndDotEnv(t *testing.T) {
	dir := isolate(t)

	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigPath), []byte("report:\n  path: from-yaml.csv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REPORT_CHART=true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// isolate set REPORT_CHART to empty, which godotenv treats as already set
	os.Unsetenv("REPORT_CHART")
	t.Cleanup(func() { os.Unsetenv("REPORT_CHART") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Report.Path != "from-yaml.csv" {
		t.Errorf("Report.Path = %q, want from-yaml.csv", cfg.Report.Path)
	}
	if !cfg.Report.Chart {
		t.Error("REPORT_CHART from .env was not applied")
	}
}

func TestLoad_DotEnvOverridesYAML(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "report.yaml")
	if err := os.WriteFile(path, []byte("report:\n  path: from-yaml.csv\n  kind: browser\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REPORT_PATH=from-dotenv.csv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REPORT_CONFIG", path)
	os.Unsetenv("REPORT_PATH")
	t.Cleanup(func() { os.Unsetenv("REPORT_PATH") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Report.Path != "from-dotenv.csv" {
		t.Errorf("Report.Path = %q, want the .env value to override YAML", cfg.Report.Path)
	}
	if cfg.Report.Kind != "browser" {
		t.Errorf("Report.Kind = %q, want browser from YAML", cfg.Report.Kind)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("report: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REPORT_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty report path", func(c *Config) { c.Report.Path = "" }, "REPORT_PATH"},
		{"bad kind", func(c *Config) { c.Report.Kind = "referrer" }, "REPORT_KIND"},
		{"bad protocol", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Protocol = "udp" }, "OTEL_PROTOCOL"},
		{"sample ratio above one", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, "OTEL_SAMPLE_RATIO"},
		{"bad history backend", func(c *Config) { c.History.Backend = "redis" }, "HISTORY_BACKEND"},
		{"history without path", func(c *Config) { c.History.Backend = "sqlite"; c.History.Path = "" }, "HISTORY_PATH"},
		{"clickhouse bad port", func(c *Config) { c.ClickHouse.Enabled = true; c.ClickHouse.Port = 70000 }, "CLICKHOUSE_PORT"},
		{"clickhouse no table", func(c *Config) { c.ClickHouse.Enabled = true; c.ClickHouse.Table = "" }, "CLICKHOUSE_TABLE"},
		{"clickhouse disabled ignores port", func(c *Config) { c.ClickHouse.Port = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_REPORT_INT", "42")
	t.Setenv("TEST_REPORT_BAD_INT", "forty")
	t.Setenv("TEST_REPORT_BOOL", "true")
	t.Setenv("TEST_REPORT_FLOAT", "1.5")

	if got := getEnvInt("TEST_REPORT_INT", 1); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("TEST_REPORT_BAD_INT", 1); got != 1 {
		t.Errorf("getEnvInt() = %d, want default 1", got)
	}
	if got := getEnvBool("TEST_REPORT_BOOL", false); !got {
		t.Error("getEnvBool() = false, want true")
	}
	if got := getEnvFloat("TEST_REPORT_FLOAT", 0); got != 1.5 {
		t.Errorf("getEnvFloat() = %v, want 1.5", got)
	}
	if got := getEnv("TEST_REPORT_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want fallback", got)
	}
}
