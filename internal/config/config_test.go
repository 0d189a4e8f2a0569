package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{EnvDataDir, EnvLogLevel, EnvLogFormat, EnvMaxAttempts} {
		t.Setenv(k, "")
	}
}

// validConfigYAML is a minimal valid configuration.
const validConfigYAML = `
pipeline:
  data_dir: "./lake"
  retry:
    max_attempts: 3
    backoff_base: 2.0
    timeout_sec: 10
  logging:
    level: "debug"
    format: "json"
datasets:
  - name: "energy_metrics"
    url: "https://api.example.com/v1/metrics"
    record_path: "data.records"
    params:
      province: "BC"
    enabled: true
  - name: "water_usage"
    url: "https://api.example.com/v1/water"
    enabled: false
`

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Datasets = []DatasetConfig{
		{Name: "energy_metrics", URL: "https://api.example.com/v1/metrics", Enabled: true},
	}

	return cfg
}

func TestLoadConfig_Valid(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pipeline.DataDir != "./lake" {
		t.Errorf("DataDir = %q, want ./lake", cfg.Pipeline.DataDir)
	}

	if len(cfg.Datasets) != 2 {
		t.Fatalf("Expected 2 datasets, got %d", len(cfg.Datasets))
	}

	ds := cfg.Datasets[0]
	if ds.RecordPath != "data.records" || ds.Params["province"] != "BC" {
		t.Errorf("unexpected dataset: %+v", ds)
	}

	if cfg.Pipeline.Retry.MaxAttempts != 3 || cfg.Pipeline.Retry.BackoffBase != 2.0 {
		t.Errorf("unexpected retry policy: %+v", cfg.Pipeline.Retry)
	}
}

func TestLoadConfig_DefaultsFillGaps(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(createTempConfigFile(t, "datasets: []\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pipeline.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.Pipeline.DataDir)
	}

	if cfg.Pipeline.Retry != DefaultRetryPolicy() {
		t.Errorf("Retry = %+v, want defaults", cfg.Pipeline.Retry)
	}
}

func TestLoadConfig_MixedCaseLogging(t *testing.T) {
	clearEnv(t)

	content := "pipeline:\n  logging:\n    level: INFO\n    format: Text\ndatasets: []\n"

	cfg, err := LoadConfig(createTempConfigFile(t, content))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pipeline.Logging.Level != "INFO" {
		t.Errorf("Level = %q, want INFO", cfg.Pipeline.Logging.Level)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/srv/lake")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvLogFormat, "")
	t.Setenv(EnvMaxAttempts, "7")

	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pipeline.DataDir != "/srv/lake" {
		t.Errorf("DataDir = %q, want /srv/lake", cfg.Pipeline.DataDir)
	}

	if cfg.Pipeline.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Pipeline.Logging.Level)
	}

	if cfg.Pipeline.Retry.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.Pipeline.Retry.MaxAttempts)
	}
}

func TestLoadConfig_EnvInvalidMaxAttempts(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxAttempts, "many")

	_, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	if !errors.Is(err, ErrInvalidEnvMaxAttempts) {
		t.Fatalf("err = %v, want ErrInvalidEnvMaxAttempts", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}

	if cfg.Pipeline.DataDir != "data" || cfg.Pipeline.Logging.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg.Pipeline)
	}

	cfg, err = LoadOrDefault(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadOrDefault with file failed: %v", err)
	}

	if len(cfg.Datasets) != 2 {
		t.Errorf("Expected 2 datasets, got %d", len(cfg.Datasets))
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("SEDP_DATA_DIR=/from/dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// godotenv does not override variables that are already set.
	if err := os.Unsetenv(EnvDataDir); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv(EnvDataDir); got != "/from/dotenv" {
		t.Errorf("%s = %q, want /from/dotenv", EnvDataDir, got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no datasets is valid", func(c *Config) { c.Datasets = nil }, nil},
		{"missing data dir", func(c *Config) { c.Pipeline.DataDir = "" }, ErrMissingDataDir},
		{"zero attempts", func(c *Config) { c.Pipeline.Retry.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"backoff below one", func(c *Config) { c.Pipeline.Retry.BackoffBase = 0.5 }, ErrInvalidBackoffBase},
		{"negative max delay", func(c *Config) { c.Pipeline.Retry.MaxDelaySec = -1 }, ErrInvalidMaxDelay},
		{"zero timeout", func(c *Config) { c.Pipeline.Retry.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"bad log level", func(c *Config) { c.Pipeline.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Pipeline.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"upper case log level", func(c *Config) { c.Pipeline.Logging.Level = "INFO" }, nil},
		{"warning log level", func(c *Config) { c.Pipeline.Logging.Level = "Warning" }, nil},
		{"upper case log format", func(c *Config) { c.Pipeline.Logging.Format = "JSON" }, nil},
		{"dataset without name", func(c *Config) { c.Datasets[0].Name = "" }, ErrDatasetMissingName},
		{"dataset with slash", func(c *Config) { c.Datasets[0].Name = "a/b" }, ErrDatasetInvalidName},
		{"dataset without url", func(c *Config) { c.Datasets[0].URL = "" }, ErrDatasetMissingURL},
		{"dataset with relative url", func(c *Config) { c.Datasets[0].URL = "/v1/metrics" }, ErrDatasetInvalidURL},
		{"duplicate dataset", func(c *Config) { c.Datasets = append(c.Datasets, c.Datasets[0]) }, ErrDuplicateDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate returned unexpected error: %v", err)
				}

				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// --- RetryPolicy Tests ---

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	rp := RetryPolicy{BackoffBase: 1.5}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 1500 * time.Millisecond},
		{3, 2250 * time.Millisecond},
		{0, time.Second},
	}

	for _, tt := range tests {
		if got := rp.GetRetryDelay(tt.attempt); got != tt.expected {
			t.Errorf("GetRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestRetryPolicy_GetRetryDelay_Capped(t *testing.T) {
	rp := RetryPolicy{BackoffBase: 2.0, MaxDelaySec: 3}

	if got := rp.GetRetryDelay(2); got != 2*time.Second {
		t.Errorf("GetRetryDelay(2) = %v, want 2s", got)
	}

	if got := rp.GetRetryDelay(5); got != 3*time.Second {
		t.Errorf("GetRetryDelay(5) = %v, want capped 3s", got)
	}
}

func TestRetryPolicy_GetRetryDelay_Saturates(t *testing.T) {
	rp := RetryPolicy{BackoffBase: 10}

	for _, attempt := range []int{20, 400} {
		if got := rp.GetRetryDelay(attempt); got != time.Duration(math.MaxInt64) {
			t.Errorf("GetRetryDelay(%d) = %v, want max duration", attempt, got)
		}
	}

	if got := rp.GetRetryDelay(10); got != 1e9*time.Second {
		t.Errorf("GetRetryDelay(10) = %v, want 1e9s", got)
	}
}

func TestRetryPolicy_GetTimeout(t *testing.T) {
	rp := RetryPolicy{TimeoutSec: 30}
	expected := 30 * time.Second

	if got := rp.GetTimeout(); got != expected {
		t.Errorf("GetTimeout() = %v, want %v", got, expected)
	}
}

// --- Config Helper Method Tests ---

func TestConfig_GetEnabledSources(t *testing.T) {
	cfg := &Config{
		Datasets: []DatasetConfig{
			{Name: "a", Enabled: true},
			{Name: "b", Enabled: false},
			{Name: "c", Enabled: true},
		},
	}

	enabled := cfg.GetEnabledSources()
	if len(enabled) != 2 {
		t.Fatalf("Expected 2 enabled datasets, got %d", len(enabled))
	}
}

func TestConfig_GetDataset(t *testing.T) {
	cfg := validConfig()

	ds, err := cfg.GetDataset("energy_metrics")
	if err != nil {
		t.Fatalf("GetDataset failed: %v", err)
	}

	if ds.URL != "https://api.example.com/v1/metrics" {
		t.Errorf("URL = %q", ds.URL)
	}

	if _, err := cfg.GetDataset("nope"); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("err = %v, want ErrUnknownDataset", err)
	}
}

func TestConfig_String(t *testing.T) {
	if str := validConfig().String(); str == "" {
		t.Error("Expected non-empty string representation")
	}
}

func TestConfig_SaveConfig(t *testing.T) {
	clearEnv(t)

	cfg := validConfig()
	cfg.Datasets[0].RecordPath = "data.records"

	savePath := filepath.Join(t.TempDir(), "saved_config.yaml")

	if err := cfg.SaveConfig(savePath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Datasets[0].RecordPath != "data.records" {
		t.Error("Loaded config does not match saved config")
	}
}
