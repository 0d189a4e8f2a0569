// Package config provides configuration management for the pipeline commands.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bashoori/sustainable-energy-data-platform/pkg/utils"
)

// Environment variables that override file values.
const (
	EnvDataDir     = "SEDP_DATA_DIR"
	EnvLogLevel    = "SEDP_LOG_LEVEL"
	EnvLogFormat   = "SEDP_LOG_FORMAT"
	EnvMaxAttempts = "SEDP_MAX_ATTEMPTS"
)

// Configuration validation errors.
var (
	ErrMissingDataDir        = errors.New("pipeline.data_dir is required")
	ErrInvalidMaxAttempts    = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidBackoffBase    = errors.New("retry.backoff_base must be >= 1.0")
	ErrInvalidMaxDelay       = errors.New("retry.max_delay_sec must be non-negative")
	ErrInvalidTimeout        = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'text' or 'json'")
	ErrDatasetMissingName    = errors.New("dataset name is required")
	ErrDatasetInvalidName    = errors.New("dataset name must not contain path separators")
	ErrDatasetMissingURL     = errors.New("dataset url is required")
	ErrDatasetInvalidURL     = errors.New("dataset url must be an absolute http(s) URL")
	ErrDuplicateDataset      = errors.New("dataset name is declared more than once")
	ErrUnknownDataset        = errors.New("dataset not found in configuration")
	ErrInvalidEnvMaxAttempts = errors.New(EnvMaxAttempts + " must be an integer")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Datasets []DatasetConfig `yaml:"datasets"`
}

// PipelineConfig contains settings shared by every dataset.
type PipelineConfig struct {
	DataDir string        `yaml:"data_dir"`
	Logging LoggingConfig `yaml:"logging"`
	Retry   RetryPolicy   `yaml:"retry"`
}

// DatasetConfig describes one API-backed dataset.
type DatasetConfig struct {
	Params     map[string]string `yaml:"params"`
	Name       string            `yaml:"name"`
	URL        string            `yaml:"url"`
	RecordPath string            `yaml:"record_path"`
	Enabled    bool              `yaml:"enabled"`
}

// RetryPolicy defines retry behavior for API acquisition.
type RetryPolicy struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BackoffBase float64 `yaml:"backoff_base"`
	MaxDelaySec float64 `yaml:"max_delay_sec"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with no datasets and default settings.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DataDir: "data",
			Retry:   DefaultRetryPolicy(),
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// DefaultRetryPolicy returns 4 attempts, base 1.5 backoff and a 30s timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BackoffBase: 1.5,
		TimeoutSec:  30,
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is set, otherwise the defaults with
// environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string

	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}

	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with SEDP_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Pipeline.DataDir = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Pipeline.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Pipeline.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidEnvMaxAttempts, v)
		}

		c.Pipeline.Retry.MaxAttempts = n
	}

	return nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.DataDir == "" {
		return ErrMissingDataDir
	}

	if err := c.Pipeline.Retry.Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Pipeline.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	if f := strings.ToLower(c.Pipeline.Logging.Format); f != "" && f != "text" && f != "json" {
		return ErrInvalidLogFormat
	}

	seen := make(map[string]bool, len(c.Datasets))

	for i, ds := range c.Datasets {
		if err := ds.Validate(); err != nil {
			return fmt.Errorf("%w: datasets[%d]", err, i)
		}

		if seen[ds.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateDataset, ds.Name)
		}

		seen[ds.Name] = true
	}

	return nil
}

// Validate checks a single dataset definition.
func (d *DatasetConfig) Validate() error {
	if d.Name == "" {
		return ErrDatasetMissingName
	}

	if strings.ContainsAny(d.Name, `/\`) || d.Name == "." || d.Name == ".." {
		return ErrDatasetInvalidName
	}

	if d.URL == "" {
		return ErrDatasetMissingURL
	}

	if !utils.NewHTTPHelper().IsValidURL(d.URL) {
		return ErrDatasetInvalidURL
	}

	return nil
}

// Validate checks the retry policy bounds.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.BackoffBase < 1.0 {
		return ErrInvalidBackoffBase
	}

	if rp.MaxDelaySec < 0 {
		return ErrInvalidMaxDelay
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// GetEnabledSources returns only enabled datasets.
func (c *Config) GetEnabledSources() []DatasetConfig {
	var enabled []DatasetConfig

	for _, ds := range c.Datasets {
		if ds.Enabled {
			enabled = append(enabled, ds)
		}
	}

	return enabled
}

// GetDataset returns the named dataset definition.
func (c *Config) GetDataset(name string) (DatasetConfig, error) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, nil
		}
	}

	return DatasetConfig{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
}

// GetRetryDelay returns the sleep before the attempt that follows attempt
// (1-indexed): BackoffBase^(attempt-1) seconds, capped at MaxDelaySec when set.
// Delays beyond the range of time.Duration saturate at its maximum.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	seconds := math.Pow(rp.BackoffBase, float64(attempt-1))

	if rp.MaxDelaySec > 0 && seconds > rp.MaxDelaySec {
		seconds = rp.MaxDelaySec
	}

	nanos := seconds * float64(time.Second)
	if math.IsInf(nanos, 0) || nanos >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(nanos)
}

// GetTimeout returns the per-request timeout.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Datasets: %d, MaxAttempts: %d, DataDir: %s}",
		len(c.Datasets),
		c.Pipeline.Retry.MaxAttempts,
		c.Pipeline.DataDir,
	)
}
