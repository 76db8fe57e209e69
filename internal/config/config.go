// Package config loads cellcount settings from a YAML file, a .env file
// and CELLCOUNT_* environment variables, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/logger"
	"github.com/ironsheep/cellcount/internal/measurement"
	"github.com/ironsheep/cellcount/internal/overlay"
	"github.com/ironsheep/cellcount/internal/pipeline"
	"github.com/ironsheep/cellcount/internal/report"
)

// Environment variables that override file values.
const (
	EnvPixelsPerMicron = "CELLCOUNT_PIXELS_PER_MICRON"
	EnvWorkers         = "CELLCOUNT_WORKERS"
	EnvLogLevel        = "CELLCOUNT_LOG_LEVEL"
	EnvPattern         = "CELLCOUNT_PATTERN"
	EnvImageTimeout    = "CELLCOUNT_IMAGE_TIMEOUT"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Blob search parameters
	Detection detection.ScaleSearchParams `yaml:"detection"`

	// Scanner calibration
	Calibration measurement.Calibration `yaml:"calibration"`

	// Input selection
	Input struct {
		// Dir is the directory scanned for images
		Dir string `yaml:"dir"`

		// Pattern is the glob matched against file names
		Pattern string `yaml:"pattern"`

		// Limit caps the number of images; 0 means no limit
		Limit int `yaml:"limit"`
	} `yaml:"input"`

	// Processing parameters
	Processing struct {
		// Workers is the number of images processed at once; 0 uses the
		// physical core count
		Workers int `yaml:"workers"`

		// ImageTimeout bounds detection per image; 0 disables it
		ImageTimeout time.Duration `yaml:"imageTimeout"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Format is csv, json or yaml
		Format string `yaml:"format"`

		// Path is the report file; empty writes to stdout
		Path string `yaml:"path"`

		// OverlayDir receives QA figures when set
		OverlayDir string `yaml:"overlayDir"`

		// Overlay controls how QA figures are drawn
		Overlay overlay.Options `yaml:"overlay"`
	} `yaml:"output"`

	// Logging parameters
	Log struct {
		// Level is one of trace, debug, info, warn, error
		Level string `yaml:"level"`

		// Console switches from JSON lines to human-readable output
		Console bool `yaml:"console"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection = detection.DefaultScaleSearchParams()
	cfg.Calibration = measurement.Calibration{PixelsPerMicron: pipeline.DefaultPixelsPerMicron}

	cfg.Input.Dir = "."
	cfg.Input.Pattern = imaging.DefaultPattern

	cfg.Output.Format = report.FormatCSV
	cfg.Output.Overlay = overlay.DefaultOptions()

	cfg.Log.Level = "info"
	cfg.Log.Console = true

	return cfg
}

// Load loads configuration from a YAML file on top of the defaults.
// If the file doesn't exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating its directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with CELLCOUNT_* environment variables.
// Unparsable values leave the current setting unchanged.
func (c *Config) ApplyEnv() {
	c.Calibration.PixelsPerMicron = getEnvAsFloat(EnvPixelsPerMicron, c.Calibration.PixelsPerMicron)
	c.Processing.Workers = getEnvAsInt(EnvWorkers, c.Processing.Workers)
	c.Processing.ImageTimeout = getEnvAsDuration(EnvImageTimeout, c.Processing.ImageTimeout)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
	c.Input.Pattern = getEnv(EnvPattern, c.Input.Pattern)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if c.Input.Limit < 0 {
		return fmt.Errorf("input: limit must be >= 0, got %d", c.Input.Limit)
	}
	if _, err := filepath.Match(c.Input.Pattern, ""); err != nil {
		return fmt.Errorf("input: invalid pattern %q: %w", c.Input.Pattern, err)
	}
	if c.Processing.Workers < 0 {
		return fmt.Errorf("processing: workers must be >= 0, got %d", c.Processing.Workers)
	}
	if c.Processing.ImageTimeout < 0 {
		return fmt.Errorf("processing: image timeout must be >= 0, got %s", c.Processing.ImageTimeout)
	}
	switch c.Output.Format {
	case report.FormatCSV, report.FormatJSON, report.FormatYAML:
	default:
		return fmt.Errorf("output: %w: %q", report.ErrUnknownFormat, c.Output.Format)
	}
	if c.Output.OverlayDir != "" {
		if err := c.Output.Overlay.Validate(); err != nil {
			return fmt.Errorf("output: overlay: %w", err)
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// PipelineOptions converts the configuration into batch options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Params:       c.Detection,
		Calibration:  c.Calibration,
		Workers:      c.Processing.Workers,
		ImageTimeout: c.Processing.ImageTimeout,
		OverlayDir:   c.Output.OverlayDir,
		Overlay:      c.Output.Overlay,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
