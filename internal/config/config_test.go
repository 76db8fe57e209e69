package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/pipeline"
	"github.com/ironsheep/cellcount/internal/report"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Detection != detection.DefaultScaleSearchParams() {
		t.Errorf("unexpected detection defaults: %+v", cfg.Detection)
	}
	if cfg.Calibration.PixelsPerMicron != pipeline.DefaultPixelsPerMicron {
		t.Errorf("unexpected calibration: %v", cfg.Calibration.PixelsPerMicron)
	}
	if cfg.Input.Pattern != "*.tif" || cfg.Output.Format != report.FormatCSV || cfg.Log.Level != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Error("missing file should yield the defaults")
	}

	cfg, err = Load("")
	if err != nil || *cfg != *DefaultConfig() {
		t.Errorf("empty path should yield the defaults, got %v", err)
	}
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellcount.yaml")
	data := `
detection:
  maxScale: 12
  excludeBorder: true
calibration:
  pixelsPerMicron: 2.25
processing:
  workers: 3
  imageTimeout: 90s
output:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.MaxScale != 12 || !cfg.Detection.ExcludeBorder {
		t.Errorf("detection not loaded: %+v", cfg.Detection)
	}
	if cfg.Detection.MinScale != 1 || cfg.Detection.NumScales != 10 {
		t.Errorf("unset fields should keep defaults: %+v", cfg.Detection)
	}
	if cfg.Calibration.PixelsPerMicron != 2.25 {
		t.Errorf("calibration: %v", cfg.Calibration.PixelsPerMicron)
	}
	if cfg.Processing.Workers != 3 || cfg.Processing.ImageTimeout != 90*time.Second {
		t.Errorf("processing: %+v", cfg.Processing)
	}
	if cfg.Output.Format != report.FormatJSON || cfg.Input.Pattern != "*.tif" {
		t.Errorf("output/input: %+v %+v", cfg.Output, cfg.Input)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("detection: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cellcount.yaml")

	cfg := DefaultConfig()
	cfg.Detection.LogScaleSearch = true
	cfg.Calibration.PixelsPerMicron = 0.65
	cfg.Input.Dir = "/data/slides"
	cfg.Input.Limit = 7
	cfg.Processing.ImageTimeout = 2 * time.Minute
	cfg.Output.OverlayDir = "qa"
	cfg.Output.Overlay.Labels = true
	cfg.Log.Console = false

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, *cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPixelsPerMicron, "3.5")
	t.Setenv(EnvWorkers, "6")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPattern, "*.png")
	t.Setenv(EnvImageTimeout, "45s")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Calibration.PixelsPerMicron != 3.5 {
		t.Errorf("pixels per micron: %v", cfg.Calibration.PixelsPerMicron)
	}
	if cfg.Processing.Workers != 6 || cfg.Processing.ImageTimeout != 45*time.Second {
		t.Errorf("processing: %+v", cfg.Processing)
	}
	if cfg.Log.Level != "debug" || cfg.Input.Pattern != "*.png" {
		t.Errorf("log/input: %q %q", cfg.Log.Level, cfg.Input.Pattern)
	}
}

func TestApplyEnv_Unparsable(t *testing.T) {
	t.Setenv(EnvPixelsPerMicron, "lots")
	t.Setenv(EnvWorkers, "many")
	t.Setenv(EnvImageTimeout, "soon")

	cfg := DefaultConfig()
	cfg.Processing.Workers = 2
	cfg.ApplyEnv()

	if cfg.Calibration.PixelsPerMicron != pipeline.DefaultPixelsPerMicron || cfg.Processing.Workers != 2 || cfg.Processing.ImageTimeout != 0 {
		t.Errorf("unparsable values should be ignored: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(EnvWorkers+"=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Registers cleanup that restores the variable after the test.
	t.Setenv(EnvWorkers, "")
	os.Unsetenv(EnvWorkers)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Processing.Workers != 9 {
		t.Errorf("expected workers from .env, got %d", cfg.Processing.Workers)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		is     error
	}{
		{"detection", func(c *Config) { c.Detection.NumScales = 0 }, detection.ErrInvalidParameters},
		{"calibration", func(c *Config) { c.Calibration.PixelsPerMicron = 0 }, nil},
		{"limit", func(c *Config) { c.Input.Limit = -1 }, nil},
		{"pattern", func(c *Config) { c.Input.Pattern = "[" }, nil},
		{"workers", func(c *Config) { c.Processing.Workers = -1 }, nil},
		{"timeout", func(c *Config) { c.Processing.ImageTimeout = -time.Second }, nil},
		{"format", func(c *Config) { c.Output.Format = "xlsx" }, report.ErrUnknownFormat},
		{"overlay", func(c *Config) { c.Output.OverlayDir = "qa"; c.Output.Overlay.CircleColor = "red" }, nil},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.Workers = 4
	cfg.Processing.ImageTimeout = time.Minute
	cfg.Output.OverlayDir = "qa"

	opts := cfg.PipelineOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("options should validate: %v", err)
	}
	if opts.Workers != 4 || opts.ImageTimeout != time.Minute || opts.OverlayDir != "qa" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.Params != cfg.Detection || opts.Calibration != cfg.Calibration {
		t.Error("detection settings not carried over")
	}
}
