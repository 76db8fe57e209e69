package pipeline

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/measurement"
	"github.com/ironsheep/cellcount/internal/overlay"
)

// DefaultPixelsPerMicron is the calibration of the scanner the tool was
// first used with. Always set the calibration of the actual instrument.
const DefaultPixelsPerMicron = 1.5

// Options configures how each image of a batch is processed.
type Options struct {
	// Params is the blob search configuration applied to every image.
	Params detection.ScaleSearchParams

	// Calibration converts pixels to µm for every image.
	Calibration measurement.Calibration

	// Workers is the number of images processed at once. 0 means
	// DefaultWorkers().
	Workers int

	// ImageTimeout bounds detection on a single image. 0 disables it.
	ImageTimeout time.Duration

	// OverlayDir, when set, receives a "<name>_overlay.png" QA figure for
	// every successfully processed image.
	OverlayDir string

	// Overlay controls how QA figures are drawn.
	Overlay overlay.Options
}

// DefaultOptions returns default detection parameters, the default
// calibration, automatic worker count and no timeout or overlays.
func DefaultOptions() Options {
	return Options{
		Params:      detection.DefaultScaleSearchParams(),
		Calibration: measurement.Calibration{PixelsPerMicron: DefaultPixelsPerMicron},
		Overlay:     overlay.DefaultOptions(),
	}
}

// Validate checks everything that would make every image of a batch fail
// the same way.
func (o Options) Validate() error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if err := o.Calibration.Validate(); err != nil {
		return err
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", o.Workers)
	}
	if o.ImageTimeout < 0 {
		return fmt.Errorf("image timeout must be >= 0, got %s", o.ImageTimeout)
	}
	if o.OverlayDir != "" {
		if err := o.Overlay.Validate(); err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
	}
	return nil
}

// EffectiveWorkers returns Workers, or DefaultWorkers() when it is 0.
func (o Options) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers()
}

// DefaultWorkers returns the number of physical CPU cores, falling back to
// the logical CPU count when it cannot be determined. Detection is
// floating-point bound, so hyper-threads add little.
func DefaultWorkers() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
