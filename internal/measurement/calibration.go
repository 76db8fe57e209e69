package measurement

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCalibration is returned when a pixel calibration factor is not a
// finite positive number.
var ErrInvalidCalibration = errors.New("invalid calibration")

// Calibration converts pixel measurements to physical units. The scale is
// uniform and isotropic: one pixel is 1/PixelsPerMicron µm wide and tall.
type Calibration struct {
	// PixelsPerMicron is the number of pixels spanning one micrometre.
	PixelsPerMicron float64 `json:"pixels_per_micron" yaml:"pixelsPerMicron"`
}

// NewCalibration returns a validated Calibration.
func NewCalibration(pixelsPerMicron float64) (Calibration, error) {
	c := Calibration{PixelsPerMicron: pixelsPerMicron}
	if err := c.Validate(); err != nil {
		return Calibration{}, err
	}
	return c, nil
}

// Validate reports whether the calibration factor is usable. Errors wrap
// ErrInvalidCalibration.
func (c Calibration) Validate() error {
	ppm := c.PixelsPerMicron
	if math.IsNaN(ppm) || math.IsInf(ppm, 0) || ppm <= 0 {
		return fmt.Errorf("%w: pixels_per_micron must be a finite number > 0, got %g", ErrInvalidCalibration, ppm)
	}
	return nil
}

// MicronsPerPixel returns the edge length of one pixel in µm.
func (c Calibration) MicronsPerPixel() float64 {
	return 1 / c.PixelsPerMicron
}

// PixelAreaUM2 returns the area of one pixel in µm².
func (c Calibration) PixelAreaUM2() float64 {
	mpp := c.MicronsPerPixel()
	return mpp * mpp
}
