package detection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScaleSearchParams configures the Laplacian-of-Gaussian scale search.
//
// The zero value is not usable; start from DefaultScaleSearchParams and
// override individual fields. Values are copied into every Detect call, so
// a caller modifying its own copy never affects another run.
type ScaleSearchParams struct {
	// MinScale is the smallest Gaussian sigma searched, in pixels. Must be > 0.
	MinScale float64 `json:"min_scale" yaml:"minScale"`

	// MaxScale is the largest Gaussian sigma searched. Must be > MinScale.
	MaxScale float64 `json:"max_scale" yaml:"maxScale"`

	// NumScales is the number of sigmas sampled between MinScale and MaxScale
	// (inclusive). Must be >= 1; a single scale samples MinScale only.
	NumScales int `json:"num_scales" yaml:"numScales"`

	// ResponseThreshold is the minimum scale-normalized LoG response for a
	// candidate blob, on intensities scaled to [0,1]. Range [0,1].
	ResponseThreshold float64 `json:"response_threshold" yaml:"responseThreshold"`

	// OverlapThreshold is the disk intersection-over-union above which the
	// weaker of two blobs is discarded. Range [0,1].
	OverlapThreshold float64 `json:"overlap_threshold" yaml:"overlapThreshold"`

	// LogScaleSearch samples sigmas logarithmically instead of linearly.
	LogScaleSearch bool `json:"log_scale_search" yaml:"logScaleSearch"`

	// ExcludeBorder discards blobs whose disk extends past the image edge.
	ExcludeBorder bool `json:"exclude_border" yaml:"excludeBorder"`
}

// DefaultScaleSearchParams returns the standard search configuration:
// sigma 1 to 30 in 10 linear steps, response threshold 0.1, overlap 0.5.
func DefaultScaleSearchParams() ScaleSearchParams {
	return ScaleSearchParams{
		MinScale:          1,
		MaxScale:          30,
		NumScales:         10,
		ResponseThreshold: 0.1,
		OverlapThreshold:  0.5,
		LogScaleSearch:    false,
		ExcludeBorder:     false,
	}
}

// Validate reports whether the parameters describe a searchable scale range.
// Errors wrap ErrInvalidParameters.
func (p ScaleSearchParams) Validate() error {
	switch {
	case math.IsNaN(p.MinScale) || math.IsNaN(p.MaxScale):
		return fmt.Errorf("%w: scale bounds must be numbers", ErrInvalidParameters)
	case p.MinScale <= 0:
		return fmt.Errorf("%w: min_scale must be > 0, got %g", ErrInvalidParameters, p.MinScale)
	case p.MinScale >= p.MaxScale:
		return fmt.Errorf("%w: min_scale (%g) must be < max_scale (%g)", ErrInvalidParameters, p.MinScale, p.MaxScale)
	case math.IsInf(p.MaxScale, 0):
		return fmt.Errorf("%w: max_scale must be finite", ErrInvalidParameters)
	case p.NumScales < 1:
		return fmt.Errorf("%w: num_scales must be >= 1, got %d", ErrInvalidParameters, p.NumScales)
	}
	if !inUnitRange(p.ResponseThreshold) {
		return fmt.Errorf("%w: response_threshold must be in [0,1], got %g", ErrInvalidParameters, p.ResponseThreshold)
	}
	if !inUnitRange(p.OverlapThreshold) {
		return fmt.Errorf("%w: overlap_threshold must be in [0,1], got %g", ErrInvalidParameters, p.OverlapThreshold)
	}
	return nil
}

// Sigmas returns the sampled Gaussian scales in ascending order. The first
// element is MinScale and, when NumScales > 1, the last is MaxScale.
// It returns nil when NumScales < 1.
func (p ScaleSearchParams) Sigmas() []float64 {
	if p.NumScales < 1 {
		return nil
	}
	out := make([]float64, p.NumScales)
	if p.NumScales == 1 {
		out[0] = p.MinScale
		return out
	}
	if p.LogScaleSearch {
		floats.LogSpan(out, p.MinScale, p.MaxScale)
	} else {
		floats.Span(out, p.MinScale, p.MaxScale)
	}
	// exp(log(x)) drifts in the last bits; pin the endpoints.
	out[0] = p.MinScale
	out[len(out)-1] = p.MaxScale
	return out
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
