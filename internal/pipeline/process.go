package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/measurement"
)

// Result is the measurement of one image together with its identifiers.
type Result struct {
	// ID is the sample identifier derived from the file name.
	ID string `json:"id" yaml:"id"`

	// Name is the file name without extension.
	Name string `json:"name" yaml:"name"`

	// Path is the source file path.
	Path string `json:"path" yaml:"path"`

	// RawBlobCount is the number of blobs before the minimum radius filter.
	RawBlobCount int `json:"raw_blob_count" yaml:"rawBlobCount"`

	// Params are the detection parameters the image was processed with.
	Params detection.ScaleSearchParams `json:"params" yaml:"params"`

	// Metrics is a snapshot of every measurement value.
	Metrics measurement.Summary `json:"metrics" yaml:"metrics"`

	// Measurement gives access to the filtered blobs and accessors.
	Measurement *measurement.CellMeasurement `json:"-" yaml:"-"`
}

// ProcessImage measures one already decoded image.
//
// Parameters:
//   - ctx: Cancels detection between scales. Combined with
//     opts.ImageTimeout when that is set.
//   - path: Source path, used for identifiers only.
//   - raw: Decoded image in any color model; converted with
//     imaging.ToGray8.
//   - opts: Detection parameters and calibration.
//
// Returns:
//   - *Result: The measurement and identifiers.
//   - error: Wraps the detection, measurement or context error; use
//     ClassifyError to map it to a FailureKind.
func ProcessImage(ctx context.Context, path string, raw image.Image, opts Options) (*Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("%s: %w: nil image", path, detection.ErrInvalidImage)
	}
	if err := opts.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	gray := imaging.ToGray8(raw)

	if opts.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ImageTimeout)
		defer cancel()
	}

	blobs, err := detection.DetectContext(ctx, gray, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m, err := measurement.New(gray, blobs, opts.Calibration)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Result{
		ID:           measurement.SampleID(path),
		Name:         measurement.SampleName(path),
		Path:         path,
		RawBlobCount: blobs.Len(),
		Params:       opts.Params,
		Metrics:      m.Snapshot(),
		Measurement:  m,
	}, nil
}
