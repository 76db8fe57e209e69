package pipeline

import (
	"context"
	"errors"

	"github.com/ironsheep/cellcount/internal/detection"
	"github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/measurement"
)

// FailureKind names the reason an image could not be measured.
type FailureKind string

const (
	KindInvalidParameters  FailureKind = "InvalidParameters"
	KindInvalidImage       FailureKind = "InvalidImage"
	KindInvalidCalibration FailureKind = "InvalidCalibration"
	KindLoadFailed         FailureKind = "LoadFailed"
	KindTimeout            FailureKind = "Timeout"
	KindCanceled           FailureKind = "Canceled"
	KindUnknown            FailureKind = "Unknown"
)

// Failure records one image that produced no measurement.
type Failure struct {
	ID      string      `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Path    string      `json:"path" yaml:"path"`
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// ClassifyError maps a processing error to its FailureKind.
func ClassifyError(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, detection.ErrInvalidParameters):
		return KindInvalidParameters
	case errors.Is(err, detection.ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, measurement.ErrInvalidCalibration):
		return KindInvalidCalibration
	case errors.Is(err, imaging.ErrLoadFailed):
		return KindLoadFailed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

func newFailure(path string, err error) Failure {
	return Failure{
		ID:      measurement.SampleID(path),
		Name:    measurement.SampleName(path),
		Path:    path,
		Kind:    ClassifyError(err),
		Message: err.Error(),
	}
}
