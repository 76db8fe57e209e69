package detection

import "errors"

var (
	// ErrInvalidParameters is returned when a ScaleSearchParams value cannot
	// drive a scale search.
	ErrInvalidParameters = errors.New("invalid scale search parameters")

	// ErrInvalidImage is returned for nil, empty, or multi-channel images.
	ErrInvalidImage = errors.New("invalid image")
)
