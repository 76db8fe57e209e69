package detection

import (
	"fmt"
	"image"
	"math"
)

// Blob is a detected bright, roughly circular region: a cell candidate.
//
// Row and Col are 0-based pixel indices (Row = y, Col = x) relative to the
// image's top-left corner.
type Blob struct {
	// Row is the vertical pixel position of the blob center.
	Row int `json:"row"`

	// Col is the horizontal pixel position of the blob center.
	Col int `json:"col"`

	// Radius is the blob radius in pixels, always Sigma × √2.
	Radius float64 `json:"radius"`

	// Sigma is the Gaussian scale at which the response peaked.
	Sigma float64 `json:"sigma"`

	// Response is the scale-normalized LoG response at the peak.
	Response float64 `json:"response"`
}

// RadiusFromSigma converts a LoG detection scale to the radius of the disk
// that maximizes the response at that scale.
func RadiusFromSigma(sigma float64) float64 {
	return sigma * math.Sqrt2
}

// Bounds returns the axis-aligned box enclosing the blob's disk.
func (b Blob) Bounds() image.Rectangle {
	r := int(math.Ceil(b.Radius))
	return image.Rect(b.Col-r, b.Row-r, b.Col+r+1, b.Row+r+1)
}

func (b Blob) String() string {
	return fmt.Sprintf("blob(row=%d col=%d r=%.2f)", b.Row, b.Col, b.Radius)
}

// BlobSet is the ordered result of one detection run, strongest response
// first. An empty set means nothing was detected.
type BlobSet []Blob

// Len returns the number of blobs.
func (s BlobSet) Len() int {
	return len(s)
}

// FilterMinRadius returns the blobs whose radius is strictly greater than
// minRadius, preserving order. The receiver is not modified, and applying
// the same filter again yields an equal set.
func (s BlobSet) FilterMinRadius(minRadius float64) BlobSet {
	out := make(BlobSet, 0, len(s))
	for _, b := range s {
		if b.Radius > minRadius {
			out = append(out, b)
		}
	}
	return out
}

// Radii returns the radius of every blob in order.
func (s BlobSet) Radii() []float64 {
	radii := make([]float64, len(s))
	for i, b := range s {
		radii[i] = b.Radius
	}
	return radii
}
