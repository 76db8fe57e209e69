package measurement

import (
	"fmt"
	"image"

	"github.com/ironsheep/cellcount/internal/detection"
)

// MinCellRadius is the smallest blob radius, in pixels, counted as a cell.
// Blobs with radius <= MinCellRadius are treated as noise. The value was
// tuned on the original imaging setup and should be confirmed for other
// magnifications.
const MinCellRadius = 2.0

// TissueIntensityThreshold separates tissue from slide background: pixels
// with intensity strictly greater than this value count as tissue.
const TissueIntensityThreshold = 1

// CellMeasurement holds the inputs of one image's measurement and derives
// every metric from them on demand.
//
// A CellMeasurement is immutable after New returns. Accessors never modify
// it and may be called in any order or concurrently.
type CellMeasurement struct {
	img   *image.Gray
	blobs detection.BlobSet
	cal   Calibration
}

// New builds the measurement for one image.
//
// Parameters:
//   - img: The single-channel 8-bit image the blobs were detected in.
//   - blobs: The raw detection result. Blobs with radius <= MinCellRadius are
//     dropped here, once; the caller's slice is not modified.
//   - cal: Pixel calibration. Must be finite and > 0.
//
// Returns:
//   - *CellMeasurement: The measurement.
//   - error: Wraps ErrInvalidCalibration or detection.ErrInvalidImage.
func New(img image.Image, blobs detection.BlobSet, cal Calibration) (*CellMeasurement, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if err := detection.CheckImage(img); err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}

	return &CellMeasurement{
		img:   img.(*image.Gray),
		blobs: blobs.FilterMinRadius(MinCellRadius),
		cal:   cal,
	}, nil
}

// Blobs returns a copy of the filtered blobs that count as cells.
func (m *CellMeasurement) Blobs() detection.BlobSet {
	return append(detection.BlobSet(nil), m.blobs...)
}

// CellCount returns the number of filtered blobs.
func (m *CellMeasurement) CellCount() int {
	return len(m.blobs)
}

// Calibration returns the calibration the measurement was built with.
func (m *CellMeasurement) Calibration() Calibration {
	return m.cal
}

// Width returns the image width in pixels.
func (m *CellMeasurement) Width() int {
	return m.img.Bounds().Dx()
}

// Height returns the image height in pixels.
func (m *CellMeasurement) Height() int {
	return m.img.Bounds().Dy()
}

// ImageAreaUM2 returns the full image area in µm².
func (m *CellMeasurement) ImageAreaUM2() float64 {
	return float64(m.Width()*m.Height()) * m.cal.PixelAreaUM2()
}

// TissuePixelCount returns the number of pixels brighter than
// TissueIntensityThreshold.
func (m *CellMeasurement) TissuePixelCount() int {
	b := m.img.Bounds()
	w := b.Dx()
	count := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := m.img.PixOffset(b.Min.X, y)
		for _, v := range m.img.Pix[off : off+w] {
			if v > TissueIntensityThreshold {
				count++
			}
		}
	}
	return count
}

// TissueAreaUM2 returns the tissue area in µm², estimated by counting pixels
// above TissueIntensityThreshold.
func (m *CellMeasurement) TissueAreaUM2() float64 {
	return float64(m.TissuePixelCount()) * m.cal.PixelAreaUM2()
}

// CellsPerUM2 returns the cell density per µm² of tissue. It is 0 when the
// image has no tissue.
func (m *CellMeasurement) CellsPerUM2() float64 {
	return density(m.CellCount(), m.TissueAreaUM2())
}

// CellsPerMM2 returns the cell density per mm² of tissue. It is 0 when the
// image has no tissue.
func (m *CellMeasurement) CellsPerMM2() float64 {
	return m.CellsPerUM2() * 1e6
}

// PercentTissueOfImage returns the share of the image covered by tissue, in
// percent. It is 0 for an image with zero area.
func (m *CellMeasurement) PercentTissueOfImage() float64 {
	return percentOf(m.TissueAreaUM2(), m.ImageAreaUM2())
}

// Summary is a plain snapshot of every metric of a CellMeasurement, suitable
// for serialization.
type Summary struct {
	CellCount            int     `json:"cell_count" yaml:"cellCount"`
	Width                int     `json:"width" yaml:"width"`
	Height               int     `json:"height" yaml:"height"`
	PixelsPerMicron      float64 `json:"pixels_per_micron" yaml:"pixelsPerMicron"`
	ImageAreaUM2         float64 `json:"image_area_um2" yaml:"imageAreaUm2"`
	TissuePixelCount     int     `json:"tissue_pixel_count" yaml:"tissuePixelCount"`
	TissueAreaUM2        float64 `json:"tissue_area_um2" yaml:"tissueAreaUm2"`
	CellsPerUM2          float64 `json:"cells_per_um2" yaml:"cellsPerUm2"`
	CellsPerMM2          float64 `json:"cells_per_mm2" yaml:"cellsPerMm2"`
	PercentTissueOfImage float64 `json:"percent_tissue_of_image" yaml:"percentTissueOfImage"`
}

// Snapshot evaluates every accessor once and returns the values.
func (m *CellMeasurement) Snapshot() Summary {
	tissuePixels := m.TissuePixelCount()
	tissueArea := float64(tissuePixels) * m.cal.PixelAreaUM2()
	imageArea := m.ImageAreaUM2()
	perUM2 := density(m.CellCount(), tissueArea)

	return Summary{
		CellCount:            m.CellCount(),
		Width:                m.Width(),
		Height:               m.Height(),
		PixelsPerMicron:      m.cal.PixelsPerMicron,
		ImageAreaUM2:         imageArea,
		TissuePixelCount:     tissuePixels,
		TissueAreaUM2:        tissueArea,
		CellsPerUM2:          perUM2,
		CellsPerMM2:          perUM2 * 1e6,
		PercentTissueOfImage: percentOf(tissueArea, imageArea),
	}
}

func density(count int, areaUM2 float64) float64 {
	if areaUM2 <= 0 {
		return 0
	}
	return float64(count) / areaUM2
}

func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * part / whole
}
