package measurement

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/cellcount/internal/detection"
)

// createGray returns a black w×h image.
func createGray(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// fillDisk paints a disk of the given radius centered at (row, col).
func fillDisk(img *image.Gray, row, col, radius int, v uint8) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dy, dx := y-row, x-col
			if dx*dx+dy*dy <= radius*radius {
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
}

// fillPixels sets the first n pixels (row-major) to v.
func fillPixels(img *image.Gray, n int, v uint8) {
	for i := 0; i < n && i < len(img.Pix); i++ {
		img.Pix[i] = v
	}
}

func mustCalibration(t *testing.T, ppm float64) Calibration {
	t.Helper()
	cal, err := NewCalibration(ppm)
	if err != nil {
		t.Fatalf("NewCalibration(%v): %v", ppm, err)
	}
	return cal
}

func TestNew_InvalidCalibration(t *testing.T) {
	img := createGray(10, 10)

	for _, ppm := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := New(img, nil, Calibration{PixelsPerMicron: ppm})
		if !errors.Is(err, ErrInvalidCalibration) {
			t.Errorf("ppm=%v: expected ErrInvalidCalibration, got %v", ppm, err)
		}
	}
}

func TestNew_InvalidImage(t *testing.T) {
	cal := mustCalibration(t, 1)

	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty", image.NewGray(image.Rect(0, 0, 0, 0))},
		{"rgba", image.NewRGBA(image.Rect(0, 0, 4, 4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.img, nil, cal)
			if !errors.Is(err, detection.ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestNew_FiltersSmallBlobs(t *testing.T) {
	img := createGray(20, 20)
	blobs := detection.BlobSet{
		{Row: 5, Col: 5, Radius: 5.9},
		{Row: 6, Col: 6, Radius: 1.41},
		{Row: 7, Col: 7, Radius: 2},
		{Row: 8, Col: 8, Radius: 2.01},
	}

	m, err := New(img, blobs, mustCalibration(t, 1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if m.CellCount() != 2 {
		t.Errorf("expected 2 cells, got %d", m.CellCount())
	}
	for _, b := range m.Blobs() {
		if b.Radius <= MinCellRadius {
			t.Errorf("%v should have been filtered", b)
		}
	}
	if blobs.Len() != 4 {
		t.Errorf("caller's blob set was modified: %v", blobs)
	}
}

func TestBlobs_ReturnsCopy(t *testing.T) {
	m, err := New(createGray(10, 10), detection.BlobSet{{Row: 1, Col: 1, Radius: 3}}, mustCalibration(t, 1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	b := m.Blobs()
	b[0].Row = 99

	if m.Blobs()[0].Row != 1 {
		t.Error("Blobs() exposed internal state")
	}
}

func TestAreas(t *testing.T) {
	img := createGray(30, 20)
	fillPixels(img, 150, 200)

	m, err := New(img, nil, mustCalibration(t, 2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got, want := m.ImageAreaUM2(), 600*0.25; math.Abs(got-want) > 1e-9 {
		t.Errorf("ImageAreaUM2 = %v, want %v", got, want)
	}
	if got := m.TissuePixelCount(); got != 150 {
		t.Errorf("TissuePixelCount = %d, want 150", got)
	}
	if got, want := m.TissueAreaUM2(), 150*0.25; math.Abs(got-want) > 1e-9 {
		t.Errorf("TissueAreaUM2 = %v, want %v", got, want)
	}
	if got := m.PercentTissueOfImage(); math.Abs(got-25) > 1e-9 {
		t.Errorf("PercentTissueOfImage = %v, want 25", got)
	}
}

func TestTissueThreshold(t *testing.T) {
	img := createGray(3, 1)
	img.Pix[0] = 1
	img.Pix[1] = 2
	img.Pix[2] = 255

	m, err := New(img, nil, mustCalibration(t, 1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := m.TissuePixelCount(); got != 2 {
		t.Errorf("intensity 1 is background; expected 2 tissue pixels, got %d", got)
	}
}

func TestTissuePixelCount_SubImage(t *testing.T) {
	img := createGray(10, 10)
	fillDisk(img, 2, 2, 1, 255)
	fillDisk(img, 7, 7, 1, 255)

	sub := img.SubImage(image.Rect(5, 5, 10, 10)).(*image.Gray)
	m, err := New(sub, nil, mustCalibration(t, 1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := m.TissuePixelCount(); got != 5 {
		t.Errorf("expected 5 tissue pixels in sub-image, got %d", got)
	}
	if m.Width() != 5 || m.Height() != 5 {
		t.Errorf("dimensions: %dx%d", m.Width(), m.Height())
	}
}

func TestDensity_NoTissue(t *testing.T) {
	// Blobs on an all-black image cannot come from detection, but must not
	// produce NaN or Inf.
	blobs := detection.BlobSet{
		{Row: 5, Col: 5, Radius: 4},
		{Row: 15, Col: 15, Radius: 4},
	}
	m, err := New(createGray(20, 20), blobs, mustCalibration(t, 1.5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if m.CellCount() != 2 {
		t.Fatalf("expected 2 cells, got %d", m.CellCount())
	}
	if m.TissueAreaUM2() != 0 {
		t.Fatalf("expected no tissue, got %v", m.TissueAreaUM2())
	}
	if m.CellsPerUM2() != 0 || m.CellsPerMM2() != 0 {
		t.Errorf("density must be 0 without tissue, got %v / %v", m.CellsPerUM2(), m.CellsPerMM2())
	}
}

func TestDensity(t *testing.T) {
	img := createGray(10, 10)
	fillPixels(img, 40, 255)
	blobs := detection.BlobSet{{Row: 1, Col: 1, Radius: 3}, {Row: 2, Col: 8, Radius: 3}}

	m, err := New(img, blobs, mustCalibration(t, 2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 40 px × 0.25 µm² = 10 µm²
	if got := m.CellsPerUM2(); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("CellsPerUM2 = %v, want 0.2", got)
	}
	if got := m.CellsPerMM2(); math.Abs(got-200000) > 1e-6 {
		t.Errorf("CellsPerMM2 = %v, want 200000", got)
	}
}

func TestPercentTissue_MonotonicAndBounded(t *testing.T) {
	cal := mustCalibration(t, 1.5)
	prev := -1.0

	for n := 0; n <= 64; n += 8 {
		img := createGray(8, 8)
		fillPixels(img, n, 128)

		m, err := New(img, nil, cal)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		got := m.PercentTissueOfImage()
		if got < 0 || got > 100 {
			t.Errorf("n=%d: percent out of range: %v", n, got)
		}
		if got < prev {
			t.Errorf("n=%d: percent decreased from %v to %v", n, prev, got)
		}
		prev = got
	}
	if math.Abs(prev-100) > 1e-9 {
		t.Errorf("fully covered image should be 100%%, got %v", prev)
	}
}

func TestAccessors_OrderIndependent(t *testing.T) {
	img := createGray(40, 40)
	fillDisk(img, 20, 20, 6, 180)
	blobs := detection.BlobSet{{Row: 20, Col: 20, Radius: 6}}

	m, err := New(img, blobs, mustCalibration(t, 1.5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first := m.Snapshot()
	_ = m.PercentTissueOfImage()
	_ = m.CellsPerMM2()
	_ = m.Blobs()
	second := m.Snapshot()

	if first != second {
		t.Errorf("snapshot changed between reads:\n%+v\n%+v", first, second)
	}
	if first.CellsPerMM2 != m.CellsPerMM2() || first.TissueAreaUM2 != m.TissueAreaUM2() {
		t.Errorf("snapshot disagrees with accessors: %+v", first)
	}
}

func TestEndToEnd_SingleDisk(t *testing.T) {
	img := createGray(100, 100)
	fillDisk(img, 50, 50, 5, 255)

	blobs, err := detection.Detect(img, detection.DefaultScaleSearchParams())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	m, err := New(img, blobs, mustCalibration(t, 1.5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if m.CellCount() != 1 {
		t.Fatalf("expected 1 cell, got %d: %v", m.CellCount(), m.Blobs())
	}
	b := m.Blobs()[0]
	if math.Abs(float64(b.Row)-50) > 1 || math.Abs(float64(b.Col)-50) > 1 || math.Abs(b.Radius-5) > 1 {
		t.Errorf("unexpected cell: %v", b)
	}

	geometric := math.Pi * 25 / (1.5 * 1.5)
	if got := m.TissueAreaUM2(); math.Abs(got-geometric)/geometric > 0.1 {
		t.Errorf("TissueAreaUM2 = %v, want ≈ %v", got, geometric)
	}
	if m.CellsPerUM2() <= 0 {
		t.Errorf("expected nonzero density, got %v", m.CellsPerUM2())
	}
}

func TestEndToEnd_BlackImage(t *testing.T) {
	img := createGray(50, 50)

	blobs, err := detection.Detect(img, detection.DefaultScaleSearchParams())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	m, err := New(img, blobs, mustCalibration(t, 1.5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s := m.Snapshot()
	if s.CellCount != 0 || s.TissueAreaUM2 != 0 || s.CellsPerUM2 != 0 || s.CellsPerMM2 != 0 || s.PercentTissueOfImage != 0 {
		t.Errorf("expected all-zero metrics, got %+v", s)
	}
	if s.ImageAreaUM2 <= 0 {
		t.Errorf("image area should be positive, got %v", s.ImageAreaUM2)
	}
}
