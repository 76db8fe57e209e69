package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createQuadrantImage creates an image with red, green, blue and white quadrants.
func createQuadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createQuadrantImage(100, 100)

	cropped, err := Crop(img, image.Rect(50, 0, 100, 50), 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if cropped.Bounds().Dx() != 50 || cropped.Bounds().Dy() != 50 {
		t.Errorf("dimensions: got %v, want 50x50", cropped.Bounds())
	}
	if c := cropped.NRGBAAt(25, 25); c.G != 255 || c.R != 0 {
		t.Errorf("expected green quadrant, got %v", c)
	}
}

func TestCrop_Scale(t *testing.T) {
	img := createQuadrantImage(100, 100)

	tests := []struct {
		name         string
		region       image.Rectangle
		scale        float64
		wantW, wantH int
	}{
		{"up", image.Rect(0, 0, 50, 50), 2, 100, 100},
		{"down", image.Rect(0, 0, 100, 100), 0.5, 50, 50},
		{"zero keeps size", image.Rect(0, 0, 40, 30), 0, 40, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cropped, err := Crop(img, tt.region, tt.scale)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if cropped.Bounds().Dx() != tt.wantW || cropped.Bounds().Dy() != tt.wantH {
				t.Errorf("got %v, want %dx%d", cropped.Bounds(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createQuadrantImage(100, 100)

	tests := []struct {
		name   string
		region image.Rectangle
	}{
		{"x1 negative", image.Rect(-1, 0, 50, 50)},
		{"x2 too large", image.Rect(0, 0, 101, 50)},
		{"y2 too large", image.Rect(0, 0, 50, 101)},
		{"empty", image.Rect(10, 10, 10, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.region, 1); err == nil {
				t.Errorf("Crop should fail for %v", tt.region)
			}
		})
	}
}

func TestNamedRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name string
		want image.Rectangle
	}{
		{"full", bounds},
		{"top-left", image.Rect(0, 0, 50, 40)},
		{"top-right", image.Rect(50, 0, 100, 40)},
		{"bottom-left", image.Rect(0, 40, 50, 80)},
		{"bottom-right", image.Rect(50, 40, 100, 80)},
		{"top-half", image.Rect(0, 0, 100, 40)},
		{"bottom-half", image.Rect(0, 40, 100, 80)},
		{"left-half", image.Rect(0, 0, 50, 80)},
		{"right-half", image.Rect(50, 0, 100, 80)},
		{"center", image.Rect(25, 20, 75, 60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NamedRegion(bounds, tt.name)
			if err != nil {
				t.Fatalf("NamedRegion failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNamedRegion_Offset(t *testing.T) {
	got, err := NamedRegion(image.Rect(10, 20, 110, 120), "bottom-right")
	if err != nil {
		t.Fatalf("NamedRegion failed: %v", err)
	}
	if want := image.Rect(60, 70, 110, 120); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNamedRegion_Invalid(t *testing.T) {
	for _, name := range []string{"invalid", "TOP-LEFT", "", "center-left"} {
		if _, err := NamedRegion(image.Rect(0, 0, 10, 10), name); err == nil {
			t.Errorf("NamedRegion should fail for %q", name)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	img := createQuadrantImage(20, 10)

	enc, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 20 || enc.Height != 10 || enc.MimeType != "image/png" {
		t.Errorf("unexpected metadata: %+v", enc)
	}

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 20 {
		t.Errorf("decoded width %d", decoded.Bounds().Dx())
	}
}
