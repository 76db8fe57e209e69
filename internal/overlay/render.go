package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/cellcount/internal/detection"
	cellimaging "github.com/ironsheep/cellcount/internal/imaging"
	"github.com/ironsheep/cellcount/internal/measurement"
)

var (
	labelForeground = color.NRGBA{255, 255, 255, 255}
	labelBackground = color.NRGBA{0, 0, 0, 180}
)

// Render draws every blob of blobs as a circle over img for visual QA.
//
// Parameters:
//   - img: The image the blobs were detected in, in any color model. Blob
//     coordinates are taken relative to its top-left corner.
//   - blobs: Blobs to draw, usually CellMeasurement.Blobs().
//   - opts: Drawing options; see DefaultOptions.
//
// Returns:
//   - *image.NRGBA: A new image with origin (0,0). With SideBySide it is
//     twice as wide as img: original on the left, annotated on the right.
//   - error: Non-nil if opts are invalid or img is empty.
func Render(img image.Image, blobs detection.BlobSet, opts Options) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot render overlay on an empty image")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	circleColor, _ := parseColor(opts.CircleColor)

	annotated := imaging.Clone(img)
	if opts.TissueTint > 0 {
		tint, _ := parseColor(opts.TissueColor)
		annotated = imaging.Overlay(annotated, tintMask(TissueMask(img), tint), image.Pt(0, 0), opts.TissueTint)
	}

	for _, b := range blobs {
		drawCircle(annotated, b.Col, b.Row, b.Radius, opts.LineWidth, circleColor)
	}
	if opts.Labels {
		for i, b := range blobs {
			x := b.Col + int(math.Ceil(b.Radius)) + 1
			y := b.Row - int(math.Ceil(b.Radius))
			drawLabel(annotated, x, y, strconv.Itoa(i+1), labelForeground, labelBackground)
		}
	}

	if !opts.SideBySide {
		return annotated, nil
	}

	w, h := annotated.Bounds().Dx(), annotated.Bounds().Dy()
	canvas := imaging.New(2*w, h, color.Black)
	canvas = imaging.Paste(canvas, img, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, annotated, image.Pt(w, 0))
	return canvas, nil
}

// drawCircle draws a ring of the given width centred on radius r around
// (cx, cy). Pixels outside dst are skipped.
func drawCircle(dst *image.NRGBA, cx, cy int, r float64, width int, c color.NRGBA) {
	half := float64(width) / 2
	outer := r + half
	inner := math.Max(0, r-half)
	reach := int(math.Ceil(outer))

	bounds := dst.Bounds()
	for y := cy - reach; y <= cy+reach; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - reach; x <= cx+reach; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= inner && d <= outer {
				dst.SetNRGBA(x, y, c)
			}
		}
	}
}

// TissueMask returns a black and white image where white marks the pixels
// counted as tissue by the measurement package.
//
// The image is reduced with ToGray8 first, so the mask lines up with the
// detector's input. The thresholding itself uses bild's luma ranking, which
// can put pixels exactly at the boundary intensity on either side; the mask
// is a visual aid and measurements never read it.
func TissueMask(img image.Image) *image.Gray {
	gray := cellimaging.ToGray8(img)
	return segment.Threshold(gray, measurement.TissueIntensityThreshold+1)
}

// tintMask turns a mask into an image that is c where the mask is white and
// transparent elsewhere.
func tintMask(mask *image.Gray, c color.NRGBA) *image.NRGBA {
	b := mask.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				out.SetNRGBA(x, y, c)
			}
		}
	}
	return out
}
