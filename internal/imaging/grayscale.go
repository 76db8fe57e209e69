package imaging

import (
	"image"
	"image/color"
	"math"
)

// Luminance weights (ITU-R BT.709) applied to linear RGB components.
const (
	lumaR = 0.2125
	lumaG = 0.7154
	lumaB = 0.0721
)

// ToGray8 converts any image to single-channel 8-bit intensity, the input
// format expected by blob detection.
//
// Parameters:
//   - img: Source image of any color model and bit depth.
//
// Returns:
//   - *image.Gray: A new image with bounds re-based to (0,0). The source is
//     never modified or aliased.
//
// # Conversion
//
//   - *image.Gray: copied unchanged.
//   - *image.Gray16: rescaled linearly, round(v/65535 × 255).
//   - Everything else: each pixel is read as non-premultiplied 16-bit RGB,
//     scaled to [0,1], reduced to luminance with
//     0.2125·R + 0.7154·G + 0.0721·B, then rescaled to round(l × 255).
//
// The same rules are applied to every image in a batch so that tissue and
// density figures are comparable across files.
func ToGray8(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			si := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+width], src.Pix[si:si+width])
		}
		return out

	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
				out.Pix[y*out.Stride+x] = to8bit(float64(v) / 0xffff)
			}
		}
		return out
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			out.Pix[y*out.Stride+x] = to8bit(luminance(c))
		}
	}
	return out
}

// luminance returns the weighted intensity of c in [0,1].
func luminance(c color.NRGBA64) float64 {
	r := float64(c.R) / 0xffff
	g := float64(c.G) / 0xffff
	b := float64(c.B) / 0xffff
	return lumaR*r + lumaG*g + lumaB*b
}

// to8bit maps an intensity in [0,1] to 0..255 with rounding.
func to8bit(v float64) uint8 {
	return uint8(clamp(int(math.Round(v*255)), 0, 255))
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
