package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG image encoded for transport in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts a rectangular region from an image and optionally rescales it.
//
// The region is in the image's own coordinates and must lie within its
// bounds. A scale of 1 (or <= 0) keeps the native resolution.
func Crop(img image.Image, region image.Rectangle, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()

	if region.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: x1 must be < x2, y1 must be < y2", region)
	}
	if !region.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", region, bounds)
	}

	cropped := imaging.Crop(img, region)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g reduces region %v to nothing", scale, region)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return cropped, nil
}

// NamedRegion resolves a named part of an image to a rectangle.
//
// Names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half, center (the middle 50%), and full.
func NamedRegion(bounds image.Rectangle, name string) (image.Rectangle, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int

	switch name {
	case "full":
		return bounds, nil
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return image.Rectangle{}, fmt.Errorf("unknown region: %s", name)
	}

	return image.Rect(x1, y1, x2, y2).Add(bounds.Min), nil
}
