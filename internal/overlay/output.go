package overlay

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	cellimaging "github.com/ironsheep/cellcount/internal/imaging"
)

// Save writes img to path. The format is taken from the file extension
// (png, jpg, gif, tif, bmp). Missing parent directories are created.
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// FileName returns the overlay file name for a sample: "<name>_overlay.png".
func FileName(sampleName string) string {
	return sampleName + "_overlay.png"
}

// EncodePNGBase64 encodes img as base64 PNG for transport in JSON.
func EncodePNGBase64(img image.Image) (*cellimaging.EncodedImage, error) {
	return cellimaging.EncodePNG(img)
}
