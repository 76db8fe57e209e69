package detection

import (
	"context"
	"fmt"
	"image"
)

// Detect finds bright blobs in a single-channel 8-bit image using a
// multi-scale Laplacian-of-Gaussian search.
//
// Parameters:
//   - img: Source image. Must be a non-empty *image.Gray; convert color or
//     16-bit sources with imaging.ToGray8 first.
//   - params: Scale search configuration, usually DefaultScaleSearchParams()
//     with overrides.
//
// Returns:
//   - BlobSet: Detected blobs, strongest response first. Empty when nothing
//     exceeds the response threshold; this is not an error.
//   - error: Wraps ErrInvalidParameters or ErrInvalidImage.
//
// # Algorithm
//
//  1. Intensities are scaled to [0,1] (v/255).
//  2. For every sigma from params.Sigmas(), the scale-normalized response
//     −σ²·∇²(G_σ * I) is computed with separable second-derivative-of-Gaussian
//     filters and mirrored borders, forming a (row, col, scale) volume.
//  3. Candidates are voxels that are maximal within their 3×3×3 neighborhood
//     and strictly above ResponseThreshold.
//  4. With ExcludeBorder, candidates whose disk crosses the image edge are
//     dropped.
//  5. Candidates are pruned strongest first: any disk overlapping an already
//     accepted blob with IoU above OverlapThreshold is discarded.
//  6. Each blob's radius is sigma × √2.
//
// # Performance
//
// Cost is O(width × height × Σσ) since kernel width grows with sigma. Large
// MaxScale values on large images are expensive; use DetectContext with a
// deadline to bound a single image.
func Detect(img image.Image, params ScaleSearchParams) (BlobSet, error) {
	return DetectContext(context.Background(), img, params)
}

// DetectContext is Detect with cancellation. The context is checked before
// each scale is filtered; on expiry the context's error is returned wrapped.
func DetectContext(ctx context.Context, img image.Image, params ScaleSearchParams) (BlobSet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	gray, err := grayImage(img)
	if err != nil {
		return nil, err
	}

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := intensityPlane(gray)

	sigmas := params.Sigmas()
	cube := make([][]float64, len(sigmas))
	for i, sigma := range sigmas {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("blob detection stopped before sigma %.3g: %w", sigma, err)
		}
		cube[i] = scaleNormalizedLoG(data, w, h, sigma)
	}

	cands := localMaxima(cube, sigmas, w, h, params.ResponseThreshold)

	if params.ExcludeBorder {
		inside := cands[:0]
		for _, c := range cands {
			if !crossesBorder(c.row, c.col, RadiusFromSigma(c.sigma), w, h) {
				inside = append(inside, c)
			}
		}
		cands = inside
	}

	cands = pruneOverlapping(cands, params.OverlapThreshold)

	blobs := make(BlobSet, len(cands))
	for i, c := range cands {
		blobs[i] = Blob{
			Row:      c.row,
			Col:      c.col,
			Radius:   RadiusFromSigma(c.sigma),
			Sigma:    c.sigma,
			Response: c.response,
		}
	}
	return blobs, nil
}

// grayImage checks that img is a non-empty single-channel 8-bit image.
func grayImage(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("%w: expected single-channel 8-bit image, got %T", ErrInvalidImage, img)
	}
	if gray == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if gray.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrInvalidImage)
	}
	return gray, nil
}

// CheckImage reports whether img is acceptable input for Detect.
func CheckImage(img image.Image) error {
	_, err := grayImage(img)
	return err
}

// intensityPlane copies the image into a row-major plane scaled to [0,1].
func intensityPlane(gray *image.Gray) []float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		off := gray.PixOffset(b.Min.X, b.Min.Y+y)
		row := gray.Pix[off : off+w]
		for x, v := range row {
			data[y*w+x] = float64(v) / 255
		}
	}
	return data
}
