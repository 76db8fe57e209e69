package detection

import "math"

// kernelTruncate is the kernel half-width in standard deviations.
const kernelTruncate = 4.0

// gaussianKernel1D samples a normalized Gaussian (order 0) or its second
// derivative (order 2) on integer offsets -radius..radius, where
// radius = int(4σ + 0.5).
//
// The second derivative is g(x)·(x²/σ⁴ − 1/σ²) with g already normalized,
// so the order-0 and order-2 kernels share one normalization.
func gaussianKernel1D(sigma float64, order int) []float64 {
	radius := int(kernelTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	s2 := sigma * sigma

	var sum float64
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / s2)
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}

	if order == 2 {
		for i := range k {
			x := float64(i - radius)
			k[i] *= x*x/(s2*s2) - 1/s2
		}
	}
	return k
}

// reflectIndex maps an out-of-range index into [0, n) by half-sample
// mirroring: (d c b a | a b c d | d c b a). Offsets larger than n wrap
// with period 2n, so kernels wider than the image are handled.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// correlateRows filters every row of a row-major w×h plane with k.
func correlateRows(src []float64, w, h int, k []float64) []float64 {
	r := len(k) / 2
	dst := make([]float64, len(src))
	padded := make([]float64, w+2*r)

	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for i := range padded {
			padded[i] = row[reflectIndex(i-r, w)]
		}
		out := dst[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			window := padded[x : x+len(k)]
			for j, kv := range k {
				sum += kv * window[j]
			}
			out[x] = sum
		}
	}
	return dst
}

// correlateCols filters every column of a row-major w×h plane with k.
func correlateCols(src []float64, w, h int, k []float64) []float64 {
	r := len(k) / 2
	dst := make([]float64, len(src))
	padded := make([]float64, h+2*r)

	for x := 0; x < w; x++ {
		for i := range padded {
			padded[i] = src[reflectIndex(i-r, h)*w+x]
		}
		for y := 0; y < h; y++ {
			var sum float64
			window := padded[y : y+len(k)]
			for j, kv := range k {
				sum += kv * window[j]
			}
			dst[y*w+x] = sum
		}
	}
	return dst
}

// scaleNormalizedLoG returns −σ²·∇²(G_σ * src) for a w×h plane.
//
// Bright blobs on a dark background produce positive responses, peaking at
// σ ≈ radius/√2. The Laplacian is the sum of the separable second
// derivatives along each axis.
func scaleNormalizedLoG(src []float64, w, h int, sigma float64) []float64 {
	g := gaussianKernel1D(sigma, 0)
	d2 := gaussianKernel1D(sigma, 2)

	dxx := correlateCols(correlateRows(src, w, h, d2), w, h, g)
	dyy := correlateCols(correlateRows(src, w, h, g), w, h, d2)

	s2 := sigma * sigma
	for i := range dxx {
		dxx[i] = -(dxx[i] + dyy[i]) * s2
	}
	return dxx
}
