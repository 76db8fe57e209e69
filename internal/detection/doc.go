// Package detection locates cells in fluorescence micrographs as bright,
// roughly circular blobs.
//
// Detection is a multi-scale Laplacian-of-Gaussian (LoG) search. A blob of
// radius r produces the strongest scale-normalized LoG response at
// sigma = r/√2, so scanning a range of sigmas and keeping the local maxima of
// the response volume yields both the position and the size of each blob.
//
// # Pipeline
//
//  1. Validation: ScaleSearchParams.Validate and single-channel 8-bit input
//  2. Scale space: one response plane per sigma from ScaleSearchParams.Sigmas
//  3. Peak finding: 3×3×3 local maxima above ResponseThreshold
//  4. Border filter: optional, see ScaleSearchParams.ExcludeBorder
//  5. Pruning: greedy suppression of overlapping disks, strongest first
//
// # Coordinate System
//
// Blob coordinates follow the matrix convention used by image analysis
// tools rather than image.Point:
//   - Row is the vertical index (y), Col the horizontal index (x)
//   - (0, 0) is the top-left pixel of the image's bounds, even when the
//     image rectangle does not start at the origin
//
// # Results
//
// Detect returns a BlobSet ordered by descending response. The set may
// contain tiny blobs produced by noise or ring artifacts around bright
// objects; callers that count cells filter them with
// BlobSet.FilterMinRadius.
//
// # Errors
//
// All failures wrap one of the package sentinels, so callers can classify
// them with errors.Is:
//   - ErrInvalidParameters: scale range or thresholds out of range
//   - ErrInvalidImage: nil, empty, or not *image.Gray
//
// DetectContext additionally returns the context's error, wrapped, when the
// search is canceled between scales.
package detection
