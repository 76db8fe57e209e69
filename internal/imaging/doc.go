// Package imaging provides the image input side of cell counting: finding
// slide images on disk, decoding them, and converting them to the 8-bit
// grayscale form the detector works on.
//
// # Loading
//
// LoadFile decodes PNG, JPEG, GIF, TIFF and BMP files through
// github.com/disintegration/imaging. Microscopy scans are usually TIFF,
// often 16-bit; they are returned in their native color model and only
// reduced to 8 bits by ToGray8. ImageCache adds a concurrency-safe cache for
// callers that revisit the same file, such as the MCP server.
//
// # Directory Sources
//
// NewSource selects the files of one directory that match a glob pattern
// (default "*.tif", also matching "*.tiff"), in lexical order, optionally
// truncated to the first N.
//
// # Grayscale Conversion
//
// ToGray8 applies one fixed rule to every image: BT.709 luminance weights on
// non-premultiplied RGB, then a linear rescale to 0..255 with rounding.
// Results are therefore reproducible across file formats and bit depths.
//
// # Regions
//
// Crop cuts a rectangle out of an image and optionally rescales it, and
// NamedRegion resolves names such as "top-left" or "center" to rectangles.
// EncodePNG packs the result as base64 PNG for JSON responses.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
package imaging
