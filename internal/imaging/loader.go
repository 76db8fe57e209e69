package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrLoadFailed is returned when an image file cannot be opened or decoded.
var ErrLoadFailed = errors.New("image load failed")

// LoadFile opens and decodes a single image file without caching.
//
// PNG, JPEG, GIF, TIFF and BMP are supported; the format is detected from
// the file contents, not the extension. Multi-page TIFF files yield their
// first page. The decoded image keeps its native color model, so 16-bit
// grayscale scans come back as *image.Gray16.
//
// Errors wrap both ErrLoadFailed and the underlying cause.
func LoadFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}
	return img, nil
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached copy without
// disk I/O. The MCP server uses it so that inspecting, detecting and rendering the
// same slide in successive tool calls decodes the file only once.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// Whole-slide scans are large; batch runs load files directly with LoadFile
// instead of going through the cache.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Parameters:
//   - path: Absolute or relative file path to the image. See LoadFile for
//     supported formats.
//
// Returns:
//   - image.Image: The decoded image in its native color model.
//   - error: Wraps ErrLoadFailed if the file cannot be opened or decoded.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
// After eviction, the next Load() call for this path will read from disk.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Path is the file path the image was loaded from.
	Path string `json:"path"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", "tiff", "bmp", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// Grayscale is true for single-channel images.
	Grayscale bool `json:"grayscale"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := &ImageInfo{
		Path:          path,
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        FormatFromPath(path),
		ColorDepth:    "8-bit",
		FileSizeBytes: stat.Size(),
	}

	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	}

	return info, nil
}

// FormatFromPath maps a file extension to an image format name.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".tif", ".tiff":
		return "tiff"
	case ".bmp":
		return "bmp"
	}
	return "unknown"
}
