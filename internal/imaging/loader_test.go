package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/tiff"
)

// createTestImage writes a solid-color PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createTestTIFF writes a 16-bit grayscale TIFF and returns its path.
func createTestTIFF(t *testing.T, dir, name string, width, height int, v uint16) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.SetGray16(i%width, i/width, color.Gray16{Y: v})
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatalf("failed to encode tiff: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("NewImageCache did not initialize images map")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache should be empty, has %d", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img1 == nil {
		t.Fatal("Load returned nil image")
	}

	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached image, got %d", cache.Len())
	}
}

func TestImageCache_Load_TIFF(t *testing.T) {
	cache := NewImageCache()
	path := createTestTIFF(t, t.TempDir(), "slide.tif", 16, 8, 40000)

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if _, ok := img.(*image.Gray16); !ok {
		t.Errorf("expected *image.Gray16, got %T", img)
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load("/nonexistent/path/to/image.png")
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("expected ErrLoadFailed, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the cause to be preserved, got %v", err)
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()

	path := filepath.Join(t.TempDir(), "invalid.tif")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := cache.Load(path)
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("expected ErrLoadFailed, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("failed load should not be cached")
	}
}

func TestImageCache_Clear(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 255, 0, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestImageCache_Evict(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Evict(imgPath)

	cache.mu.RLock()
	_, exists := cache.images[imgPath]
	cache.mu.RUnlock()

	if exists {
		t.Error("Evict did not remove image from cache")
	}
}

func TestImageCache_Evict_NonExistent(t *testing.T) {
	cache := NewImageCache()
	// Should not panic
	cache.Evict("/nonexistent/path")
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 {
		t.Errorf("Width: got %d, want 200", info.Width)
	}
	if info.Height != 150 {
		t.Errorf("Height: got %d, want 150", info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.Grayscale {
		t.Error("RGBA image reported as grayscale")
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestLoadImageInfo_GrayTIFF(t *testing.T) {
	cache := NewImageCache()
	path := createTestTIFF(t, t.TempDir(), "AB123.tif", 12, 10, 1000)

	info, err := LoadImageInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Format != "tiff" || info.ColorDepth != "16-bit" || !info.Grayscale {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"a.png", "png"},
		{"a.jpg", "jpeg"},
		{"a.jpeg", "jpeg"},
		{"a.gif", "gif"},
		{"a.tif", "tiff"},
		{"a.TIFF", "tiff"},
		{"a.bmp", "bmp"},
		{"a.xyz", "unknown"},
		{"noext", "unknown"},
	}

	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.format {
			t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.format)
		}
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := LoadImageInfo(cache, "/nonexistent/image.png")
	if err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}
