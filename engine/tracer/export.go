package tracer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// ToImage converts linear RGBA float pixels to a 16-bit sRGB image. Channels are clamped to [0, 1]
// and alpha is forced opaque.
//
// Parameters:
//   - pixels: row-major pixels as returned by CPUDevice.Snapshot
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - *image.RGBA64: the encoded image
//   - error: ErrInvalidViewport for a non-positive size, or an error if pixels is too short
func ToImage(pixels []mgl32.Vec4, width, height int) (*image.RGBA64, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}
	if len(pixels) < width*height {
		return nil, fmt.Errorf("expected %d pixels, got %d", width*height, len(pixels))
	}

	img := image.NewRGBA64(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			p := pixels[y*width+x]
			c := colorful.LinearRgb(float64(p.X()), float64(p.Y()), float64(p.Z())).Clamped()
			r, g, b, _ := c.RGBA()
			img.SetRGBA64(x, y, color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: 0xffff})
		}
	}
	return img, nil
}

// WriteImage encodes pixels to path. The extension picks the format: .png writes 16-bit PNG and
// .tif or .tiff writes deflate-compressed 16-bit TIFF.
//
// Parameters:
//   - path: the output file
//   - pixels: row-major linear RGBA pixels
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - error: an error for an unknown extension, a bad image or a write failure
func WriteImage(path string, pixels []mgl32.Vec4, width, height int) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("unsupported image format %q", ext)
	}

	img, err := ToImage(pixels, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".png" {
		err = png.Encode(f, img)
	} else {
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
