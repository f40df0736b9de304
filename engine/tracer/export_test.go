package tracer

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestToImageClampsAndEncodesSRGB(t *testing.T) {
	pixels := []mgl32.Vec4{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{2, -1, 0.5, 0.3},
	}
	img, err := ToImage(pixels, 3, 1)
	if err != nil {
		t.Fatal(err)
	}

	if c := img.RGBA64At(0, 0); c.R != 0 || c.G != 0 || c.B != 0 || c.A != 0xffff {
		t.Errorf("black = %+v", c)
	}
	if c := img.RGBA64At(1, 0); c.R != 0xffff || c.G != 0xffff || c.B != 0xffff {
		t.Errorf("white = %+v", c)
	}
	c := img.RGBA64At(2, 0)
	if c.R != 0xffff || c.G != 0 {
		t.Errorf("out of range channels not clamped: %+v", c)
	}
	// Linear 0.5 is roughly 0.735 in sRGB.
	if c.B < 0xb800 || c.B > 0xbe00 {
		t.Errorf("linear 0.5 encoded as %#x", c.B)
	}
}

func TestToImageRejectsBadInput(t *testing.T) {
	if _, err := ToImage(nil, 0, 4); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("zero width = %v", err)
	}
	if _, err := ToImage(make([]mgl32.Vec4, 3), 2, 2); err == nil {
		t.Error("short pixel slice accepted")
	}
}

func TestWriteImageFormats(t *testing.T) {
	dir := t.TempDir()
	pixels := make([]mgl32.Vec4, 6*4)
	for i := range pixels {
		pixels[i] = mgl32.Vec4{float32(i) / 24, 0.25, 0.75, 1}
	}

	for _, name := range []string{"out.png", "out.tiff", "OUT.TIF"} {
		path := filepath.Join(dir, name)
		if err := WriteImage(path, pixels, 6, 4); err != nil {
			t.Fatalf("WriteImage(%s): %v", name, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if cfg.Width != 6 || cfg.Height != 4 {
			t.Errorf("%s decoded as %dx%d", name, cfg.Width, cfg.Height)
		}
	}
}

func TestWriteImageUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := WriteImage(path, make([]mgl32.Vec4, 1), 1, 1); err == nil {
		t.Fatal("expected an error for .jpg")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("unsupported format still created a file")
	}
}
