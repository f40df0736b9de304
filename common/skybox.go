package common

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// srgbToLinear maps an 8-bit sRGB channel to linear intensity.
var srgbToLinear = func() [256]float32 {
	var lut [256]float32
	for i := range lut {
		r, _, _ := colorful.Color{R: float64(i) / 255}.LinearRgb()
		lut[i] = float32(r)
	}
	return lut
}()

// SkyboxTexture is an equirectangular environment map. It keeps the 8-bit sRGB pixels for GPU
// upload and a linear copy for sampling on the host, where u wraps around the horizon and v is
// clamped between the zenith (0) and the nadir (1).
type SkyboxTexture struct {
	width, height int
	pixels        []byte
	linear        []mgl32.Vec3
}

// LoadSkybox decodes an equirectangular sky image from disk. PNG, JPEG, BMP, TIFF and WebP are
// supported. Images wider than maxWidth are downscaled with Catmull-Rom filtering, keeping the 2:1
// aspect of the source; a maxWidth of 0 keeps the original size.
//
// Parameters:
//   - path: the image file
//   - maxWidth: the largest width to keep, or 0 for no limit
//
// Returns:
//   - *SkyboxTexture: the decoded sky
//   - error: error if the file cannot be opened or decoded
func LoadSkybox(path string, maxWidth int) (*SkyboxTexture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open skybox %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode skybox %s: %w", path, err)
	}
	return NewSkyboxFromImage(img, maxWidth), nil
}

// NewSkyboxFromImage converts any image to a SkyboxTexture, downscaling it when it is wider than maxWidth.
//
// Parameters:
//   - img: the source image in sRGB
//   - maxWidth: the largest width to keep, or 0 for no limit
//
// Returns:
//   - *SkyboxTexture: the sky
func NewSkyboxFromImage(img image.Image, maxWidth int) *SkyboxTexture {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}
	return newSkybox(w, h, rgba.Pix)
}

// GradientSkybox builds a procedural sky that blends from a pale horizon to a deep zenith above
// the horizon and fades to a dim ground colour below it. The blend runs in CIE L*u*v* so the
// transition has no muddy midpoint.
//
// Parameters:
//   - width: the texture width in pixels
//   - height: the texture height in pixels
//
// Returns:
//   - *SkyboxTexture: the sky
func GradientSkybox(width, height int) *SkyboxTexture {
	width, height = max(width, 1), max(height, 2)
	zenith := colorful.Color{R: 0.25, G: 0.45, B: 0.85}
	horizon := colorful.Color{R: 0.85, G: 0.90, B: 0.95}
	ground := colorful.Color{R: 0.20, G: 0.18, B: 0.16}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		v := (float64(y) + 0.5) / float64(height)
		var c colorful.Color
		if v < 0.5 {
			c = zenith.BlendLuv(horizon, math.Pow(v*2, 2)).Clamped()
		} else {
			c = horizon.BlendLuv(ground, math.Sqrt((v-0.5)*2)).Clamped()
		}
		r, g, b := c.RGB255()
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return newSkybox(width, height, img.Pix)
}

func newSkybox(width, height int, pixels []byte) *SkyboxTexture {
	s := &SkyboxTexture{
		width:  width,
		height: height,
		pixels: pixels,
		linear: make([]mgl32.Vec3, width*height),
	}
	for i := range s.linear {
		p := pixels[i*4:]
		s.linear[i] = mgl32.Vec3{srgbToLinear[p[0]], srgbToLinear[p[1]], srgbToLinear[p[2]]}
	}
	return s
}

// Width returns the texture width in pixels.
func (s *SkyboxTexture) Width() int { return s.width }

// Height returns the texture height in pixels.
func (s *SkyboxTexture) Height() int { return s.height }

// StagingData returns the RGBA8 sRGB pixels ready for GPU upload.
//
// Returns:
//   - TextureStagingData: the staged pixels
func (s *SkyboxTexture) StagingData() TextureStagingData {
	return TextureStagingData{
		Pixels: s.pixels,
		Width:  uint32(s.width),
		Height: uint32(s.height),
	}
}

// Sample returns the bilinearly filtered linear colour at (u, v), matching a linear sampler with
// repeat addressing in u and clamp-to-edge addressing in v.
//
// Parameters:
//   - u: the horizontal texture coordinate
//   - v: the vertical texture coordinate
//
// Returns:
//   - mgl32.Vec3: the linear RGB colour
func (s *SkyboxTexture) Sample(u, v float32) mgl32.Vec3 {
	x := u*float32(s.width) - 0.5
	y := v*float32(s.height) - 0.5
	x0 := int(math.Floor(float64(x)))
	y0 := int(math.Floor(float64(y)))
	fx := x - float32(x0)
	fy := y - float32(y0)

	c00 := s.texel(x0, y0)
	c10 := s.texel(x0+1, y0)
	c01 := s.texel(x0, y0+1)
	c11 := s.texel(x0+1, y0+1)

	top := c00.Mul(1 - fx).Add(c10.Mul(fx))
	bottom := c01.Mul(1 - fx).Add(c11.Mul(fx))
	return top.Mul(1 - fy).Add(bottom.Mul(fy))
}

func (s *SkyboxTexture) texel(x, y int) mgl32.Vec3 {
	x %= s.width
	if x < 0 {
		x += s.width
	}
	y = min(max(y, 0), s.height-1)
	return s.linear[y*s.width+x]
}
