package generator

import (
	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha  = 2.0
	noiseBeta   = 2.0
	noiseOctave = 3
)

// noiseField is a deterministic 2D coherent noise function remapped into [0, 1].
type noiseField struct {
	perlin    *perlin.Perlin
	frequency float64
}

func newNoiseField(seed int64, frequency float64) *noiseField {
	return &noiseField{
		perlin:    perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed),
		frequency: frequency,
	}
}

// at samples the field at a world-space point on the ground plane.
func (n *noiseField) at(x, z float32) float32 {
	v := n.perlin.Noise2D(float64(x)*n.frequency, float64(z)*n.frequency)
	v = (v + 1) * 0.5
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
