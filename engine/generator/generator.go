// Package generator builds collision-free sphere scenes by rejection sampling.
package generator

import (
	"log"
	"math"
	"math/rand"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// metalProbability is the chance that a generated sphere is a metal rather than a dielectric.
const metalProbability = 0.5

// generatorImpl is the implementation of the Generator interface.
type generatorImpl struct {
	mu     *sync.Mutex
	config Config
	noise  *noiseField
}

// Generator owns the generation parameters of the sphere scene and produces a fresh Scene on request.
//
// Each call to Generate samples up to MaxCount candidate spheres inside a disk on the ground plane.
// A candidate that overlaps an already accepted sphere is discarded and its slot is skipped, so the
// resulting scene may hold fewer than MaxCount spheres, possibly none.
type Generator interface {
	// Generate builds a new Scene using the supplied random source.
	// All randomness (placement, colour, material) is drawn from rng; the radius noise field is
	// deterministic for a given noise seed.
	//
	// Parameters:
	//   - rng: the random source to draw from
	//
	// Returns:
	//   - geometry.Scene: the accepted spheres in generation order
	Generate(rng *rand.Rand) geometry.Scene

	// Config returns a copy of the current generation parameters.
	//
	// Returns:
	//   - Config: the current configuration
	Config() Config

	// SetConfig replaces the generation parameters. The noise field is rebuilt when the noise seed
	// or frequency changes.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidConfig if cfg fails validation
	SetConfig(cfg Config) error
}

var _ Generator = &generatorImpl{}

// NewGenerator creates a new Generator with the default configuration and any provided options applied.
// Invalid option combinations are logged and replaced with the defaults.
//
// Parameters:
//   - opts: variadic list of GeneratorBuilderOption functions to configure the generator
//
// Returns:
//   - Generator: a new Generator instance
func NewGenerator(opts ...GeneratorBuilderOption) Generator {
	g := &generatorImpl{
		mu:     &sync.Mutex{},
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.config.Validate(); err != nil {
		log.Printf("[Generator] %v, falling back to defaults", err)
		g.config = DefaultConfig()
	}
	g.noise = newNoiseField(g.config.NoiseSeed, g.config.NoiseFrequency)
	return g
}

func (g *generatorImpl) Generate(rng *rand.Rand) geometry.Scene {
	g.mu.Lock()
	cfg := g.config
	noise := g.noise
	g.mu.Unlock()

	scene := generate(cfg.MaxCount, mgl32.Vec2{cfg.RadiusMin, cfg.RadiusMax}, cfg.PlacementRadius, noise, rng)
	log.Printf("[Generator] accepted %d of %d spheres", len(scene), cfg.MaxCount)
	return scene
}

func (g *generatorImpl) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

func (g *generatorImpl) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if cfg.NoiseSeed != g.config.NoiseSeed || cfg.NoiseFrequency != g.config.NoiseFrequency {
		g.noise = newNoiseField(cfg.NoiseSeed, cfg.NoiseFrequency)
	}
	g.config = cfg
	return nil
}

// Generate builds a scene with the default noise field. It is the stateless form of Generator.Generate.
//
// Parameters:
//   - maxCount: the number of candidate spheres to sample; negative counts sample none
//   - radiusRange: the minimum (x) and maximum (y) sphere radius
//   - placementRadius: the radius of the ground disk candidates are placed in
//   - rng: the random source to draw from
//
// Returns:
//   - geometry.Scene: the accepted spheres in generation order
func Generate(maxCount int, radiusRange mgl32.Vec2, placementRadius float32, rng *rand.Rand) geometry.Scene {
	return generate(maxCount, radiusRange, placementRadius, newNoiseField(DefaultNoiseSeed, DefaultNoiseFrequency), rng)
}

func generate(maxCount int, radiusRange mgl32.Vec2, placementRadius float32, noise *noiseField, rng *rand.Rand) geometry.Scene {
	maxCount = max(maxCount, 0)
	scene := make(geometry.Scene, 0, maxCount)
	for range maxCount {
		x, z := pointInDisk(placementRadius, rng)

		radius := radiusRange.X() + noise.at(x, z)*(radiusRange.Y()-radiusRange.X())
		candidate := geometry.Sphere{
			Position: mgl32.Vec3{x, radius, z},
			Radius:   radius,
		}
		if intersectsAny(candidate, scene) {
			continue
		}

		color := randomColor(rng)
		if rng.Float32() < metalProbability {
			candidate.Specular = color
		} else {
			candidate.Albedo = color
			candidate.Specular = mgl32.Vec3{geometry.DielectricSpecular, geometry.DielectricSpecular, geometry.DielectricSpecular}
		}
		scene = append(scene, candidate)
	}
	return scene
}

// pointInDisk draws a point uniformly distributed over a disk centered on the origin.
func pointInDisk(radius float32, rng *rand.Rand) (float32, float32) {
	r := float64(radius) * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return float32(r * math.Cos(theta)), float32(r * math.Sin(theta))
}

// randomColor draws hue, saturation and value uniformly and converts them to RGB.
func randomColor(rng *rand.Rand) mgl32.Vec3 {
	c := colorful.Hsv(rng.Float64()*360, rng.Float64(), rng.Float64())
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}

func intersectsAny(candidate geometry.Sphere, accepted geometry.Scene) bool {
	for _, other := range accepted {
		if candidate.Intersects(other) {
			return true
		}
	}
	return false
}
