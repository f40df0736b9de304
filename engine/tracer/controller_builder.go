package tracer

import (
	"math/rand"

	"github.com/Carmen-Shannon/oxy-trace/engine/generator"
)

// ControllerBuilderOption is a functional option applied to a controller during construction via NewController.
type ControllerBuilderOption func(*controller)

// WithGenerator sets the scene generator used by OnSceneReset.
//
// Parameters:
//   - g: the Generator to use
//
// Returns:
//   - ControllerBuilderOption: a function that applies the generator option to a controller
func WithGenerator(g generator.Generator) ControllerBuilderOption {
	return func(c *controller) {
		c.generator = g
	}
}

// WithRand sets the random source for scene generation and pixel jitter.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - ControllerBuilderOption: a function that applies the random source option to a controller
func WithRand(rng *rand.Rand) ControllerBuilderOption {
	return func(c *controller) {
		c.rng = rng
	}
}

// WithSeed seeds a new random source so scenes and jitter are reproducible.
//
// Parameters:
//   - seed: the seed value
//
// Returns:
//   - ControllerBuilderOption: a function that applies the seed option to a controller
func WithSeed(seed int64) ControllerBuilderOption {
	return func(c *controller) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}
