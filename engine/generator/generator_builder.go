package generator

// GeneratorBuilderOption is a function that configures a Generator instance during construction.
type GeneratorBuilderOption func(*generatorImpl)

// WithConfig is an option builder that replaces the whole generator configuration.
// Options applied after it override individual fields.
//
// Parameters:
//   - cfg: the configuration to use
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the configuration to a generatorImpl
func WithConfig(cfg Config) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config = cfg
	}
}

// WithMaxCount is an option builder that sets the number of candidate spheres sampled per generation.
//
// Parameters:
//   - maxCount: the number of candidates
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the max count option to a generatorImpl
func WithMaxCount(maxCount int) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config.MaxCount = maxCount
	}
}

// WithRadiusRange is an option builder that sets the minimum and maximum sphere radius.
//
// Parameters:
//   - min: the smallest radius
//   - max: the largest radius
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the radius range option to a generatorImpl
func WithRadiusRange(min, max float32) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config.RadiusMin = min
		g.config.RadiusMax = max
	}
}

// WithPlacementRadius is an option builder that sets the radius of the ground disk spheres are placed in.
//
// Parameters:
//   - radius: the disk radius
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the placement radius option to a generatorImpl
func WithPlacementRadius(radius float32) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config.PlacementRadius = radius
	}
}

// WithNoiseFrequency is an option builder that scales world coordinates before the radius noise lookup.
//
// Parameters:
//   - frequency: the coordinate scale, 1.0 for raw world coordinates
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the noise frequency option to a generatorImpl
func WithNoiseFrequency(frequency float64) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config.NoiseFrequency = frequency
	}
}

// WithNoiseSeed is an option builder that sets the seed of the radius noise field.
//
// Parameters:
//   - seed: the noise seed
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the noise seed option to a generatorImpl
func WithNoiseSeed(seed int64) GeneratorBuilderOption {
	return func(g *generatorImpl) {
		g.config.NoiseSeed = seed
	}
}
