package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid generator config")

// Default generation parameters.
const (
	DefaultMaxCount        = 100
	DefaultRadiusMin       = 3.0
	DefaultRadiusMax       = 8.0
	DefaultPlacementRadius = 100.0
	DefaultNoiseFrequency  = 1.0
	DefaultNoiseSeed       = 1337
)

// Config holds the persisted parameters of the scene generator.
type Config struct {
	MaxCount        int     `json:"max_count"`
	RadiusMin       float32 `json:"radius_min"`
	RadiusMax       float32 `json:"radius_max"`
	PlacementRadius float32 `json:"placement_radius"`

	// NoiseFrequency scales the world-space coordinates before the noise lookup. 1.0 samples the
	// field at raw world coordinates.
	NoiseFrequency float64 `json:"noise_frequency"`
	NoiseSeed      int64   `json:"noise_seed"`
}

// DefaultConfig returns the generator defaults: up to 100 spheres with radii in [3, 8] placed inside
// a disk of radius 100.
//
// Returns:
//   - Config: the default configuration
func DefaultConfig() Config {
	return Config{
		MaxCount:        DefaultMaxCount,
		RadiusMin:       DefaultRadiusMin,
		RadiusMax:       DefaultRadiusMax,
		PlacementRadius: DefaultPlacementRadius,
		NoiseFrequency:  DefaultNoiseFrequency,
		NoiseSeed:       DefaultNoiseSeed,
	}
}

// Validate checks the configuration for values the generator cannot work with.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil if the config is usable
func (c Config) Validate() error {
	switch {
	case c.MaxCount < 0:
		return fmt.Errorf("%w: max_count %d is negative", ErrInvalidConfig, c.MaxCount)
	case c.RadiusMin <= 0:
		return fmt.Errorf("%w: radius_min %v must be positive", ErrInvalidConfig, c.RadiusMin)
	case c.RadiusMax < c.RadiusMin:
		return fmt.Errorf("%w: radius range [%v, %v] is inverted", ErrInvalidConfig, c.RadiusMin, c.RadiusMax)
	case c.PlacementRadius < 0:
		return fmt.Errorf("%w: placement_radius %v is negative", ErrInvalidConfig, c.PlacementRadius)
	case c.NoiseFrequency <= 0:
		return fmt.Errorf("%w: noise_frequency %v must be positive", ErrInvalidConfig, c.NoiseFrequency)
	}
	return nil
}

// LoadConfig reads a Config from a JSON file. Fields missing from the file keep their default values.
//
// Parameters:
//   - path: the JSON file to read
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: an error if the file cannot be read, decoded, or fails validation
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open generator config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode generator config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes a Config to a JSON file as indented JSON.
//
// Parameters:
//   - path: the destination file
//   - cfg: the configuration to write
//
// Returns:
//   - error: an error if the file cannot be created or written
func SaveConfig(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create generator config: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode generator config: %w", err)
	}
	return nil
}
