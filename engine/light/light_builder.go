package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithDirection is an option builder that sets the direction the light travels in.
// The direction is normalized before storing; a zero vector keeps the default.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		if d, ok := normalize(mgl32.Vec3{x, y, z}); ok {
			l.direction = d
		}
	}
}

// WithEulerDirection is an option builder that sets the direction from rotation angles in degrees,
// the way a transform's rotation would. The light starts pointing along +Z and is pitched down
// around X before being turned around Y.
//
// Parameters:
//   - pitchDeg: rotation around the X axis in degrees, positive points downward
//   - yawDeg: rotation around the Y axis in degrees
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithEulerDirection(pitchDeg, yawDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		q := mgl32.QuatRotate(mgl32.DegToRad(yawDeg), mgl32.Vec3{0, 1, 0}).
			Mul(mgl32.QuatRotate(mgl32.DegToRad(pitchDeg), mgl32.Vec3{1, 0, 0}))
		if d, ok := normalize(q.Rotate(mgl32.Vec3{0, 0, 1})); ok {
			l.direction = d
		}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}
