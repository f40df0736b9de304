package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	direction mgl32.Vec3
	intensity float32
}

// Light defines the interface for the directional light that illuminates the traced scene.
//
// The light has no position. Its direction is the direction the light travels in, so shadow rays
// are cast toward the negated direction. The tracer packs Vector() into the trace parameters each
// frame and restarts accumulation whenever the direction changes.
type Light interface {
	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Vector returns the direction in xyz and the intensity in w, the layout the trace kernel reads.
	//
	// Returns:
	//   - mgl32.Vec4: direction and intensity
	Vector() mgl32.Vec4

	// SetDirection sets the direction of the light and normalizes it. A zero vector is ignored.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// Rotate turns the light by yaw around the world up axis and then by pitch around the
	// horizontal axis perpendicular to the light.
	//
	// Parameters:
	//   - yaw: rotation around +Y in radians
	//   - pitch: rotation toward or away from the vertical in radians
	Rotate(yaw, pitch float32)
}

var _ Light = &lightImpl{}

// NewLight creates a new directional Light pointing mostly downward with intensity 1 and
// any provided options applied.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		direction: mgl32.Vec3{0.3, -1, 0.4}.Normalize(),
		intensity: 1.0,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Vector() mgl32.Vec4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction.Vec4(l.intensity)
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := normalize(mgl32.Vec3{x, y, z}); ok {
		l.direction = d
	}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) Rotate(yaw, pitch float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	up := mgl32.Vec3{0, 1, 0}
	d := mgl32.QuatRotate(yaw, up).Rotate(l.direction)
	if axis, ok := normalize(up.Cross(d)); ok {
		d = mgl32.QuatRotate(pitch, axis).Rotate(d)
	}
	if n, ok := normalize(d); ok {
		l.direction = n
	}
}

// normalize returns v scaled to unit length, or false for a zero vector.
func normalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	length := v.Len()
	if length < 1e-8 {
		return mgl32.Vec3{}, false
	}
	return v.Mul(1 / length), true
}
