package light

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight()
	if d := l.Direction(); math.Abs(float64(d.Len())-1) > 1e-5 || d.Y() >= 0 {
		t.Errorf("default direction %v should be a unit vector pointing down", d)
	}
	if l.Intensity() != 1 {
		t.Errorf("default intensity = %v", l.Intensity())
	}
}

func TestLightOptions(t *testing.T) {
	l := NewLight(WithDirection(0, -2, 0), WithIntensity(1.5))
	if l.Direction() != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("direction = %v, want normalized (0, -1, 0)", l.Direction())
	}
	if v := l.Vector(); v != (mgl32.Vec4{0, -1, 0, 1.5}) {
		t.Errorf("vector = %v", v)
	}

	keep := NewLight(WithDirection(0, -1, 0), WithDirection(0, 0, 0))
	if keep.Direction() != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("zero direction overwrote %v", keep.Direction())
	}
}

func TestWithEulerDirection(t *testing.T) {
	l := NewLight(WithEulerDirection(90, 0))
	if !near(l.Direction(), mgl32.Vec3{0, -1, 0}, 1e-5) {
		t.Errorf("pitch 90 = %v, want straight down", l.Direction())
	}

	l = NewLight(WithEulerDirection(0, 90))
	if !near(l.Direction(), mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("yaw 90 = %v, want +X", l.Direction())
	}
}

func TestSetDirectionIgnoresZero(t *testing.T) {
	l := NewLight(WithDirection(1, 0, 0))
	l.SetDirection(0, 0, 0)
	if l.Direction() != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("direction = %v", l.Direction())
	}
	l.SetDirection(0, 0, 3)
	if l.Direction() != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("direction = %v", l.Direction())
	}
}

func TestRotate(t *testing.T) {
	l := NewLight(WithDirection(1, -1, 0))
	before := l.Direction()

	l.Rotate(math.Pi/2, 0)
	after := l.Direction()
	if math.Abs(float64(after.Y()-before.Y())) > 1e-5 {
		t.Errorf("yaw changed elevation: %v -> %v", before, after)
	}
	if !near(after, mgl32.Vec3{0, -1, -1}.Normalize(), 1e-5) {
		t.Errorf("yaw 90 = %v", after)
	}

	l.Rotate(0, 0.2)
	if d := l.Direction(); math.Abs(float64(d.Len())-1) > 1e-5 || near(d, after, 1e-4) {
		t.Errorf("pitch did not move the light or broke its length: %v", d)
	}

	down := NewLight(WithDirection(0, -1, 0))
	down.Rotate(0, 1)
	if down.Direction() != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("pitch around a vertical light = %v", down.Direction())
	}
}

func near(a, b mgl32.Vec3, tol float32) bool {
	return a.Sub(b).Len() < tol
}
