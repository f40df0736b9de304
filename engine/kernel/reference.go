package kernel

import (
	"math"

	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// Constants shared with trace.wgsl.
const (
	MaxBounces     = 8
	far            = 1.0e30
	epsilon        = 0.001
	groundAlbedo   = 0.8
	groundSpecular = 0.04
)

// Environment is what a ray sees when it leaves the scene.
type Environment interface {
	// Sample returns the linear RGB radiance stored at equirectangular coordinate (u, v).
	// u wraps around the horizon and v runs from the zenith (0) to the nadir (1).
	//
	// Parameters:
	//   - u: the horizontal texture coordinate
	//   - v: the vertical texture coordinate
	//
	// Returns:
	//   - mgl32.Vec3: the sampled colour
	Sample(u, v float32) mgl32.Vec3
}

type ray struct {
	origin    mgl32.Vec3
	direction mgl32.Vec3
	energy    mgl32.Vec3
}

type rayHit struct {
	position mgl32.Vec3
	distance float32
	normal   mgl32.Vec3
	albedo   mgl32.Vec3
	specular mgl32.Vec3
}

// TracePixel evaluates the trace kernel for a single pixel on the CPU. It follows trace.wgsl
// operation for operation and is what the reference device dispatches per tile.
//
// Parameters:
//   - params: the frame parameters
//   - scene: the spheres to intersect, truncated to params.SphereCount
//   - env: the environment seen by escaping rays
//   - x: the pixel column
//   - y: the pixel row, 0 at the top
//
// Returns:
//   - mgl32.Vec4: the traced RGB sample with alpha 1
func TracePixel(params *TraceParams, scene geometry.Scene, env Environment, x, y int) mgl32.Vec4 {
	if int(params.SphereCount) < len(scene) {
		scene = scene[:params.SphereCount]
	}

	u := (float32(x)+params.PixelOffset.X())/float32(params.Width)*2 - 1
	v := 1 - (float32(y)+params.PixelOffset.Y())/float32(params.Height)*2
	r := cameraRay(params, u, v)

	var result mgl32.Vec3
	lightDir := params.Light.Vec3()
	for range MaxBounces {
		hit := traceRay(r, scene)
		if hit.distance < far {
			energy := r.energy
			r.origin = hit.position.Add(hit.normal.Mul(epsilon))
			r.direction = reflect(r.direction, hit.normal)
			r.energy = mulComponents(energy, hit.specular)

			shadow := traceRay(ray{origin: r.origin, direction: lightDir.Mul(-1)}, scene)
			if shadow.distance >= far {
				diffuse := saturate(-hit.normal.Dot(lightDir)) * params.Light.W()
				result = result.Add(mulComponents(energy, hit.albedo).Mul(diffuse))
			}
		} else {
			if env != nil {
				result = result.Add(mulComponents(r.energy, sampleEnvironment(env, r.direction)))
			}
			r.energy = mgl32.Vec3{}
		}

		if r.energy.X() <= 0 && r.energy.Y() <= 0 && r.energy.Z() <= 0 {
			break
		}
	}
	return result.Vec4(1)
}

func cameraRay(params *TraceParams, u, v float32) ray {
	origin := params.CameraToWorld.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	view := params.InverseProjection.Mul4x1(mgl32.Vec4{u, v, 0, 1}).Vec3()
	direction := params.CameraToWorld.Mul4x1(view.Vec4(0)).Vec3().Normalize()
	return ray{origin: origin, direction: direction, energy: mgl32.Vec3{1, 1, 1}}
}

func missed() rayHit {
	return rayHit{distance: far}
}

func traceRay(r ray, scene geometry.Scene) rayHit {
	best := intersectGround(r, missed())
	for i := range scene {
		best = intersectSphere(r, best, &scene[i])
	}
	return best
}

func intersectGround(r ray, best rayHit) rayHit {
	t := -r.origin.Y() / r.direction.Y()
	if t > 0 && t < best.distance {
		best.distance = t
		best.position = r.origin.Add(r.direction.Mul(t))
		best.normal = mgl32.Vec3{0, 1, 0}
		best.albedo = mgl32.Vec3{groundAlbedo, groundAlbedo, groundAlbedo}
		best.specular = mgl32.Vec3{groundSpecular, groundSpecular, groundSpecular}
	}
	return best
}

func intersectSphere(r ray, best rayHit, s *geometry.Sphere) rayHit {
	d := r.origin.Sub(s.Position)
	p1 := -r.direction.Dot(d)
	p2sqr := p1*p1 - d.Dot(d) + s.Radius*s.Radius
	if p2sqr < 0 {
		return best
	}
	p2 := float32(math.Sqrt(float64(p2sqr)))
	t := p1 - p2
	if t <= 0 {
		t = p1 + p2
	}
	if t > 0 && t < best.distance {
		best.distance = t
		best.position = r.origin.Add(r.direction.Mul(t))
		best.normal = best.position.Sub(s.Position).Normalize()
		best.albedo = s.Albedo
		best.specular = s.Specular
	}
	return best
}

func sampleEnvironment(env Environment, direction mgl32.Vec3) mgl32.Vec3 {
	y := mgl32.Clamp(direction.Y(), -1, 1)
	v := float32(math.Acos(float64(y)) / math.Pi)
	u := float32(0.5 - math.Atan2(float64(direction.X()), float64(-direction.Z()))/(2*math.Pi))
	return env.Sample(u, v)
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

func mulComponents(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func saturate(x float32) float32 {
	return mgl32.Clamp(x, 0, 1)
}
