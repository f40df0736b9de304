// package geometry holds the primitive types the tracer kernel intersects. Spheres are the only
// primitive; a Scene is a flat list uploaded as a read-only storage buffer.
package geometry

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUSphereSource is the canonical WGSL definition of the Sphere struct.
// Vector members are declared as array<f32, 3> so the storage stride stays at 40 bytes
// instead of the 48 a vec3<f32> member would force.
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// SphereSize is the packed size of a Sphere in bytes: 10 little-endian float32 values.
const SphereSize = 40

// DielectricSpecular is the uniform specular reflectance given to non-metal spheres.
const DielectricSpecular float32 = 0.04

// Sphere is a single sphere primitive. The field order is the wire order and must match GPUSphereSource.
type Sphere struct {
	Position mgl32.Vec3 // offset  0: world-space center
	Radius   float32    // offset 12: radius, > 0
	Albedo   mgl32.Vec3 // offset 16: diffuse reflectance in [0, 1]
	Specular mgl32.Vec3 // offset 28: specular reflectance in [0, 1]
}

// Size returns the packed size of the Sphere in bytes.
//
// Returns:
//   - int: the packed size in bytes (40)
func (s *Sphere) Size() int {
	return SphereSize
}

// Marshal serializes the Sphere into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized 40 byte record
func (s *Sphere) Marshal() []byte {
	buf := make([]byte, SphereSize)
	s.put(buf)
	return buf
}

// Unmarshal decodes a Sphere from the first 40 bytes of data.
//
// Parameters:
//   - data: the packed record, at least 40 bytes long
//
// Returns:
//   - error: an error if data is shorter than a packed Sphere
func (s *Sphere) Unmarshal(data []byte) error {
	if len(data) < SphereSize {
		return fmt.Errorf("sphere record needs %d bytes, got %d", SphereSize, len(data))
	}
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	s.Position = mgl32.Vec3{f(0), f(1), f(2)}
	s.Radius = f(3)
	s.Albedo = mgl32.Vec3{f(4), f(5), f(6)}
	s.Specular = mgl32.Vec3{f(7), f(8), f(9)}
	return nil
}

// IsMetal reports whether the sphere was generated as a metal, which carries its colour in Specular
// and has a zero Albedo.
//
// Returns:
//   - bool: true if Albedo is the zero vector
func (s *Sphere) IsMetal() bool {
	return s.Albedo == mgl32.Vec3{}
}

// Intersects reports whether two spheres overlap, meaning the distance between their centers is
// less than the sum of their radii. Touching spheres do not intersect.
//
// Parameters:
//   - other: the sphere to test against
//
// Returns:
//   - bool: true if the spheres overlap
func (s *Sphere) Intersects(other Sphere) bool {
	return s.Position.Sub(other.Position).Len() < s.Radius+other.Radius
}

func (s *Sphere) put(buf []byte) {
	fields := [10]float32{
		s.Position[0], s.Position[1], s.Position[2],
		s.Radius,
		s.Albedo[0], s.Albedo[1], s.Albedo[2],
		s.Specular[0], s.Specular[1], s.Specular[2],
	}
	for i, v := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

// Scene is an ordered list of spheres. Order has no effect on rendering but is fixed for the lifetime
// of one GPU upload.
type Scene []Sphere

// Marshal packs every sphere back to back into a single buffer.
//
// Returns:
//   - []byte: len(sc)*40 bytes, empty for an empty scene
func (sc Scene) Marshal() []byte {
	buf := make([]byte, len(sc)*SphereSize)
	for i := range sc {
		sc[i].put(buf[i*SphereSize:])
	}
	return buf
}

// UnmarshalScene decodes a buffer of packed spheres. The buffer length must be a multiple of 40.
//
// Parameters:
//   - data: the packed sphere records
//
// Returns:
//   - Scene: the decoded spheres in buffer order
//   - error: an error if the length is not a whole number of records
func UnmarshalScene(data []byte) (Scene, error) {
	if len(data)%SphereSize != 0 {
		return nil, fmt.Errorf("scene buffer length %d is not a multiple of %d", len(data), SphereSize)
	}
	sc := make(Scene, len(data)/SphereSize)
	for i := range sc {
		if err := sc[i].Unmarshal(data[i*SphereSize:]); err != nil {
			return nil, err
		}
	}
	return sc, nil
}
