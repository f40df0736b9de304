package kernel

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTraceParamsLayout(t *testing.T) {
	p := TraceParams{
		CameraToWorld:     mgl32.Translate3D(1, 2, 3),
		InverseProjection: mgl32.Scale3D(4, 5, 6),
		PixelOffset:       mgl32.Vec2{0.25, 0.75},
		SphereCount:       17,
		FrameIndex:        9,
		Light:             mgl32.Vec4{0, -1, 0, 1.5},
		Width:             800,
		Height:            600,
	}
	buf := p.Marshal()
	if len(buf) != p.Size() || p.Size() != 176 {
		t.Fatalf("expected 176 bytes, got len %d size %d", len(buf), p.Size())
	}

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	if f32(48) != 1 || f32(52) != 2 || f32(56) != 3 {
		t.Errorf("camera translation not at column 3: %v %v %v", f32(48), f32(52), f32(56))
	}
	if f32(64) != 4 || f32(84) != 5 || f32(104) != 6 {
		t.Errorf("inverse projection diagonal mismatch: %v %v %v", f32(64), f32(84), f32(104))
	}
	if f32(128) != 0.25 || f32(132) != 0.75 {
		t.Errorf("pixel offset = (%v, %v)", f32(128), f32(132))
	}
	if u32(136) != 17 || u32(140) != 9 {
		t.Errorf("sphere count %d frame index %d", u32(136), u32(140))
	}
	if f32(148) != -1 || f32(156) != 1.5 {
		t.Errorf("light = (_, %v, _, %v)", f32(148), f32(156))
	}
	if u32(160) != 800 || u32(164) != 600 {
		t.Errorf("resolution = %dx%d", u32(160), u32(164))
	}
}

func TestBlendParamsLayout(t *testing.T) {
	p := BlendParams{Width: 1920, Height: 1080, Weight: 0.125}
	buf := p.Marshal()
	if len(buf) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:]) != 1920 || binary.LittleEndian.Uint32(buf[4:]) != 1080 {
		t.Error("resolution not packed at the start of the block")
	}
	if w := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])); w != 0.125 {
		t.Errorf("weight = %v, want 0.125", w)
	}
}

func TestGroupCount(t *testing.T) {
	tests := []struct {
		w, h int
		want [3]uint32
	}{
		{800, 600, [3]uint32{100, 75, 1}},
		{1920, 1080, [3]uint32{240, 135, 1}},
		{1, 1, [3]uint32{1, 1, 1}},
		{9, 17, [3]uint32{2, 3, 1}},
		{8, 8, [3]uint32{1, 1, 1}},
	}
	for _, tt := range tests {
		if got := GroupCount(tt.w, tt.h); got != tt.want {
			t.Errorf("GroupCount(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestBlendWeight(t *testing.T) {
	if BlendWeight(0) != 1 {
		t.Errorf("first sample must fully replace the accumulation, got %v", BlendWeight(0))
	}
	if BlendWeight(3) != 0.25 {
		t.Errorf("BlendWeight(3) = %v, want 0.25", BlendWeight(3))
	}
}

func TestKernelSourcesDeclareContract(t *testing.T) {
	checks := map[string][]string{
		"trace":            {TraceSource, "@workgroup_size(8, 8, 1)", "trace_main", "//@oxy:include sphere"},
		"accumulate":       {AccumulateSource, "@workgroup_size(8, 8, 1)", "accumulate_main"},
		"present_vertex":   {PresentVertexSource, "@vertex", "present_vs"},
		"present_fragment": {PresentFragmentSource, "@fragment", "present_fs"},
		"trace_params":     {GPUTraceParamsSource, "struct TraceParams", "camera_to_world"},
		"blend_params":     {GPUBlendParamsSource, "struct BlendParams", "weight"},
	}
	for name, c := range checks {
		for _, want := range c[1:] {
			if !strings.Contains(c[0], want) {
				t.Errorf("%s source is missing %q", name, want)
			}
		}
	}
}

type constantEnvironment struct {
	color  mgl32.Vec3
	lastUV mgl32.Vec2
}

func (e *constantEnvironment) Sample(u, v float32) mgl32.Vec3 {
	e.lastUV = mgl32.Vec2{u, v}
	return e.color
}

func centerPixelParams(cameraToWorld mgl32.Mat4, count int) *TraceParams {
	return &TraceParams{
		CameraToWorld:     cameraToWorld,
		InverseProjection: mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 1000).Inv(),
		PixelOffset:       mgl32.Vec2{0.5, 0.5},
		SphereCount:       uint32(count),
		Light:             mgl32.Vec4{0, -1, 0, 1},
		Width:             1,
		Height:            1,
	}
}

func lookingDown(height float32) mgl32.Mat4 {
	return mgl32.Translate3D(0, height, 0).Mul4(mgl32.HomogRotate3DX(-math.Pi / 2))
}

func approxVec(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestTracePixelLitGround(t *testing.T) {
	got := TracePixel(centerPixelParams(lookingDown(10), 0), nil, nil, 0, 0)
	if !approxVec(got.Vec3(), mgl32.Vec3{0.8, 0.8, 0.8}) || got.W() != 1 {
		t.Errorf("lit ground = %v, want (0.8, 0.8, 0.8, 1)", got)
	}
}

func TestTracePixelSphereAndSky(t *testing.T) {
	scene := geometry.Scene{{
		Position: mgl32.Vec3{0, 3, 0},
		Radius:   3,
		Albedo:   mgl32.Vec3{1, 0, 0},
		Specular: mgl32.Vec3{0.04, 0.04, 0.04},
	}}
	env := &constantEnvironment{color: mgl32.Vec3{0.5, 0.5, 0.5}}
	got := TracePixel(centerPixelParams(lookingDown(10), len(scene)), scene, env, 0, 0)
	want := mgl32.Vec3{1.02, 0.02, 0.02}
	if !approxVec(got.Vec3(), want) {
		t.Errorf("sphere top = %v, want %v", got.Vec3(), want)
	}
	if env.lastUV.Y() > 1e-3 {
		t.Errorf("reflected ray straight up should sample the zenith, got v=%v", env.lastUV.Y())
	}
}

func TestTracePixelShadowed(t *testing.T) {
	// A sphere above the camera blocks the light without being seen.
	scene := geometry.Scene{{
		Position: mgl32.Vec3{0, 20, 0},
		Radius:   1,
		Albedo:   mgl32.Vec3{1, 1, 1},
		Specular: mgl32.Vec3{0.04, 0.04, 0.04},
	}}
	got := TracePixel(centerPixelParams(lookingDown(10), len(scene)), scene, nil, 0, 0)
	if !approxVec(got.Vec3(), mgl32.Vec3{}) {
		t.Errorf("shadowed ground = %v, want black", got.Vec3())
	}
}

func TestTracePixelHonoursSphereCount(t *testing.T) {
	scene := geometry.Scene{{
		Position: mgl32.Vec3{0, 3, 0},
		Radius:   3,
		Albedo:   mgl32.Vec3{1, 0, 0},
		Specular: mgl32.Vec3{0.04, 0.04, 0.04},
	}}
	got := TracePixel(centerPixelParams(lookingDown(10), 0), scene, nil, 0, 0)
	if !approxVec(got.Vec3(), mgl32.Vec3{0.8, 0.8, 0.8}) {
		t.Errorf("spheres beyond SphereCount must be ignored, got %v", got.Vec3())
	}
}

func TestTracePixelSkyOnly(t *testing.T) {
	up := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.HomogRotate3DX(math.Pi / 2))
	env := &constantEnvironment{color: mgl32.Vec3{0.2, 0.4, 0.6}}
	got := TracePixel(centerPixelParams(up, 0), nil, env, 0, 0)
	if !approxVec(got.Vec3(), env.color) {
		t.Errorf("sky pixel = %v, want %v", got.Vec3(), env.color)
	}
}
