package tracer

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

func coordinateKernel(params *kernel.TraceParams, scene geometry.Scene, env kernel.Environment, x, y int) mgl32.Vec4 {
	return mgl32.Vec4{float32(x), float32(y), float32(len(scene)), 1}
}

func frameIndexKernel(params *kernel.TraceParams, scene geometry.Scene, env kernel.Environment, x, y int) mgl32.Vec4 {
	v := float32(params.FrameIndex)
	return mgl32.Vec4{v, 2 * v, 0, 1}
}

func TestCPUDeviceTraceCoversEveryPixel(t *testing.T) {
	d := NewCPUDevice(WithWorkers(3), WithKernel(coordinateKernel))
	defer d.Release()

	img, err := d.NewImage(13, 9)
	if err != nil {
		t.Fatal(err)
	}
	scene, _ := d.NewSceneBuffer(geometry.Scene{{Radius: 1}, {Radius: 2}})
	if err := d.Trace(kernel.TraceParams{}, scene, img, kernel.GroupCount(13, 9)); err != nil {
		t.Fatal(err)
	}

	pixels, err := d.Snapshot(img)
	if err != nil {
		t.Fatal(err)
	}
	for y := range 9 {
		for x := range 13 {
			want := mgl32.Vec4{float32(x), float32(y), 2, 1}
			if got := pixels[y*13+x]; got != want {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCPUDeviceMatchesReferenceKernel(t *testing.T) {
	d := NewCPUDevice(WithWorkers(2))
	defer d.Release()

	scene := geometry.Scene{
		{Position: mgl32.Vec3{0, 1, 5}, Radius: 1, Albedo: mgl32.Vec3{0.8, 0.2, 0.2}, Specular: mgl32.Vec3{0.04, 0.04, 0.04}},
		{Position: mgl32.Vec3{2, 1, 6}, Radius: 1, Specular: mgl32.Vec3{0.9, 0.9, 0.9}},
	}
	params := kernel.TraceParams{
		CameraToWorld:     mgl32.Translate3D(0, 1, 0),
		InverseProjection: mgl32.Perspective(mgl32.DegToRad(60), 1, 0.3, 1000).Inv(),
		PixelOffset:       mgl32.Vec2{0.5, 0.5},
		SphereCount:       uint32(len(scene)),
		Light:             mgl32.Vec4{0, -1, 0, 1},
		Width:             16,
		Height:            16,
	}

	img, _ := d.NewImage(16, 16)
	buf, _ := d.NewSceneBuffer(scene)
	if err := d.Trace(params, buf, img, kernel.GroupCount(16, 16)); err != nil {
		t.Fatal(err)
	}
	pixels, _ := d.Snapshot(img)

	for _, p := range [][2]int{{0, 0}, {8, 8}, {15, 3}, {7, 12}} {
		want := kernel.TracePixel(&params, scene, nil, p[0], p[1])
		if got := pixels[p[1]*16+p[0]]; got != want {
			t.Errorf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestCPUDeviceAccumulateConvergesToMean(t *testing.T) {
	d := NewCPUDevice(WithWorkers(2), WithKernel(frameIndexKernel))
	defer d.Release()

	c := newTestController(t, d, 3)
	f := testFrame(10, 6)

	const n = 6
	var accum Image
	for range n {
		var err error
		if accum, err = c.RenderFrame(f); err != nil {
			t.Fatal(err)
		}
	}

	pixels, err := d.Snapshot(accum)
	if err != nil {
		t.Fatal(err)
	}
	mean := float32(n-1) / 2
	for i, p := range pixels {
		if math.Abs(float64(p.X()-mean)) > 1e-4 || math.Abs(float64(p.Y()-2*mean)) > 1e-4 {
			t.Fatalf("pixel %d = %v, want mean %v", i, p, mean)
		}
	}
	if d.Presented() != n {
		t.Errorf("presented = %d, want %d", d.Presented(), n)
	}
}

func TestCPUDeviceAccumulateFullWeightReplaces(t *testing.T) {
	d := NewCPUDevice(WithWorkers(1), WithKernel(coordinateKernel))
	defer d.Release()

	frame, _ := d.NewImage(4, 4)
	accum, _ := d.NewImage(4, 4)
	scene, _ := d.NewSceneBuffer(nil)
	d.Trace(kernel.TraceParams{}, scene, frame, kernel.GroupCount(4, 4))

	if err := d.Accumulate(frame, accum, 1); err != nil {
		t.Fatal(err)
	}
	want, _ := d.Snapshot(frame)
	got, _ := d.Snapshot(accum)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCPUDeviceAccumulateSizeMismatch(t *testing.T) {
	d := NewCPUDevice(WithWorkers(1))
	defer d.Release()

	a, _ := d.NewImage(4, 4)
	b, _ := d.NewImage(8, 4)
	if err := d.Accumulate(a, b, 0.5); err == nil {
		t.Error("expected a size mismatch error")
	}
}

func TestCPUDevicePresentFunc(t *testing.T) {
	var gotW, gotH, calls int
	d := NewCPUDevice(WithWorkers(1), WithPresentFunc(func(pixels []mgl32.Vec4, w, h int) {
		calls++
		gotW, gotH = w, h
		if len(pixels) != w*h {
			t.Errorf("present got %d pixels for %dx%d", len(pixels), w, h)
		}
	}))
	defer d.Release()

	img, _ := d.NewImage(5, 3)
	if err := d.Present(img); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || gotW != 5 || gotH != 3 {
		t.Errorf("present callback: %d calls, %dx%d", calls, gotW, gotH)
	}
}

func TestCPUDeviceRejectsReleasedResources(t *testing.T) {
	d := NewCPUDevice(WithWorkers(1))

	img, _ := d.NewImage(2, 2)
	img.Release()
	if _, err := d.Snapshot(img); !errors.Is(err, ErrReleased) {
		t.Errorf("Snapshot of released image = %v, want ErrReleased", err)
	}

	if _, err := d.NewImage(0, 2); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("NewImage(0, 2) = %v, want ErrInvalidViewport", err)
	}

	if err := d.Release(); err != nil {
		t.Fatal(err)
	}
	if err := d.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release = %v, want ErrReleased", err)
	}
	if _, err := d.NewImage(2, 2); !errors.Is(err, ErrReleased) {
		t.Errorf("NewImage after Release = %v, want ErrReleased", err)
	}
}
