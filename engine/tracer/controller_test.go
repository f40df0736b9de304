package tracer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/generator"
	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// trackingDevice records every call and counts live allocations. The peaks are the most
// resources that were ever live at once.
type trackingDevice struct {
	liveImages, liveScenes int
	peakImages, peakScenes int
	allocated              [][2]int
	traces                 []kernel.TraceParams
	groups                 [][3]uint32
	weights                []float32
	presents               int

	traceErr error
	imageErr error
	sceneErr error
}

type trackedImage struct {
	releaseOnce
	d             *trackingDevice
	width, height int
}

func (i *trackedImage) Width() int  { return i.width }
func (i *trackedImage) Height() int { return i.height }
func (i *trackedImage) Release() error {
	return i.release(func() { i.d.liveImages-- })
}

type trackedScene struct {
	releaseOnce
	d *trackingDevice
	n int
}

func (s *trackedScene) Len() int { return s.n }
func (s *trackedScene) Release() error {
	return s.release(func() { s.d.liveScenes-- })
}

func (d *trackingDevice) NewImage(width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}
	if d.imageErr != nil {
		return nil, d.imageErr
	}
	d.liveImages++
	d.peakImages = max(d.peakImages, d.liveImages)
	d.allocated = append(d.allocated, [2]int{width, height})
	return &trackedImage{d: d, width: width, height: height}, nil
}

func (d *trackingDevice) NewSceneBuffer(scene geometry.Scene) (SceneBuffer, error) {
	if d.sceneErr != nil {
		return nil, d.sceneErr
	}
	d.liveScenes++
	d.peakScenes = max(d.peakScenes, d.liveScenes)
	return &trackedScene{d: d, n: len(scene)}, nil
}

func (d *trackingDevice) Trace(params kernel.TraceParams, scene SceneBuffer, target Image, groups [3]uint32) error {
	if d.traceErr != nil {
		return d.traceErr
	}
	d.traces = append(d.traces, params)
	d.groups = append(d.groups, groups)
	return nil
}

func (d *trackingDevice) Accumulate(frame, accum Image, weight float32) error {
	d.weights = append(d.weights, weight)
	return nil
}

func (d *trackingDevice) Present(accum Image) error {
	d.presents++
	return nil
}

func newTestController(t *testing.T, d Device, maxCount int) Controller {
	t.Helper()
	c, err := NewController(d,
		WithSeed(7),
		WithGenerator(generator.NewGenerator(generator.WithMaxCount(maxCount))),
	)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	return c
}

func testFrame(width, height int) Frame {
	return Frame{
		CameraToWorld:     mgl32.Translate3D(0, 5, -20),
		InverseProjection: mgl32.Perspective(mgl32.DegToRad(60), float32(width)/float32(height), 0.3, 1000).Inv(),
		LightDirection:    mgl32.Vec3{0.3, -1, 0.2}.Normalize(),
		LightIntensity:    1,
		Width:             width,
		Height:            height,
	}
}

func TestNewControllerRequiresDevice(t *testing.T) {
	if _, err := NewController(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewController(nil) error = %v, want ErrNoDevice", err)
	}
}

func TestRenderFrameInvalidViewport(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)

	for _, f := range []Frame{testFrame(0, 600), testFrame(800, 0), testFrame(-1, -1)} {
		if _, err := c.RenderFrame(f); !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("RenderFrame(%dx%d) error = %v, want ErrInvalidViewport", f.Width, f.Height, err)
		}
	}
	if d.presents != 0 || len(d.traces) != 0 {
		t.Errorf("invalid viewport rendered: %d traces, %d presents", len(d.traces), d.presents)
	}
	if c.SampleCount() != 0 || c.State() != StateUninitialized {
		t.Errorf("invalid viewport changed state: count %d, state %v", c.SampleCount(), c.State())
	}
}

func TestRenderFrameAccumulatesWhileStatic(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)
	f := testFrame(64, 48)

	for i := range 4 {
		if _, err := c.RenderFrame(f); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if c.SampleCount() != 4 || c.State() != StateAccumulating {
		t.Fatalf("after 4 static frames: count %d, state %v", c.SampleCount(), c.State())
	}
	want := []float32{1, 0.5, 1.0 / 3, 0.25}
	for i, w := range want {
		if d.weights[i] != w {
			t.Errorf("weight %d = %v, want %v", i, d.weights[i], w)
		}
		if d.traces[i].FrameIndex != uint32(i) {
			t.Errorf("frame index %d = %d", i, d.traces[i].FrameIndex)
		}
	}
	if d.presents != 4 {
		t.Errorf("presents = %d, want 4", d.presents)
	}
}

func TestRenderFrameResetsOnCameraOrLightChange(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)
	f := testFrame(32, 32)

	for range 3 {
		c.RenderFrame(f)
	}

	moved := f
	moved.CameraToWorld = mgl32.Translate3D(0, 5, -19)
	if _, err := c.RenderFrame(moved); err != nil {
		t.Fatal(err)
	}
	if c.SampleCount() != 1 || d.weights[3] != 1 {
		t.Errorf("camera move: count %d, weight %v, want 1 and 1", c.SampleCount(), d.weights[3])
	}

	c.RenderFrame(moved)
	lit := moved
	lit.LightDirection = mgl32.Vec3{0, -1, 0}
	c.RenderFrame(lit)
	if c.SampleCount() != 1 {
		t.Errorf("light change: count %d, want 1", c.SampleCount())
	}

	// Intensity alone is not part of the snapshot.
	brighter := lit
	brighter.LightIntensity = 2
	c.RenderFrame(brighter)
	if c.SampleCount() != 2 {
		t.Errorf("intensity change: count %d, want 2", c.SampleCount())
	}
}

func TestRenderFrameJitterAndParams(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 5)
	f := testFrame(100, 50)
	c.RenderFrame(f)
	c.RenderFrame(f)

	p := d.traces[1]
	if p.PixelOffset.X() < 0 || p.PixelOffset.X() >= 1 || p.PixelOffset.Y() < 0 || p.PixelOffset.Y() >= 1 {
		t.Errorf("pixel offset %v outside [0, 1)", p.PixelOffset)
	}
	if p.PixelOffset == d.traces[0].PixelOffset {
		t.Error("jitter did not change between frames")
	}
	if p.Width != 100 || p.Height != 50 || p.SphereCount != uint32(len(c.Scene())) {
		t.Errorf("params = %dx%d with %d spheres", p.Width, p.Height, p.SphereCount)
	}
	if p.Light != f.LightDirection.Vec4(1) {
		t.Errorf("light = %v", p.Light)
	}
	if d.groups[1] != [3]uint32{13, 7, 1} {
		t.Errorf("groups = %v, want [13 7 1]", d.groups[1])
	}
}

func TestResizeReallocatesImages(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)

	small := testFrame(800, 600)
	for range 5 {
		c.RenderFrame(small)
	}
	if d.liveImages != 2 {
		t.Fatalf("live images after first size = %d, want 2", d.liveImages)
	}

	large := small
	large.Width, large.Height = 1920, 1080
	if _, err := c.RenderFrame(large); err != nil {
		t.Fatal(err)
	}
	if d.liveImages != 2 {
		t.Errorf("live images after resize = %d, want 2 (old pair released)", d.liveImages)
	}
	if len(d.allocated) != 4 || d.allocated[2] != [2]int{1920, 1080} || d.allocated[3] != [2]int{1920, 1080} {
		t.Errorf("allocations = %v", d.allocated)
	}
	if c.SampleCount() != 1 || d.weights[len(d.weights)-1] != 1 {
		t.Errorf("resize did not discard samples: count %d", c.SampleCount())
	}
	if d.groups[len(d.groups)-1] != [3]uint32{240, 135, 1} {
		t.Errorf("groups = %v, want [240 135 1]", d.groups[len(d.groups)-1])
	}
}

func TestOldResourcesReleasedBeforeNewOnes(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)

	small := testFrame(800, 600)
	c.RenderFrame(small)
	c.RenderFrame(small)

	large := small
	large.Width, large.Height = 1920, 1080
	c.RenderFrame(large)

	for range 2 {
		if err := c.OnSceneReset(); err != nil {
			t.Fatal(err)
		}
		c.RenderFrame(large)
	}

	if d.peakImages != 2 {
		t.Errorf("peak live images = %d, want 2", d.peakImages)
	}
	if d.peakScenes != 1 {
		t.Errorf("peak live scene buffers = %d, want 1", d.peakScenes)
	}
	if len(d.allocated) != 4 {
		t.Errorf("allocations = %v", d.allocated)
	}
}

func TestFailedAllocationLeavesNoStaleState(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 5)
	f := testFrame(16, 16)
	c.RenderFrame(f)
	c.RenderFrame(f)

	boom := errors.New("out of memory")
	d.imageErr = boom
	resized := f
	resized.Width = 32
	if _, err := c.RenderFrame(resized); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped allocation error", err)
	}
	if d.liveImages != 0 {
		t.Errorf("live images = %d, want 0", d.liveImages)
	}
	if c.State() != StateUninitialized || c.SampleCount() != 0 {
		t.Errorf("state = %v count = %d after failed allocation", c.State(), c.SampleCount())
	}

	d.imageErr = nil
	if _, err := c.RenderFrame(resized); err != nil {
		t.Fatal(err)
	}
	if d.liveImages != 2 || c.SampleCount() != 1 {
		t.Errorf("recovery: live images %d, count %d", d.liveImages, c.SampleCount())
	}
}

func TestFailedSceneUploadClearsScene(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 5)
	c.RenderFrame(testFrame(8, 8))
	if len(c.Scene()) == 0 {
		t.Fatal("expected a generated scene")
	}

	boom := errors.New("upload failed")
	d.sceneErr = boom
	if err := c.OnSceneReset(); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped upload error", err)
	}
	if c.Scene() != nil {
		t.Errorf("Scene() = %d spheres after failed upload, want nil", len(c.Scene()))
	}
	if d.liveScenes != 0 {
		t.Errorf("live scene buffers = %d, want 0", d.liveScenes)
	}
}

func TestOnSceneResetKeepsOneSceneBuffer(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 20)
	f := testFrame(16, 16)

	c.RenderFrame(f)
	c.RenderFrame(f)
	first := c.Scene()

	if err := c.OnSceneReset(); err != nil {
		t.Fatal(err)
	}
	if d.liveScenes != 1 {
		t.Errorf("live scene buffers = %d, want 1", d.liveScenes)
	}
	if c.SampleCount() != 0 {
		t.Errorf("reset kept %d samples", c.SampleCount())
	}
	c.RenderFrame(f)
	if d.weights[len(d.weights)-1] != 1 {
		t.Error("first frame after reset must replace the accumulation image")
	}
	if len(first) > 0 && len(c.Scene()) > 0 && first[0] == c.Scene()[0] {
		t.Error("reset produced the same scene")
	}
}

func TestRenderFrameGeneratesMissingScene(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 10)
	c.RenderFrame(testFrame(8, 8))
	if d.liveScenes != 1 {
		t.Fatal("first frame must generate a scene")
	}

	if err := c.ReleaseScene(); err != nil {
		t.Fatal(err)
	}
	if d.liveScenes != 0 {
		t.Errorf("ReleaseScene left %d scene buffers", d.liveScenes)
	}
	c.RenderFrame(testFrame(8, 8))
	if d.liveScenes != 1 {
		t.Errorf("frame after ReleaseScene: %d scene buffers, want 1", d.liveScenes)
	}
}

func TestEmptySceneStillDispatches(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 0)
	if _, err := c.RenderFrame(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	if len(d.traces) != 1 || d.traces[0].SphereCount != 0 {
		t.Errorf("empty scene: %d traces", len(d.traces))
	}
}

func TestDeviceErrorsPropagate(t *testing.T) {
	boom := errors.New("device lost")
	d := &trackingDevice{traceErr: boom}
	c := newTestController(t, d, 3)
	if _, err := c.RenderFrame(testFrame(8, 8)); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped device error", err)
	}
	if d.presents != 0 || c.SampleCount() != 0 {
		t.Error("failed trace must not present or count")
	}
}

func TestReleaseIsFinal(t *testing.T) {
	d := &trackingDevice{}
	c := newTestController(t, d, 5)
	c.RenderFrame(testFrame(8, 8))

	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if d.liveImages != 0 || d.liveScenes != 0 {
		t.Errorf("Release leaked %d images and %d scene buffers", d.liveImages, d.liveScenes)
	}
	if c.State() != StateReleased {
		t.Errorf("state = %v", c.State())
	}
	if err := c.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release = %v, want ErrReleased", err)
	}
	if _, err := c.RenderFrame(testFrame(8, 8)); !errors.Is(err, ErrReleased) {
		t.Errorf("RenderFrame after Release = %v", err)
	}
	if err := c.OnSceneReset(); !errors.Is(err, ErrReleased) {
		t.Errorf("OnSceneReset after Release = %v", err)
	}
}

func TestResourceDoubleRelease(t *testing.T) {
	d := &trackingDevice{}
	img, _ := d.NewImage(4, 4)
	if err := img.Release(); err != nil {
		t.Fatal(err)
	}
	if err := img.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second release = %v, want ErrReleased", err)
	}
	if d.liveImages != 0 {
		t.Errorf("double release freed twice: live = %d", d.liveImages)
	}
}

func TestControllerWithRandIsReproducible(t *testing.T) {
	render := func() geometry.Scene {
		c, _ := NewController(&trackingDevice{}, WithRand(rand.New(rand.NewSource(42))))
		c.RenderFrame(testFrame(8, 8))
		return c.Scene()
	}
	a, b := render(), render()
	if len(a) != len(b) {
		t.Fatalf("scene sizes differ: %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sphere %d differs", i)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateAccumulating.String() != "accumulating" || State(42).String() != "unknown" {
		t.Error("unexpected State strings")
	}
}
