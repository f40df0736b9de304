package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/generator"
	"github.com/Carmen-Shannon/oxy-trace/engine/light"
	"github.com/Carmen-Shannon/oxy-trace/engine/tracer"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) (Scene, tracer.CPUDevice) {
	t.Helper()
	device := tracer.NewCPUDevice(tracer.WithWorkers(2))
	t.Cleanup(func() { device.Release() })

	ctrl, err := tracer.NewController(device,
		tracer.WithSeed(3),
		tracer.WithGenerator(generator.NewGenerator(generator.WithMaxCount(8))),
	)
	if err != nil {
		t.Fatal(err)
	}
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(
		camera.WithPosition(0, 10, 60),
		camera.WithTarget(0, 0, 0),
	)))
	opts := append([]SceneBuilderOption{WithViewport(16, 12)}, options...)
	return NewScene("test", cam, light.NewLight(), ctrl, opts...), device
}

func TestNewSceneDefaults(t *testing.T) {
	s, _ := newTestScene(t)
	if s.Active() {
		t.Error("new scene should be inactive")
	}
	if w, h := s.Viewport(); w != 16 || h != 12 {
		t.Errorf("viewport = %dx%d", w, h)
	}
	if got := s.Camera().Aspect(); got != 16.0/12.0 {
		t.Errorf("camera aspect = %v", got)
	}
	if s.Renderer() != nil {
		t.Error("headless scene has a renderer")
	}

	bare := NewScene("bare", nil, nil, s.Controller())
	if bare.Camera() == nil || bare.Light() == nil {
		t.Error("nil camera or light was not defaulted")
	}
}

func TestSetActiveRunsHooks(t *testing.T) {
	s, _ := newTestScene(t)

	if err := s.SetActive(true); err != nil {
		t.Fatal(err)
	}
	if s.Controller().Scene() == nil {
		t.Fatal("activation did not generate spheres")
	}

	if err := s.SetActive(false); err != nil {
		t.Fatal(err)
	}
	if s.Active() {
		t.Error("scene still active")
	}

	// Deactivating an inactive scene is a no-op.
	if err := s.SetActive(false); err != nil {
		t.Errorf("second deactivate = %v", err)
	}
}

func TestOnFrameAccumulates(t *testing.T) {
	s, device := newTestScene(t)
	s.SetActive(true)

	for range 3 {
		if err := s.OnFrame(0.016); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Controller().SampleCount(); got != 3 {
		t.Errorf("sample count = %d, want 3", got)
	}
	if device.Presented() != 3 {
		t.Errorf("presented = %d, want 3", device.Presented())
	}
}

func TestCameraMovementRestartsAccumulation(t *testing.T) {
	s, _ := newTestScene(t)
	s.SetActive(true)
	s.OnFrame(0.016)
	s.OnFrame(0.016)

	ctrl := s.Camera().Controller()
	ctrl.KeyDown(common.KeyW)
	s.Tick(0.1)
	ctrl.KeyUp(common.KeyW)

	s.OnFrame(0.016)
	if got := s.Controller().SampleCount(); got != 1 {
		t.Errorf("sample count after moving = %d, want 1", got)
	}

	// An idle tick leaves the camera alone.
	s.Tick(0.1)
	s.OnFrame(0.016)
	if got := s.Controller().SampleCount(); got != 2 {
		t.Errorf("sample count after idle tick = %d, want 2", got)
	}
}

func TestLightChangeRestartsAccumulation(t *testing.T) {
	s, _ := newTestScene(t)
	s.OnFrame(0.016)
	s.OnFrame(0.016)

	s.Light().Rotate(0.1, 0)
	s.OnFrame(0.016)
	if got := s.Controller().SampleCount(); got != 1 {
		t.Errorf("sample count after turning the light = %d, want 1", got)
	}
}

func TestRegenerateReplacesSpheres(t *testing.T) {
	s, _ := newTestScene(t)
	s.SetActive(true)
	s.OnFrame(0.016)
	before := s.Controller().Scene()

	if err := s.OnRegenerateRequested(); err != nil {
		t.Fatal(err)
	}
	if s.Controller().SampleCount() != 0 {
		t.Error("regenerate kept samples")
	}
	after := s.Controller().Scene()
	if len(before) > 0 && len(after) > 0 && before[0] == after[0] {
		t.Error("regenerate produced the same spheres")
	}
}

func TestZeroViewportSkipsFrame(t *testing.T) {
	s, device := newTestScene(t)
	s.OnFrame(0.016)

	s.Resize(0, 0)
	if err := s.OnFrame(0.016); err != nil {
		t.Errorf("minimized frame = %v, want nil", err)
	}
	if device.Presented() != 1 {
		t.Errorf("minimized frame presented: %d", device.Presented())
	}

	s.Resize(32, 8)
	if got := s.Camera().Aspect(); got != 4 {
		t.Errorf("aspect after resize = %v", got)
	}
	s.OnFrame(0.016)
	if s.Controller().SampleCount() != 1 {
		t.Errorf("resize did not restart accumulation: %d", s.Controller().SampleCount())
	}
}

func TestReleaseStopsRendering(t *testing.T) {
	s, _ := newTestScene(t, WithActive(true))
	s.OnFrame(0.016)

	if err := s.Release(); err != nil {
		t.Fatal(err)
	}
	if s.Active() {
		t.Error("released scene still active")
	}
	if err := s.OnFrame(0.016); !errors.Is(err, tracer.ErrReleased) {
		t.Errorf("OnFrame after Release = %v, want ErrReleased", err)
	}
	if err := s.Release(); !errors.Is(err, tracer.ErrReleased) {
		t.Errorf("second Release = %v", err)
	}
}
