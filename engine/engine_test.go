package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/generator"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/tracer"
	"github.com/cogentcore/webgpu/wgpu"
)

// fakeWindow records callbacks so tests can replay input without GLFW.
type fakeWindow struct {
	onUpdate    func()
	onResize    func(width, height int)
	onKeyDown   func(keyCode uint32)
	onKeyUp     func(keyCode uint32)
	onMouseDown func(button int, x, y int32)
	onMouseUp   func(button int, x, y int32)
	onMouseMove func(x, y int32)

	title  string
	closed bool
}

func (w *fakeWindow) SetUpdateCallback(cb func()) { w.onUpdate = cb }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetScrollCallback(cb func(delta float32)) {}
func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32)) { w.onKeyDown = cb }
func (w *fakeWindow) SetKeyUpCallback(cb func(keyCode uint32)) { w.onKeyUp = cb }
func (w *fakeWindow) SetMouseDownCallback(cb func(button int, x, y int32)) { w.onMouseDown = cb }
func (w *fakeWindow) SetMouseUpCallback(cb func(button int, x, y int32)) { w.onMouseUp = cb }
func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y int32)) { w.onMouseMove = cb }
func (w *fakeWindow) SetTitle(title string) { w.title = title }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool { return !w.closed }
func (w *fakeWindow) RequestClose() {}
func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}
func (w *fakeWindow) ProcessMessages() {}
func (w *fakeWindow) Width() int { return 16 }
func (w *fakeWindow) Height() int { return 12 }

func newHeadlessScene(t *testing.T, name string, active bool) scene.Scene {
	t.Helper()
	device := tracer.NewCPUDevice(tracer.WithWorkers(1))
	t.Cleanup(func() { device.Release() })

	ctrl, err := tracer.NewController(device,
		tracer.WithSeed(11),
		tracer.WithGenerator(generator.NewGenerator(generator.WithMaxCount(4))),
	)
	if err != nil {
		t.Fatal(err)
	}
	return scene.NewScene(name, nil, nil, ctrl, scene.WithViewport(8, 8), scene.WithActive(active))
}

func TestRenderFrameOnlyActiveScenes(t *testing.T) {
	active := newHeadlessScene(t, "active", true)
	idle := newHeadlessScene(t, "idle", false)
	p := profiler.NewProfiler(profiler.WithQuiet(true), profiler.WithUpdateInterval(0))

	e := NewEngine(WithScene(1, idle), WithScene(0, active), WithProfiling(true), WithProfiler(p)).(*engine)
	e.renderFrame(0.016)
	e.renderFrame(0.016)

	if got := active.Controller().SampleCount(); got != 2 {
		t.Errorf("active scene samples = %d, want 2", got)
	}
	if got := idle.Controller().State(); got != tracer.StateUninitialized {
		t.Errorf("idle scene state = %v", got)
	}

	time.Sleep(time.Millisecond)
	p.Tick()
	if r := p.Last(); r.SampleCount != 2 || r.SamplesPerSecond <= 0 {
		t.Errorf("profiler report = %+v", r)
	}
}

func TestSortedScenesOrder(t *testing.T) {
	e := NewEngine().(*engine)
	e.AddScene(5, newHeadlessScene(t, "five", true))
	e.AddScene(-1, newHeadlessScene(t, "minus", false))
	e.AddScene(2, newHeadlessScene(t, "two", true))

	all := e.sortedScenes(false)
	if len(all) != 3 || all[0].Name() != "minus" || all[1].Name() != "two" || all[2].Name() != "five" {
		t.Errorf("unexpected order")
	}
	if active := e.sortedScenes(true); len(active) != 2 || active[0].Name() != "two" {
		t.Errorf("active scenes = %d", len(active))
	}

	e.RemoveScene(2)
	if e.Scene(2) != nil || len(e.Scenes()) != 2 {
		t.Error("RemoveScene did not remove")
	}
}

func TestWindowInputRouting(t *testing.T) {
	w := &fakeWindow{}
	s := newHeadlessScene(t, "main", true)
	NewEngine(WithWindow(w), WithScene(0, s))

	s.OnFrame(0.016)
	s.OnFrame(0.016)
	before := s.Controller().Scene()

	w.onKeyDown(common.KeyG)
	if s.Controller().SampleCount() != 0 {
		t.Error("G did not regenerate the scene")
	}
	if after := s.Controller().Scene(); len(before) > 0 && len(after) > 0 && before[0] == after[0] {
		t.Error("G kept the same spheres")
	}

	w.onKeyDown(common.KeyW)
	if !s.Camera().Update(0.1) {
		t.Error("W was not forwarded to the camera")
	}
	w.onKeyUp(common.KeyW)
	if s.Camera().Update(0.1) {
		t.Error("key up was not forwarded to the camera")
	}

	w.onMouseDown(common.MouseButtonLeft, 10, 10)
	w.onMouseMove(20, 10)
	w.onMouseUp(common.MouseButtonLeft, 20, 10)
	if !s.Camera().Update(0.1) {
		t.Error("mouse drag was not forwarded to the camera")
	}

	w.onResize(40, 20)
	if width, height := s.Viewport(); width != 40 || height != 20 {
		t.Errorf("viewport after resize = %dx%d", width, height)
	}

	w.onUpdate()
	if w.title == "" {
		t.Error("update callback did not set the title")
	}
}

func TestRunReleasesScenes(t *testing.T) {
	w := &fakeWindow{}
	s := newHeadlessScene(t, "main", true)
	e := NewEngine(WithWindow(w), WithScene(0, s), WithTickRate(1000))

	e.Run()

	if !w.closed {
		t.Error("Run did not close the window")
	}
	if err := s.Release(); !errors.Is(err, tracer.ErrReleased) {
		t.Errorf("scene was not released by Run: %v", err)
	}
	e.Quit()
}

func TestFrameLimitOptions(t *testing.T) {
	e := NewEngine(WithRenderFrameLimit(120), WithTickRate(30)).(*engine)
	if e.renderFrameLimit != time.Second/120 {
		t.Errorf("frame limit = %v", e.renderFrameLimit)
	}
	if e.engineTickRate != time.Second/30 {
		t.Errorf("tick rate = %v", e.engineTickRate)
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit != 0 {
		t.Error("SetRenderFrameLimit(0) did not uncap")
	}
}

func TestProfilerToggleKey(t *testing.T) {
	w := &fakeWindow{}
	e := NewEngine(WithWindow(w)).(*engine)

	w.onKeyDown(common.KeyP)
	if !e.profiling() {
		t.Error("P did not enable the profiler")
	}
	w.onKeyDown(common.KeyP)
	if e.profiling() {
		t.Error("second P did not disable the profiler")
	}
}
