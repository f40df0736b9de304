package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/light"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/tracer"
)

// Scene binds a camera and a directional light to a progressive trace controller and exposes the
// host lifecycle hooks that drive it. Scenes can be hot-swapped via the Active flag: activating a
// scene generates its spheres and deactivating it releases them.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive activates or deactivates the scene, running OnActivate or OnDeactivate when the
	// flag actually changes.
	//
	// Parameters:
	//   - active: whether the scene is active
	//
	// Returns:
	//   - error: the error returned by the hook
	SetActive(active bool) error

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Light returns the scene's directional light.
	Light() light.Light

	// Controller returns the trace controller the scene drives.
	Controller() tracer.Controller

	// Renderer returns the renderer the scene presents through, or nil for a headless scene.
	Renderer() renderer.Renderer

	// Viewport returns the current render size in pixels.
	//
	// Returns:
	//   - width, height: the viewport size
	Viewport() (width, height int)

	// OnActivate generates a fresh set of spheres and discards accumulated samples.
	//
	// Returns:
	//   - error: a wrapped controller error
	OnActivate() error

	// OnDeactivate releases the scene's sphere buffer. Rendering again regenerates it.
	//
	// Returns:
	//   - error: a wrapped controller error
	OnDeactivate() error

	// OnRegenerateRequested replaces the spheres with a newly generated set.
	//
	// Returns:
	//   - error: a wrapped controller error
	OnRegenerateRequested() error

	// Tick advances the camera controller by dt seconds. Called from the engine tick loop.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last tick in seconds
	Tick(deltaTime float32)

	// OnFrame renders one progressive sample with the current camera, light and viewport.
	// A zero-sized viewport (for example a minimized window) renders nothing and is not an error.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: a wrapped controller error
	OnFrame(deltaTime float32) error

	// Resize updates the viewport, the camera aspect ratio and the renderer's surface.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// Release shuts the controller down. The scene cannot render afterwards.
	//
	// Returns:
	//   - error: the controller's release error
	Release() error
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam        camera.Camera
	light      light.Light
	controller tracer.Controller
	r          renderer.Renderer

	width, height int
}

var _ Scene = &scene{}

// NewScene creates a new inactive Scene. The viewport defaults to 800x600 and the camera aspect is
// set to match it.
//
// Parameters:
//   - name: the scene's identifier
//   - cam: the camera to trace from
//   - l: the directional light
//   - controller: the trace controller that owns the GPU or CPU resources
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, l light.Light, controller tracer.Controller, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.RWMutex{},
		name:       name,
		cam:        cam,
		light:      l,
		controller: controller,
		width:      800,
		height:     600,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.cam == nil {
		s.cam = camera.NewCamera(camera.WithController(camera.NewCameraController()))
	}
	if s.light == nil {
		s.light = light.NewLight()
	}
	if s.height > 0 {
		s.cam.SetAspect(float32(s.width) / float32(s.height))
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) error {
	s.mu.Lock()
	changed := s.active != active
	s.active = active
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if active {
		return s.OnActivate()
	}
	return s.OnDeactivate()
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Light() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.light
}

func (s *scene) Controller() tracer.Controller {
	return s.controller
}

func (s *scene) Renderer() renderer.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

func (s *scene) Viewport() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *scene) OnActivate() error {
	if err := s.controller.OnSceneReset(); err != nil {
		return fmt.Errorf("scene %q: failed to activate: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) OnDeactivate() error {
	if err := s.controller.ReleaseScene(); err != nil {
		return fmt.Errorf("scene %q: failed to deactivate: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) OnRegenerateRequested() error {
	if err := s.controller.OnSceneReset(); err != nil {
		return fmt.Errorf("scene %q: failed to regenerate: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) Tick(deltaTime float32) {
	s.Camera().Update(deltaTime)
}

func (s *scene) OnFrame(deltaTime float32) error {
	s.mu.RLock()
	cam, l := s.cam, s.light
	width, height := s.width, s.height
	s.mu.RUnlock()

	_, err := s.controller.RenderFrame(tracer.Frame{
		CameraToWorld:     cam.CameraToWorld(),
		InverseProjection: cam.InverseProjection(),
		LightDirection:    l.Direction(),
		LightIntensity:    l.Intensity(),
		Width:             width,
		Height:            height,
	})
	if errors.Is(err, tracer.ErrInvalidViewport) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scene %q: failed to render frame: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	cam, r := s.cam, s.r
	s.mu.Unlock()

	if width > 0 && height > 0 {
		cam.SetAspect(float32(width) / float32(height))
		if r != nil {
			r.Resize(width, height)
		}
	}
}

func (s *scene) Release() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return s.controller.Release()
}
