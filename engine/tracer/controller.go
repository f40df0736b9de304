package tracer

import (
	"fmt"
	"log"
	"math/rand"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/generator"
	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// Frame is the host state a single RenderFrame call needs.
type Frame struct {
	// CameraToWorld is the camera's local-to-world transform.
	CameraToWorld mgl32.Mat4

	// InverseProjection maps clip space back to camera space.
	InverseProjection mgl32.Mat4

	// LightDirection is the direction the directional light travels in.
	LightDirection mgl32.Vec3

	// LightIntensity scales the direct light contribution.
	LightIntensity float32

	// Width and Height are the viewport size in pixels.
	Width, Height int
}

// controller is the implementation of the Controller interface.
type controller struct {
	mu *sync.Mutex

	device    Device
	generator generator.Generator
	rng       *rand.Rand

	scene       geometry.Scene
	sceneBuffer SceneBuffer
	frame       Image
	accum       Image
	width       int
	height      int
	sampleCount uint32

	lastCameraToWorld mgl32.Mat4
	lastLight         mgl32.Vec3
	hasSnapshot       bool

	state State
}

// Controller is the progressive render loop. Every RenderFrame traces one more sample per pixel
// and folds it into a running mean, so a still camera converges on a noise-free image. Any change
// to the camera, the light, the viewport or the scene discards the accumulated samples.
//
// All methods are safe to call from multiple goroutines; calls are serialized.
type Controller interface {
	// OnSceneReset releases the current scene buffer, generates a new scene with the controller's
	// generator and random source, uploads it and discards accumulated samples.
	//
	// Returns:
	//   - error: ErrReleased after Release, or a wrapped device error
	OnSceneReset() error

	// RenderFrame traces, accumulates and presents one sample.
	//
	// Parameters:
	//   - f: the camera, light and viewport of this frame
	//
	// Returns:
	//   - Image: the accumulation image after blending
	//   - error: ErrInvalidViewport for a non-positive viewport (nothing is rendered),
	//     ErrReleased after Release, or a wrapped device error
	RenderFrame(f Frame) (Image, error)

	// ReleaseScene releases the scene buffer. The next RenderFrame generates a new scene.
	//
	// Returns:
	//   - error: ErrReleased after Release, or a wrapped device error
	ReleaseScene() error

	// Release releases every resource the controller owns. A second call returns ErrReleased.
	//
	// Returns:
	//   - error: ErrReleased if already released, or the first error hit while releasing
	Release() error

	// SampleCount returns the number of samples in the accumulation image.
	//
	// Returns:
	//   - uint32: the accumulated sample count
	SampleCount() uint32

	// Scene returns a copy of the current scene, or nil if none has been generated.
	//
	// Returns:
	//   - geometry.Scene: the spheres being traced
	Scene() geometry.Scene

	// State returns the lifecycle stage of the controller.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Generator returns the generator used by OnSceneReset.
	//
	// Returns:
	//   - generator.Generator: the scene generator
	Generator() generator.Generator
}

var _ Controller = &controller{}

// NewController creates a Controller rendering through device. No resources are allocated until
// the first OnSceneReset or RenderFrame.
//
// Parameters:
//   - device: the Device that runs the kernel
//   - opts: a variadic list of ControllerBuilderOption functions
//
// Returns:
//   - Controller: the new controller
//   - error: ErrNoDevice if device is nil
func NewController(device Device, opts ...ControllerBuilderOption) (Controller, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	c := &controller{
		mu:     &sync.Mutex{},
		device: device,
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.generator == nil {
		c.generator = generator.NewGenerator()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return c, nil
}

func (c *controller) OnSceneReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReleased {
		return ErrReleased
	}
	return c.resetScene()
}

func (c *controller) RenderFrame(f Frame) (Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReleased {
		return nil, ErrReleased
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, ErrInvalidViewport
	}

	if c.sceneBuffer == nil {
		if err := c.resetScene(); err != nil {
			return nil, err
		}
	}
	if c.accum == nil || f.Width != c.width || f.Height != c.height {
		if err := c.allocate(f.Width, f.Height); err != nil {
			return nil, err
		}
	}
	if !c.hasSnapshot || f.CameraToWorld != c.lastCameraToWorld || f.LightDirection != c.lastLight {
		c.discardSamples()
		c.lastCameraToWorld = f.CameraToWorld
		c.lastLight = f.LightDirection
		c.hasSnapshot = true
	}

	params := kernel.TraceParams{
		CameraToWorld:     f.CameraToWorld,
		InverseProjection: f.InverseProjection,
		PixelOffset:       mgl32.Vec2{c.rng.Float32(), c.rng.Float32()},
		SphereCount:       uint32(c.sceneBuffer.Len()),
		FrameIndex:        c.sampleCount,
		Light:             f.LightDirection.Vec4(f.LightIntensity),
		Width:             uint32(f.Width),
		Height:            uint32(f.Height),
	}
	if err := c.device.Trace(params, c.sceneBuffer, c.frame, kernel.GroupCount(f.Width, f.Height)); err != nil {
		return nil, fmt.Errorf("failed to trace frame: %w", err)
	}
	if err := c.device.Accumulate(c.frame, c.accum, kernel.BlendWeight(c.sampleCount)); err != nil {
		return nil, fmt.Errorf("failed to accumulate frame: %w", err)
	}
	if err := c.device.Present(c.accum); err != nil {
		return nil, fmt.Errorf("failed to present frame: %w", err)
	}

	c.sampleCount++
	c.state = StateAccumulating
	return c.accum, nil
}

func (c *controller) ReleaseScene() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReleased {
		return ErrReleased
	}
	return c.releaseSceneBuffer()
}

func (c *controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReleased {
		return ErrReleased
	}
	c.state = StateReleased

	var firstErr error
	if err := c.releaseSceneBuffer(); err != nil {
		firstErr = err
	}
	if err := c.releaseImages(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.scene = nil
	c.sampleCount = 0
	log.Printf("[Tracer] released")
	return firstErr
}

func (c *controller) SampleCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleCount
}

func (c *controller) Scene() geometry.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scene == nil {
		return nil
	}
	return append(geometry.Scene(nil), c.scene...)
}

func (c *controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *controller) Generator() generator.Generator {
	return c.generator
}

// resetScene swaps in a freshly generated scene. The old buffer is released before the new one
// is uploaded so at most one scene buffer is ever live.
func (c *controller) resetScene() error {
	if err := c.releaseSceneBuffer(); err != nil {
		return err
	}
	c.discardSamples()
	c.scene = nil

	scene := c.generator.Generate(c.rng)
	buf, err := c.device.NewSceneBuffer(scene)
	if err != nil {
		return fmt.Errorf("failed to upload scene: %w", err)
	}
	c.scene = scene
	c.sceneBuffer = buf
	log.Printf("[Tracer] generated scene with %d spheres", len(scene))
	return nil
}

func (c *controller) releaseSceneBuffer() error {
	if c.sceneBuffer == nil {
		return nil
	}
	buf := c.sceneBuffer
	c.sceneBuffer = nil
	if err := buf.Release(); err != nil {
		return fmt.Errorf("failed to release scene buffer: %w", err)
	}
	return nil
}

// allocate replaces both images with width x height ones. Once the old images are gone the
// controller is uninitialized until both new images exist.
func (c *controller) allocate(width, height int) error {
	err := c.releaseImages()
	c.state = StateUninitialized
	c.sampleCount = 0
	if err != nil {
		return err
	}

	frame, err := c.device.NewImage(width, height)
	if err != nil {
		return fmt.Errorf("failed to allocate frame image: %w", err)
	}
	accum, err := c.device.NewImage(width, height)
	if err != nil {
		frame.Release()
		return fmt.Errorf("failed to allocate accumulation image: %w", err)
	}

	c.frame = frame
	c.accum = accum
	c.width = width
	c.height = height
	c.state = StateAllocated
	c.sampleCount = 0
	log.Printf("[Tracer] allocated %dx%d images", width, height)
	return nil
}

func (c *controller) releaseImages() error {
	var firstErr error
	for _, img := range []*Image{&c.frame, &c.accum} {
		if *img == nil {
			continue
		}
		if err := (*img).Release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release image: %w", err)
		}
		*img = nil
	}
	c.width, c.height = 0, 0
	return firstErr
}

func (c *controller) discardSamples() {
	c.sampleCount = 0
	if c.state == StateAccumulating {
		c.state = StateAllocated
	}
}
