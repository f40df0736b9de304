// Package tracer drives progressive accumulation: it owns the scene buffer and the frame and
// accumulation images, decides when accumulated samples are stale, and hands each frame to a
// Device that runs the trace kernel.
package tracer

import (
	"errors"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
)

var (
	// ErrInvalidViewport is returned when a frame or image has a zero or negative size.
	ErrInvalidViewport = errors.New("tracer: viewport width and height must be positive")

	// ErrReleased is returned when a resource or controller is used or released after release.
	ErrReleased = errors.New("tracer: resource already released")

	// ErrNoDevice is returned when a controller is created without a device.
	ErrNoDevice = errors.New("tracer: no device")
)

// Resource is a device allocation with an explicit owner.
type Resource interface {
	// Release frees the allocation. A second call returns ErrReleased.
	//
	// Returns:
	//   - error: ErrReleased if the resource was already released
	Release() error
}

// Image is an RGBA float32 image living on a Device.
type Image interface {
	Resource

	// Width returns the image width in pixels.
	Width() int

	// Height returns the image height in pixels.
	Height() int
}

// SceneBuffer is a read-only copy of a Scene living on a Device.
type SceneBuffer interface {
	Resource

	// Len returns the number of spheres in the buffer.
	Len() int
}

// Device is the kernel boundary of the tracer. It allocates images and scene buffers and runs the
// trace, accumulate and present passes. A Device is driven from one goroutine at a time.
type Device interface {
	// NewImage allocates a width x height RGBA float image cleared to zero.
	//
	// Parameters:
	//   - width: the image width in pixels
	//   - height: the image height in pixels
	//
	// Returns:
	//   - Image: the allocated image
	//   - error: ErrInvalidViewport if either size is not positive, or an allocation error
	NewImage(width, height int) (Image, error)

	// NewSceneBuffer uploads a scene. An empty scene is valid.
	//
	// Parameters:
	//   - scene: the spheres to upload
	//
	// Returns:
	//   - SceneBuffer: the uploaded buffer
	//   - error: an allocation error
	NewSceneBuffer(scene geometry.Scene) (SceneBuffer, error)

	// Trace renders one sample per pixel of target using the scene and params.
	//
	// Parameters:
	//   - params: the per-frame uniform block
	//   - scene: the scene buffer to trace against
	//   - target: the image receiving the sample
	//   - groups: the dispatch size in 8x8 workgroups
	//
	// Returns:
	//   - error: a device error
	Trace(params kernel.TraceParams, scene SceneBuffer, target Image, groups [3]uint32) error

	// Accumulate blends frame into accum as accum*(1-weight) + frame*weight.
	//
	// Parameters:
	//   - frame: the freshly traced sample
	//   - accum: the running mean
	//   - weight: the weight of the new sample
	//
	// Returns:
	//   - error: a device error
	Accumulate(frame, accum Image, weight float32) error

	// Present shows accum on the device's output.
	//
	// Parameters:
	//   - accum: the image to present
	//
	// Returns:
	//   - error: a device error
	Present(accum Image) error
}

// State is the lifecycle stage of a Controller.
type State int

const (
	// StateUninitialized means no images have been allocated yet.
	StateUninitialized State = iota

	// StateAllocated means images exist but hold no samples.
	StateAllocated

	// StateAccumulating means at least one sample has been blended into the accumulation image.
	StateAccumulating

	// StateReleased means the controller was shut down.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAllocated:
		return "allocated"
	case StateAccumulating:
		return "accumulating"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// releaseOnce guards a resource against double release.
type releaseOnce struct {
	released atomic.Bool
}

func (r *releaseOnce) release(free func()) error {
	if !r.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	if free != nil {
		free()
	}
	return nil
}

func (r *releaseOnce) isReleased() bool {
	return r.released.Load()
}
