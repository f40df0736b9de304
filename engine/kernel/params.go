// Package kernel defines the host-side contract of the ray tracing compute kernels: the uniform
// parameter blocks uploaded each frame, the dispatch geometry, and the embedded WGSL sources.
package kernel

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WorkgroupSize is the edge length of the square thread group every kernel is compiled with.
const WorkgroupSize = 8

// Packed sizes of the uniform parameter blocks in bytes.
const (
	TraceParamsSize = 176
	BlendParamsSize = 16
)

// GPUTraceParamsSource is the WGSL definition of the TraceParams uniform struct.
//
//go:embed assets/trace_params.wgsl
var GPUTraceParamsSource string

// GPUBlendParamsSource is the WGSL definition of the BlendParams uniform struct shared by the
// accumulate and present passes.
//
//go:embed assets/blend_params.wgsl
var GPUBlendParamsSource string

// TraceSource is the compute kernel that writes one jittered sample per pixel into the frame image.
//
//go:embed assets/trace.wgsl
var TraceSource string

// AccumulateSource is the compute kernel that folds the frame image into the running mean.
//
//go:embed assets/accumulate.wgsl
var AccumulateSource string

// PresentVertexSource is the fullscreen triangle vertex stage of the present pass.
//
//go:embed assets/present_vertex.wgsl
var PresentVertexSource string

// PresentFragmentSource is the fragment stage of the present pass that reads the accumulated image.
//
//go:embed assets/present_fragment.wgsl
var PresentFragmentSource string

// TraceParams is the per-frame uniform block of the trace kernel.
type TraceParams struct {
	CameraToWorld     mgl32.Mat4 // offset   0
	InverseProjection mgl32.Mat4 // offset  64
	PixelOffset       mgl32.Vec2 // offset 128: sub-pixel jitter in [0, 1)
	SphereCount       uint32     // offset 136
	FrameIndex        uint32     // offset 140
	Light             mgl32.Vec4 // offset 144: direction xyz, intensity w
	Width, Height     uint32     // offset 160
}

// Size returns the packed size of the TraceParams block in bytes.
//
// Returns:
//   - int: the packed size in bytes (176)
func (p *TraceParams) Size() int {
	return TraceParamsSize
}

// Marshal serializes the TraceParams into the std140-compatible layout expected by the kernel.
//
// Returns:
//   - []byte: the serialized 176 byte block
func (p *TraceParams) Marshal() []byte {
	buf := make([]byte, TraceParamsSize)
	putFloats(buf[0:], p.CameraToWorld[:]...)
	putFloats(buf[64:], p.InverseProjection[:]...)
	putFloats(buf[128:], p.PixelOffset[:]...)
	binary.LittleEndian.PutUint32(buf[136:], p.SphereCount)
	binary.LittleEndian.PutUint32(buf[140:], p.FrameIndex)
	putFloats(buf[144:], p.Light[:]...)
	binary.LittleEndian.PutUint32(buf[160:], p.Width)
	binary.LittleEndian.PutUint32(buf[164:], p.Height)
	return buf
}

// BlendParams is the uniform block of the accumulate and present passes.
type BlendParams struct {
	Width, Height uint32  // offset 0
	Weight        float32 // offset 8: weight of the new sample
}

// Size returns the packed size of the BlendParams block in bytes.
//
// Returns:
//   - int: the packed size in bytes (16)
func (p *BlendParams) Size() int {
	return BlendParamsSize
}

// Marshal serializes the BlendParams for GPU upload.
//
// Returns:
//   - []byte: the serialized 16 byte block
func (p *BlendParams) Marshal() []byte {
	buf := make([]byte, BlendParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], p.Width)
	binary.LittleEndian.PutUint32(buf[4:], p.Height)
	putFloats(buf[8:], p.Weight)
	return buf
}

// GroupCount returns the number of workgroups needed to cover a width x height image with
// WorkgroupSize x WorkgroupSize tiles.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - [3]uint32: the dispatch size as [ceil(width/8), ceil(height/8), 1]
func GroupCount(width, height int) [3]uint32 {
	return [3]uint32{
		uint32((width + WorkgroupSize - 1) / WorkgroupSize),
		uint32((height + WorkgroupSize - 1) / WorkgroupSize),
		1,
	}
}

// BlendWeight returns the weight of a new sample in a running mean of sampleCount prior samples.
//
// Parameters:
//   - sampleCount: the number of samples already accumulated
//
// Returns:
//   - float32: 1 / (sampleCount + 1)
func BlendWeight(sampleCount uint32) float32 {
	return 1 / float32(sampleCount+1)
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}
