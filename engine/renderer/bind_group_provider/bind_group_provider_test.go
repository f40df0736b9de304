package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewBindGroupProviderKeepsLabel(t *testing.T) {
	p := NewBindGroupProvider("trace")
	if p.Label() != "trace" {
		t.Errorf("Label() = %q, want trace", p.Label())
	}
	if p.BindGroup() != nil || p.BindGroupLayout() != nil {
		t.Error("a new provider must not hold GPU objects")
	}
}

func TestExternalBuffersSurviveRelease(t *testing.T) {
	frame := new(wgpu.Buffer)
	accum := new(wgpu.Buffer)
	p := NewBindGroupProvider("accumulate", WithExternalBuffer(1, frame))
	p.SetExternalBuffer(2, accum)

	if !p.IsExternal(1) || !p.IsExternal(2) {
		t.Fatal("attached buffers must be marked external")
	}
	if p.Buffer(2) != accum {
		t.Error("Buffer(2) did not return the attached buffer")
	}

	// Release would call into the GPU for owned buffers; external ones are only detached.
	p.Release()
	if len(p.Buffers()) != 0 {
		t.Errorf("Release left %d buffers attached", len(p.Buffers()))
	}
	if p.IsExternal(1) {
		t.Error("Release must clear external markers")
	}
}

func TestSetExternalBufferNilDetaches(t *testing.T) {
	p := NewBindGroupProvider("present")
	p.SetExternalBuffer(1, new(wgpu.Buffer))
	p.SetExternalBuffer(1, nil)
	if p.Buffer(1) != nil || p.IsExternal(1) {
		t.Error("nil must detach an external binding")
	}

	p.ReleaseBindGroup()
	if p.BindGroup() != nil {
		t.Error("ReleaseBindGroup must leave no bind group")
	}
}
