package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	src := strings.Join([]string{
		"//@oxy:include sphere",
		"//@oxy:group 0 1 storage_read spheres array<sphere>",
		"//@oxy:provider 0 2 image frame",
		"@group(0) @binding(2) var<storage, read_write> frame_image: array<vec4<f32>>;",
	}, "\n")

	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(out, "struct Sphere") {
		t.Error("include did not inject the Sphere struct")
	}
	if !strings.Contains(out, "@group(0) @binding(1) var<storage, read> spheres: array<Sphere>;") {
		t.Errorf("group annotation not expanded, got:\n%s", out)
	}
	if strings.Contains(out, "@oxy:") {
		t.Error("processed source still contains annotations")
	}

	decls := pp.Declarations()
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if binding, ok := FindProvider(decls, 0, AnnotationArgImage, AnnotationArgFrame); !ok || binding != 2 {
		t.Errorf("FindProvider(image, frame) = %d, %v", binding, ok)
	}
	if _, ok := FindProvider(decls, 0, AnnotationArgImage, AnnotationArgAccum); ok {
		t.Error("found an accum provider that was never declared")
	}
}

func TestPreProcessorRejectsMalformedAnnotations(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown include", "//@oxy:include camera"},
		{"unknown type", "//@oxy:unknown 1"},
		{"short group", "//@oxy:group 0 0 storage_uniform params"},
		{"bad address space", "//@oxy:group 0 0 private params trace_params"},
		{"bad group number", "//@oxy:group x 0 storage_uniform params trace_params"},
		{"unknown array element", "//@oxy:group 0 1 storage_read spheres array<mesh>"},
		{"unknown provider", "//@oxy:provider 0 2 material"},
		{"unknown role", "//@oxy:provider 0 2 image depth"},
		{"empty", "//@oxy:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPreProcessor().Process(tt.line); err == nil {
				t.Errorf("expected an error for %q", tt.line)
			}
		})
	}
}

func TestTraceShaderLayout(t *testing.T) {
	s := NewShader("trace", ShaderTypeCompute, kernel.TraceSource)

	if s.EntryPoint() != "trace_main" {
		t.Errorf("entry point = %q, want trace_main", s.EntryPoint())
	}
	if s.WorkgroupSize() != [3]uint32{kernel.WorkgroupSize, kernel.WorkgroupSize, 1} {
		t.Errorf("workgroup size = %v", s.WorkgroupSize())
	}

	entries := s.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 5 {
		t.Fatalf("expected 5 bindings in group 0, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Binding != uint32(i) {
			t.Fatalf("entries not sorted by binding: %d at %d", e.Binding, i)
		}
		if e.Visibility != wgpu.ShaderStageCompute {
			t.Errorf("binding %d visibility = %v", i, e.Visibility)
		}
	}
	if entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform || entries[0].Buffer.MinBindingSize != kernel.TraceParamsSize {
		t.Errorf("params binding = %+v, want uniform of %d bytes", entries[0].Buffer, kernel.TraceParamsSize)
	}
	if entries[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage || entries[1].Buffer.MinBindingSize != 40 {
		t.Errorf("spheres binding = %+v, want read-only storage with a 40 byte stride", entries[1].Buffer)
	}
	if entries[2].Buffer.Type != wgpu.BufferBindingTypeStorage || entries[2].Buffer.MinBindingSize != 16 {
		t.Errorf("frame binding = %+v, want read-write storage of vec4 pixels", entries[2].Buffer)
	}
	if entries[3].Texture.ViewDimension != wgpu.TextureViewDimension2D || entries[3].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Errorf("skybox texture binding = %+v", entries[3].Texture)
	}
	if entries[4].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("skybox sampler binding = %+v", entries[4].Sampler)
	}

	if binding, ok := s.BindGroupFromVarName(0, "frame_image"); !ok || binding != 2 {
		t.Errorf("BindGroupFromVarName(frame_image) = %d, %v", binding, ok)
	}
	if s.BindGroupVarName(0, 1) != "spheres" {
		t.Errorf("BindGroupVarName(0, 1) = %q", s.BindGroupVarName(0, 1))
	}
	if binding, ok := FindProvider(s.Declarations(), 0, AnnotationArgSkybox, AnnotationArgSkyboxSampler); !ok || binding != 4 {
		t.Errorf("skybox sampler provider = %d, %v", binding, ok)
	}
}

func TestAccumulateAndPresentShaderLayouts(t *testing.T) {
	acc := NewShader("accumulate", ShaderTypeCompute, kernel.AccumulateSource)
	if acc.EntryPoint() != "accumulate_main" {
		t.Errorf("entry point = %q", acc.EntryPoint())
	}
	entries := acc.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 3 || entries[0].Buffer.MinBindingSize != kernel.BlendParamsSize {
		t.Fatalf("unexpected accumulate layout: %+v", entries)
	}
	if entries[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage || entries[2].Buffer.Type != wgpu.BufferBindingTypeStorage {
		t.Error("frame must be read-only and accum read-write")
	}

	vs := NewShader("present_vs", ShaderTypeVertex, kernel.PresentVertexSource)
	if vs.EntryPoint() != "present_vs" || len(vs.BindGroupLayoutDescriptors()) != 0 {
		t.Errorf("vertex stage: entry %q, %d groups", vs.EntryPoint(), len(vs.BindGroupLayoutDescriptors()))
	}
	if vs.WorkgroupSize() != [3]uint32{} {
		t.Errorf("render stages have no workgroup size, got %v", vs.WorkgroupSize())
	}

	fs := NewShader("present_fs", ShaderTypeFragment, kernel.PresentFragmentSource)
	if fs.EntryPoint() != "present_fs" {
		t.Errorf("fragment entry = %q", fs.EntryPoint())
	}
	if e := fs.BindGroupLayoutDescriptor(0).Entries; len(e) != 2 || e[1].Visibility != wgpu.ShaderStageFragment {
		t.Errorf("unexpected present layout: %+v", e)
	}
}

func TestResolveTypeLayout(t *testing.T) {
	known := computeStructSizes(parseStructBlocks(`
struct Inner { a: vec3<f32>, b: f32, }
struct Outer { inner: Inner, count: u32, }
`))
	tests := []struct {
		typeName string
		want     wgslTypeLayout
	}{
		{"f32", wgslTypeLayout{4, 4}},
		{"array<f32, 3>", wgslTypeLayout{12, 4}},
		{"array<vec4<f32>>", wgslTypeLayout{16, 16}},
		{"Inner", wgslTypeLayout{16, 16}},
		{"Outer", wgslTypeLayout{32, 16}},
		{"array<Inner, 2>", wgslTypeLayout{32, 16}},
	}
	for _, tt := range tests {
		got, ok := resolveTypeLayout(tt.typeName, known)
		if !ok || got != tt.want {
			t.Errorf("resolveTypeLayout(%q) = %+v, %v, want %+v", tt.typeName, got, ok, tt.want)
		}
	}
	if _, ok := resolveTypeLayout("Missing", known); ok {
		t.Error("unknown types must not resolve")
	}
}

func TestParseWorkgroupSizeDefaults(t *testing.T) {
	tests := []struct {
		src  string
		want [3]uint32
	}{
		{"@compute @workgroup_size(64) fn main() {}", [3]uint32{64, 1, 1}},
		{"@compute @workgroup_size(4, 2) fn main() {}", [3]uint32{4, 2, 1}},
		{"@compute fn main() {}", [3]uint32{1, 1, 1}},
		{"// @workgroup_size(9)\n@compute @workgroup_size(2, 2, 2) fn main() {}", [3]uint32{2, 2, 2}},
	}
	for _, tt := range tests {
		if got := parseWorkgroupSize(tt.src); got != tt.want {
			t.Errorf("parseWorkgroupSize(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // e\nf"
	if got := stripComments(src); got != "a  d \nf" {
		t.Errorf("stripComments = %q", got)
	}
}

// nagaLimitation reports whether a compile error is a gap in naga rather than in the shader.
func nagaLimitation(err error) bool {
	msg := err.Error()
	for _, s := range []string{"not yet implemented", "not supported", "unsupported", "lowering", "atomic", "unknown function"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func TestKernelShadersCompile(t *testing.T) {
	shaders := []Shader{
		NewShader("trace", ShaderTypeCompute, kernel.TraceSource),
		NewShader("accumulate", ShaderTypeCompute, kernel.AccumulateSource),
		NewShader("present_vs", ShaderTypeVertex, kernel.PresentVertexSource),
		NewShader("present_fs", ShaderTypeFragment, kernel.PresentFragmentSource),
	}
	for _, s := range shaders {
		t.Run(s.Key(), func(t *testing.T) {
			spirv, err := naga.Compile(s.Source())
			if err != nil {
				if nagaLimitation(err) {
					t.Skipf("Skipping: naga limitation: %v", err)
				}
				t.Fatalf("failed to compile %s: %v", s.Key(), err)
			}
			if len(spirv) < 4 {
				t.Fatal("SPIR-V too short")
			}
			magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24
			if magic != 0x07230203 {
				t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", magic)
			}
			if err := s.Validate(); err != nil {
				t.Errorf("Validate() = %v after a successful compile", err)
			}
		})
	}
}
