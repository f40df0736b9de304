package tracer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	tracePipelineKey      = "trace"
	accumulatePipelineKey = "accumulate"
	presentPipelineKey    = "present"
)

// SkyboxSource provides the RGBA8 sRGB pixels of an equirectangular sky for the GPU.
// common.SkyboxTexture satisfies it.
type SkyboxSource interface {
	StagingData() common.TextureStagingData
}

// wgpuImage is a storage buffer of width*height vec4<f32> pixels.
type wgpuImage struct {
	releaseOnce
	width, height int
	buf           *wgpu.Buffer
}

func (img *wgpuImage) Width() int  { return img.width }
func (img *wgpuImage) Height() int { return img.height }

func (img *wgpuImage) Release() error {
	return img.release(img.buf.Release)
}

// wgpuSceneBuffer is a read-only storage buffer of packed spheres.
type wgpuSceneBuffer struct {
	releaseOnce
	count int
	buf   *wgpu.Buffer
}

func (b *wgpuSceneBuffer) Len() int { return b.count }

func (b *wgpuSceneBuffer) Release() error {
	return b.release(b.buf.Release)
}

// passBindings records where a pass expects each of its resources.
type passBindings struct {
	params, spheres, frame, accum int
}

// wgpuDevice is the implementation of the WGPUDevice interface.
type wgpuDevice struct {
	mu *sync.Mutex
	r  renderer.Renderer

	traceShader, accumulateShader, presentShader shader.Shader

	traceProvider      bind_group_provider.BindGroupProvider
	accumulateProvider bind_group_provider.BindGroupProvider
	presentProvider    bind_group_provider.BindGroupProvider

	traceBindings, accumulateBindings, presentBindings passBindings

	// resources each provider's bind group was last built against
	traceScene                  *wgpuSceneBuffer
	traceFrame                  *wgpuImage
	accumulateFrame, accumImage *wgpuImage
	presentAccum                *wgpuImage

	skybox      SkyboxSource
	ownRenderer bool
	released    releaseOnce
}

// WGPUDevice runs the trace, accumulate and present passes through a Renderer. Images are storage
// buffers, the trace and accumulate passes are compute pipelines and present is a fullscreen draw.
type WGPUDevice interface {
	Device

	// Renderer returns the Renderer the device draws with.
	//
	// Returns:
	//   - renderer.Renderer: the underlying renderer
	Renderer() renderer.Renderer

	// Release releases the bind groups, the skybox and, if the device was asked to own it, the renderer.
	//
	// Returns:
	//   - error: ErrReleased if already released
	Release() error
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice builds the kernel pipelines on r and uploads the skybox.
//
// Parameters:
//   - r: the Renderer to draw with
//   - opts: a variadic list of WGPUDeviceBuilderOption functions
//
// Returns:
//   - WGPUDevice: the new device
//   - error: ErrNoDevice if r is nil, or a pipeline or skybox upload error
func NewWGPUDevice(r renderer.Renderer, opts ...WGPUDeviceBuilderOption) (WGPUDevice, error) {
	if r == nil {
		return nil, ErrNoDevice
	}
	d := &wgpuDevice{
		mu:                 &sync.Mutex{},
		r:                  r,
		traceShader:        shader.NewShader(tracePipelineKey, shader.ShaderTypeCompute, kernel.TraceSource),
		accumulateShader:   shader.NewShader(accumulatePipelineKey, shader.ShaderTypeCompute, kernel.AccumulateSource),
		presentShader:      shader.NewShader(presentPipelineKey+"_fs", shader.ShaderTypeFragment, kernel.PresentFragmentSource),
		traceProvider:      bind_group_provider.NewBindGroupProvider("Trace"),
		accumulateProvider: bind_group_provider.NewBindGroupProvider("Accumulate"),
		presentProvider:    bind_group_provider.NewBindGroupProvider("Present"),
	}
	for _, opt := range opts {
		opt(d)
	}

	vertex := shader.NewShader(presentPipelineKey+"_vs", shader.ShaderTypeVertex, kernel.PresentVertexSource)
	err := r.RegisterPipelines(
		pipeline.NewPipeline(tracePipelineKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(d.traceShader)),
		pipeline.NewPipeline(accumulatePipelineKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(d.accumulateShader)),
		pipeline.NewPipeline(presentPipelineKey, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(vertex),
			pipeline.WithFragmentShader(d.presentShader),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register kernel pipelines: %w", err)
	}

	if d.traceBindings, err = resolveBindings(d.traceShader); err != nil {
		return nil, err
	}
	if d.accumulateBindings, err = resolveBindings(d.accumulateShader); err != nil {
		return nil, err
	}
	if d.presentBindings, err = resolveBindings(d.presentShader); err != nil {
		return nil, err
	}

	if err := d.initSkybox(); err != nil {
		return nil, err
	}
	return d, nil
}

// resolveBindings reads a kernel shader's declarations. Bindings a pass does not use are -1.
func resolveBindings(s shader.Shader) (passBindings, error) {
	b := passBindings{params: -1, spheres: -1, frame: -1, accum: -1}
	var ok bool
	if b.params, ok = s.BindGroupFromVarName(0, "params"); !ok {
		return b, fmt.Errorf("shader %s declares no params binding", s.Key())
	}
	if binding, found := s.BindGroupFromVarName(0, "spheres"); found {
		b.spheres = binding
	}
	if binding, found := shader.FindProvider(s.Declarations(), 0, shader.AnnotationArgImage, shader.AnnotationArgFrame); found {
		b.frame = binding
	}
	if binding, found := shader.FindProvider(s.Declarations(), 0, shader.AnnotationArgImage, shader.AnnotationArgAccum); found {
		b.accum = binding
	}
	return b, nil
}

func (d *wgpuDevice) initSkybox() error {
	texBinding, hasTex := shader.FindProvider(d.traceShader.Declarations(), 0, shader.AnnotationArgSkybox, shader.AnnotationArgSkyboxTexture)
	sampBinding, hasSamp := shader.FindProvider(d.traceShader.Declarations(), 0, shader.AnnotationArgSkybox, shader.AnnotationArgSkyboxSampler)
	if !hasTex || !hasSamp {
		return errors.New("trace shader declares no skybox bindings")
	}

	staging := common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1}
	if d.skybox != nil {
		staging = d.skybox.StagingData()
	}
	if err := d.r.InitTextureView(d.traceProvider, texBinding, staging); err != nil {
		return fmt.Errorf("failed to upload skybox: %w", err)
	}
	if err := d.r.InitSampler(d.traceProvider, sampBinding, common.SamplerStagingData{}); err != nil {
		return fmt.Errorf("failed to create skybox sampler: %w", err)
	}
	log.Printf("[Tracer] skybox uploaded (%dx%d)", staging.Width, staging.Height)
	return nil
}

func (d *wgpuDevice) NewImage(width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}
	if d.released.isReleased() {
		return nil, ErrReleased
	}
	buf, err := d.r.CreateStorageBuffer(fmt.Sprintf("Image %dx%d", width, height), uint64(width*height*16), nil)
	if err != nil {
		return nil, err
	}
	return &wgpuImage{width: width, height: height, buf: buf}, nil
}

func (d *wgpuDevice) NewSceneBuffer(scene geometry.Scene) (SceneBuffer, error) {
	if d.released.isReleased() {
		return nil, ErrReleased
	}
	// Zero-sized bindings are invalid, so an empty scene still gets one record.
	size := max(len(scene), 1) * geometry.SphereSize
	buf, err := d.r.CreateStorageBuffer("Spheres", uint64(size), scene.Marshal())
	if err != nil {
		return nil, err
	}
	return &wgpuSceneBuffer{count: len(scene), buf: buf}, nil
}

func (d *wgpuDevice) Trace(params kernel.TraceParams, scene SceneBuffer, target Image, groups [3]uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	sb, err := gpuSceneBuffer(scene)
	if err != nil {
		return err
	}
	img, err := gpuImage(target)
	if err != nil {
		return err
	}

	if d.traceProvider.BindGroup() == nil || d.traceScene != sb || d.traceFrame != img {
		d.traceProvider.ReleaseBindGroup()
		d.traceProvider.SetExternalBuffer(d.traceBindings.spheres, sb.buf)
		d.traceProvider.SetExternalBuffer(d.traceBindings.frame, img.buf)
		if err := d.r.InitBindGroup(d.traceProvider, d.traceShader.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			return fmt.Errorf("failed to bind trace resources: %w", err)
		}
		d.traceScene, d.traceFrame = sb, img
	}

	d.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: d.traceProvider, Binding: d.traceBindings.params, Data: params.Marshal()},
	})
	return d.dispatch(tracePipelineKey, d.traceProvider, groups)
}

func (d *wgpuDevice) Accumulate(frame, accum Image, weight float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	src, err := gpuImage(frame)
	if err != nil {
		return err
	}
	dst, err := gpuImage(accum)
	if err != nil {
		return err
	}
	if src.width != dst.width || src.height != dst.height {
		return fmt.Errorf("cannot accumulate a %dx%d frame into a %dx%d image", src.width, src.height, dst.width, dst.height)
	}

	if d.accumulateProvider.BindGroup() == nil || d.accumulateFrame != src || d.accumImage != dst {
		d.accumulateProvider.ReleaseBindGroup()
		d.accumulateProvider.SetExternalBuffer(d.accumulateBindings.frame, src.buf)
		d.accumulateProvider.SetExternalBuffer(d.accumulateBindings.accum, dst.buf)
		if err := d.r.InitBindGroup(d.accumulateProvider, d.accumulateShader.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			return fmt.Errorf("failed to bind accumulate resources: %w", err)
		}
		d.accumulateFrame, d.accumImage = src, dst
	}

	blend := kernel.BlendParams{Width: uint32(dst.width), Height: uint32(dst.height), Weight: weight}
	d.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: d.accumulateProvider, Binding: d.accumulateBindings.params, Data: blend.Marshal()},
	})
	return d.dispatch(accumulatePipelineKey, d.accumulateProvider, kernel.GroupCount(dst.width, dst.height))
}

func (d *wgpuDevice) Present(accum Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	img, err := gpuImage(accum)
	if err != nil {
		return err
	}

	if d.presentProvider.BindGroup() == nil || d.presentAccum != img {
		d.presentProvider.ReleaseBindGroup()
		d.presentProvider.SetExternalBuffer(d.presentBindings.accum, img.buf)
		if err := d.r.InitBindGroup(d.presentProvider, d.presentShader.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			return fmt.Errorf("failed to bind present resources: %w", err)
		}
		d.presentAccum = img
	}

	blend := kernel.BlendParams{Width: uint32(img.width), Height: uint32(img.height), Weight: 1}
	d.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: d.presentProvider, Binding: d.presentBindings.params, Data: blend.Marshal()},
	})

	if err := d.r.BeginFrame(); err != nil {
		return fmt.Errorf("failed to acquire surface: %w", err)
	}
	if err := d.r.DrawFullscreen(presentPipelineKey, []bind_group_provider.BindGroupProvider{d.presentProvider}); err != nil {
		d.r.EndFrame()
		d.r.Present()
		return err
	}
	if err := d.r.EndFrame(); err != nil {
		return err
	}
	d.r.Present()
	return nil
}

func (d *wgpuDevice) dispatch(key string, provider bind_group_provider.BindGroupProvider, groups [3]uint32) error {
	if err := d.r.BeginComputeFrame(); err != nil {
		return err
	}
	if err := d.r.DispatchCompute(key, provider, groups); err != nil {
		d.r.EndComputeFrame()
		return err
	}
	return d.r.EndComputeFrame()
}

func (d *wgpuDevice) Renderer() renderer.Renderer {
	return d.r
}

func (d *wgpuDevice) Release() error {
	return d.released.release(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		d.traceProvider.Release()
		d.accumulateProvider.Release()
		d.presentProvider.Release()
		d.traceScene, d.traceFrame = nil, nil
		d.accumulateFrame, d.accumImage, d.presentAccum = nil, nil, nil
		if d.ownRenderer {
			d.r.Release()
		}
	})
}

func gpuImage(img Image) (*wgpuImage, error) {
	gi, ok := img.(*wgpuImage)
	if !ok || gi == nil {
		return nil, errors.New("image was not allocated by a WGPU device")
	}
	if gi.isReleased() {
		return nil, ErrReleased
	}
	return gi, nil
}

func gpuSceneBuffer(buf SceneBuffer) (*wgpuSceneBuffer, error) {
	sb, ok := buf.(*wgpuSceneBuffer)
	if !ok || sb == nil {
		return nil, errors.New("scene buffer was not allocated by a WGPU device")
	}
	if sb.isReleased() {
		return nil, ErrReleased
	}
	return sb, nil
}
