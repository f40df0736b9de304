package tracer

// WGPUDeviceBuilderOption is a functional option applied to a WGPU device during construction via NewWGPUDevice.
type WGPUDeviceBuilderOption func(*wgpuDevice)

// WithSkybox sets the sky texture uploaded for the trace pass. Without it the sky is black.
//
// Parameters:
//   - sky: the skybox pixels
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the skybox to a WGPU device
func WithSkybox(sky SkyboxSource) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.skybox = sky
	}
}

// WithOwnedRenderer makes Release also release the renderer.
//
// Parameters:
//   - owned: true to release the renderer with the device
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the ownership option to a WGPU device
func WithOwnedRenderer(owned bool) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.ownRenderer = owned
	}
}
