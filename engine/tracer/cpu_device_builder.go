package tracer

import "github.com/Carmen-Shannon/oxy-trace/engine/kernel"

// CPUDeviceBuilderOption is a functional option applied to a CPU device during construction via NewCPUDevice.
type CPUDeviceBuilderOption func(*cpuDevice)

// WithWorkers sets the number of tile workers. Values below 1 are raised to 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - CPUDeviceBuilderOption: a function that applies the worker count to a CPU device
func WithWorkers(n int) CPUDeviceBuilderOption {
	return func(d *cpuDevice) {
		d.workers = max(n, 1)
	}
}

// WithKernel replaces the per-pixel kernel.
//
// Parameters:
//   - k: the Kernel to run for every pixel
//
// Returns:
//   - CPUDeviceBuilderOption: a function that applies the kernel to a CPU device
func WithKernel(k Kernel) CPUDeviceBuilderOption {
	return func(d *cpuDevice) {
		if k != nil {
			d.kernel = k
		}
	}
}

// WithEnvironment sets the sky sampled by rays that leave the scene.
//
// Parameters:
//   - env: the environment, for example a common.SkyboxTexture
//
// Returns:
//   - CPUDeviceBuilderOption: a function that applies the environment to a CPU device
func WithEnvironment(env kernel.Environment) CPUDeviceBuilderOption {
	return func(d *cpuDevice) {
		d.env = env
	}
}

// WithPresentFunc sets a callback that receives the accumulation image on every Present.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - CPUDeviceBuilderOption: a function that applies the callback to a CPU device
func WithPresentFunc(fn PresentFunc) CPUDeviceBuilderOption {
	return func(d *cpuDevice) {
		d.present = fn
	}
}
