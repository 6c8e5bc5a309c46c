package gpu

import "github.com/cogentcore/webgpu/wgpu"

// WGPUDeviceBuilderOption is a function that configures a wgpu device during construction.
type WGPUDeviceBuilderOption func(*wgpuDevice)

// WithPresentMode is an option builder that sets the surface present mode.
// Defaults to wgpu.PresentModeFifo (vsync).
//
// Parameters:
//   - mode: the present mode to configure the surface with
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the present mode option
func WithPresentMode(mode wgpu.PresentMode) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = mode
	}
}

// WithForceFallbackAdapter is an option builder that requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the fallback adapter option
func WithForceFallbackAdapter(force bool) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}
