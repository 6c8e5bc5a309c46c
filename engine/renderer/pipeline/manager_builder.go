package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*manager)

// WithDepthFormat sets the depth attachment format baked into every pipeline. Pass
// wgpu.TextureFormatUndefined to build pipelines without depth testing.
//
// Parameters:
//   - format: the depth texture format, DepthFormat by default
//
// Returns:
//   - ManagerBuilderOption: a function that sets the depth format
func WithDepthFormat(format wgpu.TextureFormat) ManagerBuilderOption {
	return func(m *manager) {
		m.depthFormat = format
	}
}
