package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// StateBuilderOption is a functional option used to configure a State during construction.
type StateBuilderOption func(*State)

// WithDepthTestEnabled sets whether depth testing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - StateBuilderOption: a function that sets the depth test enabled state
func WithDepthTestEnabled(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.DepthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - StateBuilderOption: a function that sets the depth write enabled state
func WithDepthWriteEnabled(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.DepthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - StateBuilderOption: a function that sets the depth bias parameters
func WithDepthBias(bias int32, slopeScale float32) StateBuilderOption {
	return func(s *State) {
		s.DepthBias = bias
		s.DepthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether blending is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - StateBuilderOption: a function that sets the blend enabled state
func WithBlendEnabled(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.BlendEnabled = enabled
	}
}

// WithCullMode sets the cull mode.
//
// Parameters:
//   - mode: the cull mode to use (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - StateBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) StateBuilderOption {
	return func(s *State) {
		s.CullMode = mode
	}
}

// WithTopology sets the primitive topology. Rendering modes that expand primitives into quads
// rely on triangle lists, so only override this for materials drawn in triangle mode.
//
// Parameters:
//   - topology: the primitive topology to use (e.g., wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - StateBuilderOption: a function that sets the primitive topology
func WithTopology(topology wgpu.PrimitiveTopology) StateBuilderOption {
	return func(s *State) {
		s.Topology = topology
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - frontFace: the front face to use (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - StateBuilderOption: a function that sets the front face
func WithFrontFace(frontFace wgpu.FrontFace) StateBuilderOption {
	return func(s *State) {
		s.FrontFace = frontFace
	}
}

// WithWriteMask sets the color write mask.
//
// Parameters:
//   - writeMask: the color write mask to use (e.g., wgpu.ColorWriteMaskAll)
//
// Returns:
//   - StateBuilderOption: a function that sets the color write mask
func WithWriteMask(writeMask wgpu.ColorWriteMask) StateBuilderOption {
	return func(s *State) {
		s.WriteMask = writeMask
	}
}

// WithBlendState sets the blend state and enables blending.
//
// Parameters:
//   - blendState: the blend state to use
//
// Returns:
//   - StateBuilderOption: a function that sets the blend state
func WithBlendState(blendState *wgpu.BlendState) StateBuilderOption {
	return func(s *State) {
		s.BlendState = blendState
		s.BlendEnabled = blendState != nil
	}
}
