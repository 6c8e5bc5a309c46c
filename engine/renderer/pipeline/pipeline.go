// Package pipeline turns materials into GPU render pipelines and bind groups. State describes the
// fixed-function configuration a material asks for; Manager builds and caches the GPU objects.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// DepthFormat is the format of every depth texture the stage chain allocates.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// State holds the fixed-function render configuration of a pipeline: depth, blend, cull,
// topology and write mask settings. Materials carry one and the Manager bakes it into the
// pipeline it builds for them.
type State struct {
	DepthTestEnabled    bool
	DepthWriteEnabled   bool
	DepthBias           int32
	DepthBiasSlopeScale float32
	BlendEnabled        bool
	CullMode            wgpu.CullMode
	Topology            wgpu.PrimitiveTopology
	FrontFace           wgpu.FrontFace
	WriteMask           wgpu.ColorWriteMask

	// BlendState is only used when BlendEnabled is set.
	BlendState *wgpu.BlendState
}

// NewState returns the default state with the options applied. The default depth tests and
// writes, does not blend, culls nothing and draws triangle lists with CCW front faces.
//
// Parameters:
//   - opts: a variadic list of StateBuilderOption functions
//
// Returns:
//   - State: the configured state
func NewState(opts ...StateBuilderOption) State {
	s := State{
		DepthTestEnabled:  true,
		DepthWriteEnabled: true,
		CullMode:          wgpu.CullModeNone,
		Topology:          wgpu.PrimitiveTopologyTriangleList,
		FrontFace:         wgpu.FrontFaceCCW,
		WriteMask:         wgpu.ColorWriteMaskAll,
		BlendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// apply copies the state into a pipeline descriptor. Depth settings are only applied when the
// descriptor has a depth format.
func (s State) apply(desc *gpu.RenderPipelineDescriptor) {
	desc.WriteMask = s.WriteMask
	if s.BlendEnabled {
		desc.Blend = s.BlendState
	}
	desc.Primitive = wgpu.PrimitiveState{
		Topology:  s.Topology,
		FrontFace: s.FrontFace,
		CullMode:  s.CullMode,
	}
	if desc.DepthFormat == wgpu.TextureFormatUndefined {
		return
	}
	desc.DepthWriteEnabled = s.DepthWriteEnabled
	desc.DepthCompare = wgpu.CompareFunctionAlways
	if s.DepthTestEnabled {
		desc.DepthCompare = wgpu.CompareFunctionLess
	}
	desc.DepthBias = s.DepthBias
	desc.DepthBiasSlopeScale = s.DepthBiasSlopeScale
}
