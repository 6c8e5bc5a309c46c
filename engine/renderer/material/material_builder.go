package material

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
)

// MaterialBuilderOption is a functional option for configuring a Material during construction.
type MaterialBuilderOption func(*material)

// WithLabel sets the debug label of the material.
//
// Parameters:
//   - label: the label used for GPU objects created for this material
//
// Returns:
//   - MaterialBuilderOption: a function that sets the label
func WithLabel(label string) MaterialBuilderOption {
	return func(m *material) {
		m.label = label
	}
}

// WithRenderOrder sets the bucket key of the material. Lower orders draw first.
//
// Parameters:
//   - order: the render order
//
// Returns:
//   - MaterialBuilderOption: a function that sets the render order
func WithRenderOrder(order int) MaterialBuilderOption {
	return func(m *material) {
		m.renderOrder = order
	}
}

// WithRenderingMode sets the draw mode of the material.
//
// Parameters:
//   - mode: the rendering mode
//
// Returns:
//   - MaterialBuilderOption: a function that sets the rendering mode
func WithRenderingMode(mode RenderingMode) MaterialBuilderOption {
	return func(m *material) {
		m.mode = mode
	}
}

// WithActive sets whether the material starts active. Materials are active by default.
func WithActive(active bool) MaterialBuilderOption {
	return func(m *material) {
		m.active = active
	}
}

// WithState appends pipeline state options applied on top of pipeline.NewState defaults.
//
// Parameters:
//   - opts: the state options
//
// Returns:
//   - MaterialBuilderOption: a function that records the state options
func WithState(opts ...pipeline.StateBuilderOption) MaterialBuilderOption {
	return func(m *material) {
		m.stateOptions = append(m.stateOptions, opts...)
	}
}

// WithUniform sets the initial value of a buffer uniform. NewMaterial fails if the value does not fit the declaration.
//
// Parameters:
//   - name: the uniform name
//   - v: the initial value
//
// Returns:
//   - MaterialBuilderOption: a function that records the initial value
func WithUniform(name string, v uniform.Value) MaterialBuilderOption {
	return func(m *material) {
		m.pendingUniforms[name] = v
	}
}

// WithTexture sets the initial texture of a texture uniform.
func WithTexture(name string, t *texture.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.pendingTextures[name] = t
	}
}

// WithSampler sets the initial parameters of a sampler uniform.
func WithSampler(name string, params common.SamplerStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.pendingSamplers[name] = params
	}
}
