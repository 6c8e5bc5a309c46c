package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithClearColor sets the initial clear color. Defaults to opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithFrustumCulling enables skipping nodes whose world bounds lie outside the camera frustum.
//
// Parameters:
//   - enabled: true to cull against the camera frustum
//
// Returns:
//   - RendererBuilderOption: a function that applies the culling option to a renderer
func WithFrustumCulling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.frustumCulling = enabled
	}
}

// WithShaderCache shares an existing shader cache instead of creating a new one, so materials
// created before the renderer reuse their ShaderInfo.
//
// Parameters:
//   - cache: the shader cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader cache option to a renderer
func WithShaderCache(cache shader.Cache) RendererBuilderOption {
	return func(r *renderer) {
		r.cache = cache
	}
}

// WithDepthFormat sets the depth attachment format of every stage. wgpu.TextureFormatUndefined
// disables depth testing entirely.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth format option to a renderer
func WithDepthFormat(format wgpu.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.depthFormat = format
	}
}

// WithClock replaces the time source feeding the time and delta-time globals.
func WithClock(clock func() time.Time) RendererBuilderOption {
	return func(r *renderer) {
		r.clock = clock
	}
}
