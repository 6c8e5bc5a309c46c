// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds pixel data for a texture pending GPU upload.
// This is used by the texture store to stage CPU-backed texture contents before writing them into the GPU texture.
type TextureStagingData struct {
	// Pixels is the raw pixel data for the texture, tightly packed rows in the texture's declared format.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the parameter tuple that fully identifies a sampler.
// Samplers are deduplicated by this tuple, so the struct must stay comparable.
type SamplerStagingData struct {
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// AddressModeU and AddressModeV specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV wgpu.AddressMode
}

// DefaultSampler is the linear, repeating sampler used when a material declares a sampler
// uniform but never configures it.
var DefaultSampler = SamplerStagingData{
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
	AddressModeU: wgpu.AddressModeRepeat,
	AddressModeV: wgpu.AddressModeRepeat,
}

// AABB is an axis aligned bounding box in either local or world space.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// Empty reports whether the box has never been extended.
//
// Returns:
//   - bool: true if Min is greater than Max on any axis
func (b AABB) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}
