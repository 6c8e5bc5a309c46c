package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderInfo is the preprocessed form of a vertex/fragment source pair: plain WGSL for both stages,
// their entry points and the merged layout. Values returned by a Cache are shared and must be
// treated as read-only.
type ShaderInfo struct {
	// VertexSource is the expanded vertex shader WGSL.
	VertexSource string

	// FragmentSource is the expanded fragment shader WGSL.
	FragmentSource string

	// VertexEntryPoint is the name of the @vertex function.
	VertexEntryPoint string

	// FragmentEntryPoint is the name of the @fragment function.
	FragmentEntryPoint string

	// Layout holds the resolved attribute locations and uniform bindings.
	Layout ShaderLayout
}

// VertexModule builds the shader module descriptor for the vertex stage.
//
// Parameters:
//   - label: the debug label for the module
//
// Returns:
//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the expanded vertex WGSL
func (s *ShaderInfo) VertexModule(label string) *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: label + " Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.VertexSource,
		},
	}
}

// FragmentModule builds the shader module descriptor for the fragment stage.
//
// Parameters:
//   - label: the debug label for the module
//
// Returns:
//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the expanded fragment WGSL
func (s *ShaderInfo) FragmentModule(label string) *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: label + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.FragmentSource,
		},
	}
}

// BindGroupLayoutEntries returns the layout entries for every group index from 0 up to the
// highest group in use. Unused groups in between get an empty slice.
func (s *ShaderInfo) BindGroupLayoutEntries() [][]wgpu.BindGroupLayoutEntry {
	groups := make([][]wgpu.BindGroupLayoutEntry, s.Layout.GroupCount())
	for g := range groups {
		groups[g] = s.Layout.BindGroupLayoutEntries(BindGroupIndex(g))
	}
	return groups
}
