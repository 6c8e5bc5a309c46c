package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderLayout is the merged, binding-resolved result of preprocessing a vertex/fragment pair.
// It is immutable once produced. Lookups scan linearly, callers that resolve names every frame
// should keep the result.
type ShaderLayout struct {
	// Attributes are the vertex attributes ordered by location.
	Attributes []AttributeDeclaration

	// Uniforms are the uniforms of both stages deduplicated by name, ordered by group then binding.
	Uniforms []UniformDeclaration
}

// Attribute looks up an attribute by name.
//
// Parameters:
//   - name: the attribute name
//
// Returns:
//   - AttributeDeclaration: the declaration
//   - error: a ShaderError if the layout declares no such attribute
func (l ShaderLayout) Attribute(name string) (AttributeDeclaration, error) {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a, nil
		}
	}
	return AttributeDeclaration{}, shaderErrorf("", "unknown attribute %q", name)
}

// Uniform looks up a uniform by name.
//
// Parameters:
//   - name: the uniform name
//
// Returns:
//   - UniformDeclaration: the declaration
//   - error: a ShaderError if the layout declares no such uniform
func (l ShaderLayout) Uniform(name string) (UniformDeclaration, error) {
	for _, u := range l.Uniforms {
		if u.Name == name {
			return u, nil
		}
	}
	return UniformDeclaration{}, shaderErrorf("", "unknown uniform %q", name)
}

// UniformsInGroup returns the uniforms of one bind group ordered by binding.
func (l ShaderLayout) UniformsInGroup(group BindGroupIndex) []UniformDeclaration {
	var out []UniformDeclaration
	for _, u := range l.Uniforms {
		if u.Group == group {
			out = append(out, u)
		}
	}
	return out
}

// GroupCount returns the number of bind group layouts a pipeline built from this layout needs:
// one past the highest group any uniform uses, or 0 when there are no uniforms. Groups in between
// that declare nothing still need an empty layout.
func (l ShaderLayout) GroupCount() int {
	count := 0
	for _, u := range l.Uniforms {
		if int(u.Group)+1 > count {
			count = int(u.Group) + 1
		}
	}
	return count
}

// BindGroupLayoutEntries builds the wgpu layout entries for one bind group. Visibility follows the
// stages that reference each uniform.
//
// Parameters:
//   - group: the bind group index
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the entries ordered by binding, empty if the group is unused
func (l ShaderLayout) BindGroupLayoutEntries(group BindGroupIndex) []wgpu.BindGroupLayoutEntry {
	uniforms := l.UniformsInGroup(group)
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(uniforms))
	for _, u := range uniforms {
		var visibility wgpu.ShaderStage
		if u.InVertex {
			visibility |= wgpu.ShaderStageVertex
		}
		if u.InFragment {
			visibility |= wgpu.ShaderStageFragment
		}
		entries = append(entries, classifyResource(*u.Binding, visibility, u.Type))
	}
	return entries
}

// VertexBufferLayouts builds one non-interleaved vertex buffer layout per attribute. The buffer
// slot equals the attribute location.
//
// Returns:
//   - []wgpu.VertexBufferLayout: the layouts ordered by location
func (l ShaderLayout) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	layouts := make([]wgpu.VertexBufferLayout, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: a.Type.Size(),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{
					Format:         a.Type.VertexFormat(),
					Offset:         0,
					ShaderLocation: *a.Location,
				},
			},
		})
	}
	return layouts
}
