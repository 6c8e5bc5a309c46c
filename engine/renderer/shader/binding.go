package shader

import (
	"cmp"
	"slices"
)

// bindingCounter hands out binding indices per bind group, each group starting at 0.
type bindingCounter map[BindGroupIndex]uint32

func (c bindingCounter) next(group BindGroupIndex) *uint32 {
	b := c[group]
	c[group] = b + 1
	return &b
}

// AssignAttributeLocations assigns locations 0, 1, 2... to attrs in slice order.
//
// Parameters:
//   - attrs: the vertex stage attribute declarations, modified in place
//
// Returns:
//   - error: a ShaderError naming the attribute if a name is declared twice
func AssignAttributeLocations(attrs []AttributeDeclaration) error {
	seen := make(map[string]struct{}, len(attrs))
	for i := range attrs {
		if _, ok := seen[attrs[i].Name]; ok {
			return shaderErrorf(attrs[i].Marker, "duplicate attribute %q", attrs[i].Name)
		}
		seen[attrs[i].Name] = struct{}{}
		loc := uint32(i)
		attrs[i].Location = &loc
	}
	return nil
}

// AssignUniformBindings assigns bind group bindings to the vertex and fragment uniform declarations.
//
// Names present in both stages are resolved first by a nested scan (vertex order outside,
// fragment order inside) and share one binding, so they always receive the lowest numbers in
// their group. Remaining vertex-only uniforms follow in vertex order, then fragment-only
// uniforms in fragment order. Every bind group has its own counter starting at 0.
//
// Parameters:
//   - vertex: the vertex stage uniform declarations, modified in place
//   - fragment: the fragment stage uniform declarations, modified in place
//
// Returns:
//   - error: a ShaderError if a stage declares a name twice or a shared name disagrees on type or group
func AssignUniformBindings(vertex, fragment []UniformDeclaration) error {
	if err := rejectDuplicateUniforms(vertex, "vertex"); err != nil {
		return err
	}
	if err := rejectDuplicateUniforms(fragment, "fragment"); err != nil {
		return err
	}

	counter := bindingCounter{}
	for i := range vertex {
		vertex[i].InVertex = true
		for j := range fragment {
			if vertex[i].Name != fragment[j].Name {
				continue
			}
			if vertex[i].Type != fragment[j].Type {
				return shaderErrorf(fragment[j].Marker, "uniform %q present in both vertex and fragment shaders but with different types", vertex[i].Name)
			}
			if vertex[i].Group != fragment[j].Group {
				return shaderErrorf(fragment[j].Marker, "uniform %q present in both vertex and fragment shaders but in different bind groups", vertex[i].Name)
			}
			b := counter.next(vertex[i].Group)
			vertex[i].Binding, fragment[j].Binding = b, b
			vertex[i].InFragment, fragment[j].InVertex = true, true
		}
	}

	for i := range vertex {
		if vertex[i].Binding == nil {
			vertex[i].Binding = counter.next(vertex[i].Group)
		}
	}
	for i := range fragment {
		fragment[i].InFragment = true
		if fragment[i].Binding == nil {
			fragment[i].Binding = counter.next(fragment[i].Group)
		}
	}
	return nil
}

func rejectDuplicateUniforms(decls []UniformDeclaration, stage string) error {
	seen := make(map[string]struct{}, len(decls))
	for _, d := range decls {
		if _, ok := seen[d.Name]; ok {
			return shaderErrorf(d.Marker, "duplicate uniform %q in %s shader", d.Name, stage)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// mergeUniforms returns the union of both stages' declarations deduplicated by name and sorted by
// group, then binding. All declarations must already be bound.
func mergeUniforms(vertex, fragment []UniformDeclaration) []UniformDeclaration {
	merged := make([]UniformDeclaration, 0, len(vertex)+len(fragment))
	index := make(map[string]int, len(vertex)+len(fragment))
	for _, list := range [][]UniformDeclaration{vertex, fragment} {
		for _, d := range list {
			if i, ok := index[d.Name]; ok {
				merged[i].InVertex = merged[i].InVertex || d.InVertex
				merged[i].InFragment = merged[i].InFragment || d.InFragment
				continue
			}
			index[d.Name] = len(merged)
			merged = append(merged, d)
		}
	}
	slices.SortStableFunc(merged, func(a, b UniformDeclaration) int {
		if c := cmp.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return cmp.Compare(*a.Binding, *b.Binding)
	})
	return merged
}
