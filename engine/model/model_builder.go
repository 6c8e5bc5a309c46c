package model

import "slices"

// MeshBuilderOption is a function that configures a mesh instance during construction.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the mesh.
//
// Parameters:
//   - name: the mesh name
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithPositions is an option builder that sets the position slot (three floats per vertex).
//
// Parameters:
//   - positions: the vertex positions
//
// Returns:
//   - MeshBuilderOption: a function that applies the positions option to a mesh
func WithPositions(positions []float32) MeshBuilderOption {
	return WithVertexBuffer(SlotPosition, positions)
}

// WithNormals is an option builder that sets the normal slot (three floats per vertex).
//
// Parameters:
//   - normals: the vertex normals
//
// Returns:
//   - MeshBuilderOption: a function that applies the normals option to a mesh
func WithNormals(normals []float32) MeshBuilderOption {
	return WithVertexBuffer(SlotNormal, normals)
}

// WithUVs is an option builder that sets the uv slot (two floats per vertex).
//
// Parameters:
//   - uvs: the texture coordinates
//
// Returns:
//   - MeshBuilderOption: a function that applies the uvs option to a mesh
func WithUVs(uvs []float32) MeshBuilderOption {
	return WithVertexBuffer(SlotUV, uvs)
}

// WithColors is an option builder that sets the color slot (four floats per vertex).
//
// Parameters:
//   - colors: the vertex colors
//
// Returns:
//   - MeshBuilderOption: a function that applies the colors option to a mesh
func WithColors(colors []float32) MeshBuilderOption {
	return WithVertexBuffer(SlotColor, colors)
}

// WithVertexBuffer is an option builder that sets an arbitrary slot.
//
// Parameters:
//   - slot: the slot name
//   - data: the floats to store
//
// Returns:
//   - MeshBuilderOption: a function that applies the slot option to a mesh
func WithVertexBuffer(slot string, data []float32) MeshBuilderOption {
	return func(m *mesh) {
		m.buffers[slot] = slices.Clone(data)
	}
}

// WithIndices is an option builder that sets the index buffer.
//
// Parameters:
//   - indices: the triangle or line indices
//
// Returns:
//   - MeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indices = slices.Clone(indices)
	}
}
