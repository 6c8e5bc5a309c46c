package pipeline

import "fmt"

// RenderingMode selects the draw call the stage chain issues for a material.
type RenderingMode int

const (
	// Triangles draws the mesh's index buffer as indexed triangles.
	Triangles RenderingMode = iota

	// TriangleLines draws the edges of each indexed triangle. The vertex shader pulls vertices
	// itself and expands every edge into 6 vertices.
	TriangleLines

	// LineList draws each index pair as a line, expanded to 6 vertices per line by the vertex shader.
	LineList

	// Points draws each vertex as a screen facing quad of 6 vertices.
	Points
)

// verticesPerPrimitive is the quad expansion used by every vertex pulling mode.
const verticesPerPrimitive = 6

func (m RenderingMode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case TriangleLines:
		return "triangle-lines"
	case LineList:
		return "line-list"
	case Points:
		return "points"
	default:
		return fmt.Sprintf("RenderingMode(%d)", int(m))
	}
}

// VertexPulling reports whether the mode draws without vertex buffers, leaving the vertex shader
// to derive its geometry from the vertex index.
func (m RenderingMode) VertexPulling() bool {
	return m != Triangles
}

// DrawCount returns the vertex or index count to draw a mesh with in this mode. Triangles returns
// the index count for an indexed draw, every other mode returns 6 vertices per primitive.
//
// Parameters:
//   - indexCount: the mesh index count
//   - vertexCount: the mesh vertex count
//
// Returns:
//   - uint32: the count to pass to the draw call
func (m RenderingMode) DrawCount(indexCount, vertexCount int) uint32 {
	switch m {
	case TriangleLines:
		// every triangle contributes three edges, one per index
		if indexCount == 0 {
			return uint32(vertexCount * verticesPerPrimitive)
		}
		return uint32(indexCount * verticesPerPrimitive)
	case LineList:
		if indexCount == 0 {
			return uint32(vertexCount / 2 * verticesPerPrimitive)
		}
		return uint32(indexCount / 2 * verticesPerPrimitive)
	case Points:
		return uint32(vertexCount * verticesPerPrimitive)
	default:
		return uint32(indexCount)
	}
}
