package model

// NewPlane creates a width x depth plane in the XZ plane facing +Y, centered on the origin.
//
// Parameters:
//   - width: the extent along X
//   - depth: the extent along Z
//   - options: further MeshBuilderOption functions applied after the geometry
//
// Returns:
//   - Mesh: the plane mesh with positions, normals, uvs and indices
func NewPlane(width, depth float32, options ...MeshBuilderOption) Mesh {
	hw, hd := width/2, depth/2
	opts := []MeshBuilderOption{
		WithName("plane"),
		WithPositions([]float32{
			-hw, 0, -hd,
			hw, 0, -hd,
			hw, 0, hd,
			-hw, 0, hd,
		}),
		WithNormals([]float32{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0}),
		WithUVs([]float32{0, 0, 1, 0, 1, 1, 0, 1}),
		WithIndices([]uint32{0, 2, 1, 0, 3, 2}),
	}
	return NewMesh(append(opts, options...)...)
}

// cubeFaces lists each face as its normal and the two axes spanning it.
var cubeFaces = [6]struct {
	normal, u, v [3]float32
}{
	{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
	{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
	{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
	{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
	{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
}

// NewCube creates an axis aligned cube with the given edge length, centered on the origin.
// Each face has its own four vertices so normals and uvs stay flat.
//
// Parameters:
//   - size: the edge length
//   - options: further MeshBuilderOption functions applied after the geometry
//
// Returns:
//   - Mesh: the cube mesh with 24 vertices and 36 indices
func NewCube(size float32, options ...MeshBuilderOption) Mesh {
	h := size / 2
	positions := make([]float32, 0, 24*3)
	normals := make([]float32, 0, 24*3)
	uvs := make([]float32, 0, 24*2)
	indices := make([]uint32, 0, 36)

	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for f, face := range cubeFaces {
		for _, c := range corners {
			for axis := range 3 {
				p := face.normal[axis] + c[0]*face.u[axis] + c[1]*face.v[axis]
				positions = append(positions, p*h)
			}
			normals = append(normals, face.normal[:]...)
			uvs = append(uvs, (c[0]+1)/2, 1-(c[1]+1)/2)
		}
		base := uint32(f * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	opts := []MeshBuilderOption{
		WithName("cube"),
		WithPositions(positions),
		WithNormals(normals),
		WithUVs(uvs),
		WithIndices(indices),
	}
	return NewMesh(append(opts, options...)...)
}
