package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a combined projection * view matrix using the
// Gribb/Hartmann method. The near plane follows the WebGPU clip space depth range of [0, 1].
//
// Parameters:
//   - viewProj: the view-projection matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	row := func(i int) mgl32.Vec4 { return viewProj.Row(i) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	rows := [6]mgl32.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r2,
		FrustumFar:    r3.Sub(r2),
	}

	var f Frustum
	for i, r := range rows {
		n := r.Vec3()
		length := n.Len()
		if length > 0 {
			f.Planes[i] = Plane{Normal: n.Mul(1 / length), Distance: r[3] / length}
			continue
		}
		f.Planes[i] = Plane{Normal: n, Distance: r[3]}
	}
	return f
}

// IntersectsAABB reports whether a world space box is at least partly inside the frustum.
// Empty boxes are treated as always visible so that meshes without bounds are never culled.
//
// Parameters:
//   - box: the world space bounding box
//
// Returns:
//   - bool: false only if the box lies entirely outside one of the planes
func (f Frustum) IntersectsAABB(box AABB) bool {
	if box.Empty() {
		return true
	}
	for _, p := range f.Planes {
		// positive vertex: the box corner furthest along the plane normal
		var v mgl32.Vec3
		for axis := range 3 {
			if p.Normal[axis] >= 0 {
				v[axis] = box.Max[axis]
			} else {
				v[axis] = box.Min[axis]
			}
		}
		if p.Normal.Dot(v)+p.Distance < 0 {
			return false
		}
	}
	return true
}

// TransformAABB returns the axis aligned box enclosing box after it is transformed by m.
//
// Parameters:
//   - box: the local space bounding box
//   - m: the transform, usually a world matrix
//
// Returns:
//   - AABB: the enclosing box, or box unchanged if it is empty
func TransformAABB(box AABB, m mgl32.Mat4) AABB {
	if box.Empty() {
		return box
	}
	out := AABB{
		Min: [3]float32{mgl32.MaxValue, mgl32.MaxValue, mgl32.MaxValue},
		Max: [3]float32{-mgl32.MaxValue, -mgl32.MaxValue, -mgl32.MaxValue},
	}
	for corner := range 8 {
		p := mgl32.Vec3{box.Min[0], box.Min[1], box.Min[2]}
		for axis := range 3 {
			if corner&(1<<axis) != 0 {
				p[axis] = box.Max[axis]
			}
		}
		w := mgl32.TransformCoordinate(p, m)
		for axis := range 3 {
			out.Min[axis] = min(out.Min[axis], w[axis])
			out.Max[axis] = max(out.Max[axis], w[axis])
		}
	}
	return out
}
