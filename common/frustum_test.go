package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func testFrustum() Frustum {
	proj := Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return ExtractFrustum(proj.Mul4(view))
}

func TestFrustum_IntersectsAABB(t *testing.T) {
	f := testFrustum()

	unit := AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}
	assert.True(t, f.IntersectsAABB(unit))

	behind := AABB{Min: [3]float32{-1, -1, 10}, Max: [3]float32{1, 1, 12}}
	assert.False(t, f.IntersectsAABB(behind))

	farLeft := AABB{Min: [3]float32{-500, -1, -1}, Max: [3]float32{-400, 1, 1}}
	assert.False(t, f.IntersectsAABB(farLeft))

	assert.True(t, f.IntersectsAABB(AABB{Min: [3]float32{1, 1, 1}, Max: [3]float32{-1, -1, -1}}))
}

func TestTransformAABB(t *testing.T) {
	box := AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}
	moved := TransformAABB(box, mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2)))
	assert.InDeltaSlice(t, []float32{8, -2, -2}, moved.Min[:], 1e-5)
	assert.InDeltaSlice(t, []float32{12, 2, 2}, moved.Max[:], 1e-5)
}

func TestPerspective_DepthRange(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(60), 1, 1, 10)
	near := proj.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-5)
}
