// Package uniform holds the CPU side of shader uniforms: a closed set of value kinds and the
// versioned containers the buffer store syncs to the GPU.
package uniform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind enumerates the value kinds a uniform can hold.
type Kind int

const (
	// KindNumber is a single float.
	KindNumber Kind = iota
	// KindVec2 is a two component vector.
	KindVec2
	// KindVec3 is a three component vector.
	KindVec3
	// KindVec4 is a four component vector.
	KindVec4
	// KindMat4 is a column-major 4x4 matrix.
	KindMat4
	// KindColor is an RGBA color, laid out like a vec4.
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindMat4:
		return "mat4"
	case KindColor:
		return "color"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged union over the uniform kinds. Only the first Kind.Components() entries of
// data are meaningful. Values are comparable, so two values can be checked for equality with ==.
type Value struct {
	kind Kind
	data [16]float32
}

// Number creates a scalar value.
func Number(v float32) Value {
	return Value{kind: KindNumber, data: [16]float32{v}}
}

// Vec2 creates a two component vector value.
func Vec2(x, y float32) Value {
	return Value{kind: KindVec2, data: [16]float32{x, y}}
}

// Vec3 creates a three component vector value.
func Vec3(x, y, z float32) Value {
	return Value{kind: KindVec3, data: [16]float32{x, y, z}}
}

// Vec4 creates a four component vector value.
func Vec4(x, y, z, w float32) Value {
	return Value{kind: KindVec4, data: [16]float32{x, y, z, w}}
}

// Color creates an RGBA color value.
func Color(r, g, b, a float32) Value {
	return Value{kind: KindColor, data: [16]float32{r, g, b, a}}
}

// Mat4 creates a matrix value from a column-major mathgl matrix.
func Mat4(m mgl32.Mat4) Value {
	return Value{kind: KindMat4, data: [16]float32(m)}
}

// Kind returns the value kind.
func (v Value) Kind() Kind {
	return v.kind
}

// Components returns the number of floats the value carries.
func (v Value) Components() int {
	switch v.kind {
	case KindNumber:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4, KindColor:
		return 4
	case KindMat4:
		return 16
	default:
		panic(fmt.Sprintf("uniform: unknown value kind %d", int(v.kind)))
	}
}

// Floats returns the meaningful components of the value.
func (v Value) Floats() []float32 {
	out := make([]float32, v.Components())
	copy(out, v.data[:])
	return out
}

// Size returns the byte size of the serialized value.
func (v Value) Size() uint64 {
	return uint64(v.Components()) * 4
}

// Bytes serializes the value in the layout WGSL expects for a uniform of the matching type:
// tightly packed little-endian floats, matrices column-major.
func (v Value) Bytes() []byte {
	out := make([]byte, v.Size())
	v.Put(out)
	return out
}

// Put serializes the value into dst, which must hold at least Size() bytes.
func (v Value) Put(dst []byte) {
	switch v.kind {
	case KindNumber:
		common.PutFloat32s(dst, v.data[0])
	case KindVec2:
		common.PutFloat32s(dst, v.data[0], v.data[1])
	case KindVec3:
		common.PutFloat32s(dst, v.data[0], v.data[1], v.data[2])
	case KindVec4, KindColor:
		common.PutFloat32s(dst, v.data[0], v.data[1], v.data[2], v.data[3])
	case KindMat4:
		common.PutFloat32s(dst, v.data[:]...)
	default:
		panic(fmt.Sprintf("uniform: unknown value kind %d", int(v.kind)))
	}
}
