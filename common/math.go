package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// clipSpaceCorrection remaps OpenGL clip space depth [-1, 1] to the WebGPU range [0, 1].
var clipSpaceCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Perspective builds a right handed perspective projection with WebGPU depth range [0, 1].
//
// Parameters:
//   - fovy: vertical field of view in radians
//   - aspect: width / height
//   - near, far: clipping plane distances
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	return clipSpaceCorrection.Mul4(mgl32.Perspective(fovy, aspect, near, far))
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32s writes values into dst as little-endian float32 words starting at byte offset 0.
// dst must hold at least 4*len(values) bytes.
//
// Parameters:
//   - dst: destination byte slice
//   - values: the float32 values to encode
func PutFloat32s(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// FilledFloat32s returns a slice of n float32 values all set to v.
//
// Parameters:
//   - n: the number of values
//   - v: the fill value
//
// Returns:
//   - []float32: the filled slice
func FilledFloat32s(n int, v float32) []float32 {
	out := make([]float32, n)
	if v == 0 {
		return out
	}
	for i := range out {
		out[i] = v
	}
	return out
}
