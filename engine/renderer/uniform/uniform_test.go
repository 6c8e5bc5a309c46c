package uniform

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestValue_Bytes(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		want  []float32
	}{
		{"number", Number(1.5), []float32{1.5}},
		{"vec2", Vec2(1, 2), []float32{1, 2}},
		{"vec3", Vec3(1, 2, 3), []float32{1, 2, 3}},
		{"vec4", Vec4(1, 2, 3, 4), []float32{1, 2, 3, 4}},
		{"color", Color(0.1, 0.2, 0.3, 1), []float32{0.1, 0.2, 0.3, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.value.Bytes()
			require.Len(t, b, len(tc.want)*4)
			for i, w := range tc.want {
				assert.Equal(t, w, floatAt(b, i))
			}
		})
	}
}

func TestValue_Mat4ColumnMajor(t *testing.T) {
	m := mgl32.Translate3D(5, 6, 7)
	b := Mat4(m).Bytes()
	require.Len(t, b, 64)
	// translation sits in the fourth column
	assert.Equal(t, float32(5), floatAt(b, 12))
	assert.Equal(t, float32(6), floatAt(b, 13))
	assert.Equal(t, float32(7), floatAt(b, 14))
	assert.Equal(t, float32(1), floatAt(b, 15))
}

func TestUniform_SetBumpsVersionOnChange(t *testing.T) {
	u := New(Number(1))
	v := u.Version()

	assert.False(t, u.Set(Number(1)))
	assert.Equal(t, v, u.Version())

	assert.True(t, u.Set(Number(2)))
	assert.Equal(t, v+1, u.Version())
	assert.Equal(t, Number(2), u.Value())
}

func TestUniform_DistinctIDs(t *testing.T) {
	a, b := New(Number(0)), New(Number(0))
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), NewGlobals().ID())
}

func TestGlobals_Layout(t *testing.T) {
	g := NewGlobals()
	v0 := g.Version()

	view := mgl32.Translate3D(1, 2, 3)
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 100)
	g.Update(2.5, 0.016, 1280, 720, view, proj)
	assert.Equal(t, v0+1, g.Version())

	b := g.Bytes()
	require.Len(t, b, shader.GlobalValuesSize)
	assert.Equal(t, float32(2.5), floatAt(b, 0))
	assert.Equal(t, float32(0.016), floatAt(b, 1))
	assert.Equal(t, float32(1280), floatAt(b, 2))
	assert.Equal(t, float32(720), floatAt(b, 3))
	assert.Equal(t, float32(1), floatAt(b, 4+12))
	assert.Equal(t, proj[0], floatAt(b, 20))
}
