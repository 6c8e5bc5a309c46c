package shader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roundTripVertex = `
UNIFORM(foo, f32)
UNIFORM(bar, vec4f)
UNIFORM(texture1, texture_2d<f32>)
UNIFORM(globals, GlobalValues)
`

const roundTripFragment = `
UNIFORM(baz, f32)
UNIFORM(bar, vec4f)
UNIFORM(mySampler, sampler)
UNIFORM(myVec2, vec2f)
`

func parseBoth(t *testing.T, vs, fs string) ([]UniformDeclaration, []UniformDeclaration) {
	t.Helper()
	v, err := ParseUniforms(vs)
	require.NoError(t, err)
	f, err := ParseUniforms(fs)
	require.NoError(t, err)
	return v, f
}

func bindingsByName(decls ...[]UniformDeclaration) map[string]uint32 {
	out := map[string]uint32{}
	for _, list := range decls {
		for _, d := range list {
			out[d.Name] = *d.Binding
		}
	}
	return out
}

func TestAssignUniformBindings_RoundTrip(t *testing.T) {
	v, f := parseBoth(t, roundTripVertex, roundTripFragment)
	require.NoError(t, AssignUniformBindings(v, f))

	got := bindingsByName(v, f)
	assert.Equal(t, map[string]uint32{
		"bar":       0,
		"foo":       1,
		"texture1":  2,
		"baz":       3,
		"mySampler": 4,
		"myVec2":    5,
		"globals":   0,
	}, got)

	for _, d := range v {
		if d.Name == "globals" {
			assert.Equal(t, GroupGlobal, d.Group)
		}
		if d.Name == "bar" {
			assert.True(t, d.InVertex)
			assert.True(t, d.InFragment)
		}
	}
}

func TestAssignUniformBindings_Deterministic(t *testing.T) {
	v1, f1 := parseBoth(t, roundTripVertex, roundTripFragment)
	v2, f2 := parseBoth(t, roundTripVertex, roundTripFragment)
	require.NoError(t, AssignUniformBindings(v1, f1))
	require.NoError(t, AssignUniformBindings(v2, f2))
	assert.Equal(t, bindingsByName(v1, f1), bindingsByName(v2, f2))
}

func TestAssignUniformBindings_SharedBelowExclusive(t *testing.T) {
	vs := "UNIFORM(a, f32)\nUNIFORM(shared1, vec4f)\nUNIFORM(b, f32)\nUNIFORM(shared2, f32)"
	fs := "UNIFORM(shared2, f32)\nUNIFORM(c, vec3f)\nUNIFORM(shared1, vec4f)"
	v, f := parseBoth(t, vs, fs)
	require.NoError(t, AssignUniformBindings(v, f))

	got := bindingsByName(v, f)
	for _, shared := range []string{"shared1", "shared2"} {
		for _, exclusive := range []string{"a", "b", "c"} {
			assert.Less(t, got[shared], got[exclusive], "%s should bind below %s", shared, exclusive)
		}
	}
	// vertex order drives the nested scan
	assert.Equal(t, uint32(0), got["shared1"])
	assert.Equal(t, uint32(1), got["shared2"])
}

func TestAssignUniformBindings_DuplicateInStage(t *testing.T) {
	v, f := parseBoth(t, "UNIFORM(color, vec4f)\nUNIFORM(color, vec4f)", "")
	err := AssignUniformBindings(v, f)
	require.Error(t, err)

	var se *ShaderError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Message, `duplicate uniform "color"`)

	v, f = parseBoth(t, "", "UNIFORM(tex, texture_2d<f32>)\nUNIFORM(tex, texture_2d<f32>)")
	err = AssignUniformBindings(v, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tex")
}

func TestAssignUniformBindings_TypeMismatch(t *testing.T) {
	v, f := parseBoth(t, "UNIFORM(tint, vec4f)", "UNIFORM(tint, vec3f)")
	err := AssignUniformBindings(v, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tint"`)
	assert.Contains(t, err.Error(), "present in both")
	assert.Contains(t, err.Error(), "different types")
}

func TestAssignUniformBindings_ObjectGroupCounter(t *testing.T) {
	vs := "UNIFORM(color, vec4f)\nOBJECT_UNIFORM(modelMatrix, mat4x4f)\nUNIFORM(globals, GlobalValues)"
	v, f := parseBoth(t, vs, "UNIFORM(opacity, f32)")
	require.NoError(t, AssignUniformBindings(v, f))

	assert.Equal(t, GroupObject, v[1].Group)
	assert.Equal(t, uint32(0), *v[1].Binding)
	assert.Equal(t, uint32(0), *v[2].Binding)
	assert.Equal(t, uint32(1), *f[0].Binding)
}

func TestAssignAttributeLocations(t *testing.T) {
	attrs, err := ParseAttributes(`
struct VertexInput {
    ATTRIBUTE(position, vec3f)
    ATTRIBUTE(normal, vec3f)
    ATTRIBUTE(uv, vec2f)
    ATTRIBUTE(color, vec4f)
};`)
	require.NoError(t, err)
	require.NoError(t, AssignAttributeLocations(attrs))

	require.Len(t, attrs, 4)
	for i, name := range []string{"position", "normal", "uv", "color"} {
		assert.Equal(t, name, attrs[i].Name)
		assert.Equal(t, uint32(i), *attrs[i].Location)
	}
}

func TestAssignAttributeLocations_Duplicate(t *testing.T) {
	attrs, err := ParseAttributes("ATTRIBUTE(position, vec3f)\nATTRIBUTE(position, vec4f)")
	require.NoError(t, err)

	err = AssignAttributeLocations(attrs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate attribute "position"`)
}

func TestMergeUniforms(t *testing.T) {
	v, f := parseBoth(t, roundTripVertex, roundTripFragment)
	require.NoError(t, AssignUniformBindings(v, f))

	merged := mergeUniforms(v, f)
	names := make([]string, 0, len(merged))
	for _, u := range merged {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"globals", "bar", "foo", "texture1", "baz", "mySampler", "myVec2"}, names)
	assert.True(t, merged[1].InVertex)
	assert.True(t, merged[1].InFragment)
	assert.False(t, merged[4].InVertex)
}
