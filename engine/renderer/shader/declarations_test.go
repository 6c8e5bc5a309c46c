package shader

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUniforms(t *testing.T) {
	uniforms, err := ParseUniforms(`
UNIFORM(color, vec4f)
UNIFORM( diffuse , texture_2d<f32> )
OBJECT_UNIFORM(modelMatrix, mat4x4f)
UNIFORM(globals, GlobalValues)
`)
	require.NoError(t, err)
	require.Len(t, uniforms, 4)

	assert.Equal(t, UniformDeclaration{
		Name:      "color",
		Type:      UniformTypeVec4,
		Group:     GroupMaterial,
		Qualifier: "var<uniform>",
		Marker:    "UNIFORM(color, vec4f)",
	}, uniforms[0])

	assert.Equal(t, "diffuse", uniforms[1].Name)
	assert.Equal(t, UniformTypeTexture2D, uniforms[1].Type)
	assert.Equal(t, "var", uniforms[1].Qualifier)
	assert.Equal(t, "UNIFORM( diffuse , texture_2d<f32> )", uniforms[1].Marker)

	assert.Equal(t, GroupObject, uniforms[2].Group)
	assert.Equal(t, GroupGlobal, uniforms[3].Group)
}

func TestParseUniforms_UnknownType(t *testing.T) {
	_, err := ParseUniforms("UNIFORM(weights, array<f32, 4>)")
	require.Error(t, err)

	var se *ShaderError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Message, "array<f32, 4>")
	assert.Equal(t, "UNIFORM(weights, array<f32, 4>)", se.Text)
}

func TestParseUniforms_ObjectHandleRejected(t *testing.T) {
	_, err := ParseUniforms("OBJECT_UNIFORM(albedo, texture_2d<f32>)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be an object uniform")
}

func TestParseUniforms_MeshData(t *testing.T) {
	uniforms, err := ParseUniforms("OBJECT_UNIFORM(position, array<f32>)\nOBJECT_UNIFORM(indices, array<u32>)")
	require.NoError(t, err)
	require.Len(t, uniforms, 2)
	for _, u := range uniforms {
		assert.Equal(t, GroupObject, u.Group)
		assert.Equal(t, "var<storage, read>", u.Qualifier)
		assert.True(t, u.Type.IsMeshData())
		assert.False(t, u.Type.IsBuffer())
	}
	assert.Equal(t, UniformTypeVertexData, uniforms[0].Type)
	assert.Equal(t, UniformTypeIndexData, uniforms[1].Type)

	b := uint32(1)
	uniforms[1].Binding = &b
	decl, err := uniforms[1].Declaration()
	require.NoError(t, err)
	assert.Equal(t, "@group(2) @binding(1) var<storage, read> indices: array<u32>;", decl)

	entry := classifyResource(b, 0, UniformTypeVertexData)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entry.Buffer.Type)

	_, err = ParseUniforms("UNIFORM(position, array<f32>)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an OBJECT_UNIFORM")
}

func TestParseAttributes_UnknownType(t *testing.T) {
	_, err := ParseAttributes("ATTRIBUTE(weight, f32)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"f32"`)
	assert.Contains(t, err.Error(), "ATTRIBUTE(weight, f32)")
}

func TestDeclaration_Unbound(t *testing.T) {
	_, err := UniformDeclaration{Name: "color", Marker: "UNIFORM(color, vec4f)"}.Declaration()
	require.Error(t, err)

	_, err = AttributeDeclaration{Name: "position"}.Declaration()
	require.Error(t, err)
}

func TestDeclaration(t *testing.T) {
	b := uint32(3)
	decl, err := UniformDeclaration{
		Name:      "albedo",
		Type:      UniformTypeTexture2D,
		Group:     GroupMaterial,
		Qualifier: "var",
		Binding:   &b,
	}.Declaration()
	require.NoError(t, err)
	assert.Equal(t, "@group(1) @binding(3) var albedo: texture_2d<f32>;", decl)

	loc := uint32(2)
	decl, err = AttributeDeclaration{Name: "uv", Type: AttributeTypeVec2, Location: &loc}.Declaration()
	require.NoError(t, err)
	assert.Equal(t, "@location(2) uv: vec2f,", decl)
}
