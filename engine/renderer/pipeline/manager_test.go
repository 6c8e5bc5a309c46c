package pipeline_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/store"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litVertex = `
struct VertexInput {
    ATTRIBUTE(position, vec3f)
    ATTRIBUTE(normal, vec3f)
};

UNIFORM(globals, GlobalValues)
UNIFORM(tint, vec4f)
OBJECT_UNIFORM(modelMatrix, mat4x4f)

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4f {
    return globals.projectionMatrix * globals.viewMatrix * modelMatrix * vec4f(in.position, 1.0);
}
`

const litFragment = `
UNIFORM(tint, vec4f)
UNIFORM(albedo, texture_2d<f32>)
UNIFORM(albedoSampler, sampler)

@fragment
fn fs_main() -> @location(0) vec4f {
    return tint;
}
`

const pointsVertex = `
UNIFORM(globals, GlobalValues)
UNIFORM(pointSize, f32)

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4f {
    return vec4f(f32(index) * pointSize, 0.0, 0.0, 1.0);
}
`

const pulledPointsVertex = `
OBJECT_UNIFORM(normal, array<f32>)
OBJECT_UNIFORM(indices, array<u32>)

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4f {
    let v = indices[index / 6u];
    return vec4f(normal[v * 3u], normal[v * 3u + 1u], normal[v * 3u + 2u], 1.0);
}
`

const plainFragment = `
@fragment
fn fs_main() -> @location(0) vec4f {
    return vec4f(1.0);
}
`

type fixture struct {
	dev      *gputest.Device
	buffers  store.BufferStore
	textures store.TextureStore
	mgr      pipeline.Manager
	cache    shader.Cache
	globals  *uniform.Globals
}

func newFixture(t *testing.T, options ...pipeline.ManagerBuilderOption) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	textures, err := store.NewTextureStore(dev)
	require.NoError(t, err)
	buffers := store.NewBufferStore(dev)
	return &fixture{
		dev:      dev,
		buffers:  buffers,
		textures: textures,
		mgr:      pipeline.NewManager(dev, buffers, textures, options...),
		cache:    shader.NewCache(),
		globals:  uniform.NewGlobals(),
	}
}

func (f *fixture) material(t *testing.T, options ...material.MaterialBuilderOption) material.Material {
	t.Helper()
	m, err := material.NewMaterial(f.cache, litVertex, litFragment, options...)
	require.NoError(t, err)
	return m
}

func TestManager_PipelineBuiltOnce(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, material.WithLabel("lit"))

	first, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	require.Len(t, first.BindGroups, 2)

	second, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	assert.Same(t, first.Pipeline, second.Pipeline)
	assert.Same(t, first.BindGroups[0], second.BindGroups[0])
	assert.Same(t, first.BindGroups[1], second.BindGroups[1])

	pipelines, _ := f.mgr.Len()
	assert.Equal(t, 1, pipelines)
	require.Len(t, f.dev.Pipelines, 1)

	desc := f.dev.Pipelines[0].Desc
	assert.Equal(t, "lit", desc.Label)
	assert.Equal(t, pipeline.DepthFormat, desc.DepthFormat)
	assert.Equal(t, wgpu.CompareFunctionLess, desc.DepthCompare)
	assert.Len(t, desc.VertexBuffers, 2)
	assert.Len(t, desc.BindGroupLayouts, 3)
}

func TestManager_PipelinePerColorFormat(t *testing.T) {
	f := newFixture(t)
	m := f.material(t)

	a, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	b, err := f.mgr.Prepare(m, wgpu.TextureFormatRGBA16Float, f.globals)
	require.NoError(t, err)
	assert.NotSame(t, a.Pipeline, b.Pipeline)

	pipelines, _ := f.mgr.Len()
	assert.Equal(t, 2, pipelines)
}

func TestManager_UniformChangeResyncsWithoutRebind(t *testing.T) {
	f := newFixture(t)
	m := f.material(t)

	first, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	writes := f.dev.BufferWrites

	require.NoError(t, m.SetUniform("tint", uniform.Color(1, 0, 0, 1)))
	second, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	assert.Same(t, first.BindGroups[1], second.BindGroups[1], "buffer contents do not change bind group identity")
	assert.Equal(t, writes+1, f.dev.BufferWrites)
}

func TestManager_TextureSwapRebuildsMaterialGroup(t *testing.T) {
	f := newFixture(t)
	m := f.material(t)

	first, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	albedo := first.BindGroups[1].(*gputest.BindGroup).Entries[1]
	assert.Same(t, f.textures.DefaultTexture(), albedo.Texture, "unset textures bind the default texture")

	tex := texture.New("red", 1, 1, wgpu.TextureFormatRGBA8Unorm, []byte{255, 0, 0, 255})
	require.NoError(t, m.SetTexture("albedo", tex))
	second, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	assert.Same(t, first.BindGroups[0], second.BindGroups[0])
	assert.NotSame(t, first.BindGroups[1], second.BindGroups[1])
	assert.True(t, first.BindGroups[1].(*gputest.BindGroup).Released)
}

func TestManager_GlobalsSharedAcrossMaterials(t *testing.T) {
	f := newFixture(t)
	a := f.material(t)
	b := f.material(t, material.WithSampler("albedoSampler", common.DefaultSampler))

	ba, err := f.mgr.Prepare(a, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	bb, err := f.mgr.Prepare(b, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	ga := ba.BindGroups[0].(*gputest.BindGroup).Entries[0]
	gb := bb.BindGroups[0].(*gputest.BindGroup).Entries[0]
	assert.Same(t, ga.Buffer, gb.Buffer)
	assert.Len(t, f.dev.Samplers, 1, "samplers are deduplicated by parameters")

	_, err = f.mgr.Prepare(a, wgpu.TextureFormatBGRA8Unorm, nil)
	var shaderErr *shader.ShaderError
	assert.True(t, errors.As(err, &shaderErr))
}

func TestManager_ObjectBindGroups(t *testing.T) {
	f := newFixture(t)
	m := f.material(t)
	nodeA := scene.NewNode(scene.WithPosition(mgl32.Vec3{1, 0, 0}))
	nodeB := scene.NewNode()

	_, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	bgA, err := f.mgr.PrepareObject(m, nodeA, nil, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	require.NotNil(t, bgA)
	bgB, err := f.mgr.PrepareObject(m, nodeB, nil, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	assert.NotSame(t, bgA, bgB)

	again, err := f.mgr.PrepareObject(m, nodeA, nil, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	assert.Same(t, bgA, again)

	_, objects := f.mgr.Len()
	assert.Equal(t, 2, objects)

	f.mgr.ReleaseObject(nodeA.ID())
	_, objects = f.mgr.Len()
	assert.Equal(t, 1, objects)
	assert.True(t, bgA.(*gputest.BindGroup).Released)
}

func TestManager_NoObjectGroup(t *testing.T) {
	f := newFixture(t)
	m, err := material.NewMaterial(f.cache, pointsVertex, plainFragment, material.WithRenderingMode(material.Points))
	require.NoError(t, err)

	b, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	assert.Len(t, b.BindGroups, 2)

	bg, err := f.mgr.PrepareObject(m, scene.NewNode(), nil, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	assert.Nil(t, bg)

	desc := f.dev.Pipelines[0].Desc
	assert.Empty(t, desc.VertexBuffers, "vertex pulling pipelines have no vertex buffers")
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
}

func TestManager_MeshDataBindings(t *testing.T) {
	f := newFixture(t)
	m, err := material.NewMaterial(f.cache, pulledPointsVertex, plainFragment, material.WithRenderingMode(material.Points))
	require.NoError(t, err)
	_, err = f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	plane := model.NewPlane(1, 1)
	bg, err := f.mgr.PrepareObject(m, scene.NewNode(), plane, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	entries := bg.(*gputest.BindGroup).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(4*3*4), entries[0].Buffer.Size(), "normals keep the mesh's own width")
	assert.Equal(t, uint64(6*4), entries[1].Buffer.Size())

	var shaderErr *shader.ShaderError
	_, err = f.mgr.PrepareObject(m, scene.NewNode(), nil, wgpu.TextureFormatBGRA8Unorm)
	assert.True(t, errors.As(err, &shaderErr), "no mesh")

	noNormals := model.NewMesh(model.WithPositions([]float32{0, 0, 0}), model.WithIndices([]uint32{0}))
	_, err = f.mgr.PrepareObject(m, scene.NewNode(), noNormals, wgpu.TextureFormatBGRA8Unorm)
	assert.True(t, errors.As(err, &shaderErr), "missing slot")

	noIndices := model.NewMesh(model.WithPositions([]float32{0, 0, 0}), model.WithNormals([]float32{0, 1, 0}))
	_, err = f.mgr.PrepareObject(m, scene.NewNode(), noIndices, wgpu.TextureFormatBGRA8Unorm)
	assert.True(t, errors.As(err, &shaderErr), "missing indices")
}

func TestManager_PullingWithAttributesFails(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, material.WithRenderingMode(material.LineList))

	_, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	var shaderErr *shader.ShaderError
	assert.True(t, errors.As(err, &shaderErr))
	assert.Empty(t, f.dev.Pipelines)
}

func TestManager_ReleaseMaterial(t *testing.T) {
	f := newFixture(t)
	m := f.material(t)
	n := scene.NewNode()

	b, err := f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	_, err = f.mgr.PrepareObject(m, n, nil, wgpu.TextureFormatBGRA8Unorm)
	require.NoError(t, err)
	before := f.buffers.Len()

	f.mgr.ReleaseMaterial(m.ID())
	pipelines, objects := f.mgr.Len()
	assert.Zero(t, pipelines)
	assert.Zero(t, objects)
	assert.True(t, b.Pipeline.(*gputest.Pipeline).Released)
	assert.True(t, b.BindGroups[1].(*gputest.BindGroup).Released)
	assert.Equal(t, before-1, f.buffers.Len(), "the tint buffer is released, globals and object buffers stay")

	_, err = f.mgr.Prepare(m, wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	assert.Len(t, f.dev.Pipelines, 2)
}

func TestManager_PipelineErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.dev.FailPipelines = true

	_, err := f.mgr.Prepare(f.material(t), wgpu.TextureFormatBGRA8Unorm, f.globals)
	assert.Error(t, err)
	pipelines, _ := f.mgr.Len()
	assert.Zero(t, pipelines)
}

func TestManager_WithoutDepth(t *testing.T) {
	f := newFixture(t, pipeline.WithDepthFormat(wgpu.TextureFormatUndefined))
	_, err := f.mgr.Prepare(f.material(t), wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatUndefined, f.dev.Pipelines[0].Desc.DepthFormat)
	assert.Equal(t, wgpu.CompareFunction(0), f.dev.Pipelines[0].Desc.DepthCompare)
}

func TestManager_Destroy(t *testing.T) {
	f := newFixture(t)
	b, err := f.mgr.Prepare(f.material(t), wgpu.TextureFormatBGRA8Unorm, f.globals)
	require.NoError(t, err)

	f.mgr.Destroy()
	assert.True(t, b.Pipeline.(*gputest.Pipeline).Released)
	for _, bg := range f.dev.BindGroups {
		assert.True(t, bg.Released)
	}
}

func TestNewManager_NilCollaboratorPanics(t *testing.T) {
	assert.Panics(t, func() { pipeline.NewManager(nil, nil, nil) })
}
