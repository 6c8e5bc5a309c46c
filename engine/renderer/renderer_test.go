package renderer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meshVertex = `
struct VertexInput {
    ATTRIBUTE(position, vec3f)
};

UNIFORM(globals, GlobalValues)
OBJECT_UNIFORM(modelMatrix, mat4x4f)

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4f {
    return globals.projectionMatrix * globals.viewMatrix * modelMatrix * vec4f(in.position, 1.0);
}
`

const meshFragment = `
UNIFORM(tint, vec4f)

@fragment
fn fs_main() -> @location(0) vec4f {
    return tint;
}
`

const postFragment = `
UNIFORM(inputTexture, texture_2d<f32>)
UNIFORM(inputSampler, sampler)

@fragment
fn fs_main(@location(0) uv: vec2f) -> @location(0) vec4f {
    return textureSample(inputTexture, inputSampler, uv);
}
`

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (Renderer, *gputest.Device, *gputest.Surface) {
	t.Helper()
	dev := gputest.NewDevice()
	surface := gputest.NewSurface(320, 240)
	r, err := NewRenderer(dev, surface, options...)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	return r, dev, surface
}

func newMaterial(t *testing.T, cache shader.Cache, vs, fs string, options ...material.MaterialBuilderOption) material.Material {
	t.Helper()
	m, err := material.NewMaterial(cache, vs, fs, options...)
	require.NoError(t, err)
	return m
}

func TestBuildBuckets_Ordering(t *testing.T) {
	cache := shader.NewCache()
	matA := newMaterial(t, cache, meshVertex, meshFragment, material.WithRenderOrder(2))
	matB := newMaterial(t, cache, meshVertex, meshFragment, material.WithRenderOrder(1))
	matC := newMaterial(t, cache, meshVertex, meshFragment, material.WithRenderOrder(2))
	matD := newMaterial(t, cache, meshVertex, meshFragment, material.WithRenderOrder(1))

	first := model.NewCube(1)
	second := model.NewCube(1)

	root := scene.NewNode(scene.WithChildren(
		scene.NewNode(scene.WithMesh(second), scene.WithMaterial(matC)),
		scene.NewNode(scene.WithMesh(first), scene.WithMaterial(matD)),
		scene.NewNode(scene.WithMesh(second), scene.WithMaterial(matA)),
		scene.NewNode(scene.WithMesh(first), scene.WithMaterial(matB)),
		scene.NewNode(scene.WithMesh(first), scene.WithMaterial(matA)),
	))

	buckets := buildBuckets(root, nil)
	require.Len(t, buckets, 2)

	assert.Equal(t, 1, buckets[0].RenderOrder)
	require.Len(t, buckets[0].Draws, 2)
	assert.Equal(t, matB.ID(), buckets[0].Draws[0].Material.ID())
	assert.Equal(t, matD.ID(), buckets[0].Draws[1].Material.ID())

	assert.Equal(t, 2, buckets[1].RenderOrder)
	require.Len(t, buckets[1].Draws, 3)
	assert.Equal(t, matA.ID(), buckets[1].Draws[0].Material.ID())
	assert.Equal(t, first.ID(), buckets[1].Draws[0].Mesh.ID())
	assert.Equal(t, matA.ID(), buckets[1].Draws[1].Material.ID())
	assert.Equal(t, second.ID(), buckets[1].Draws[1].Mesh.ID())
	assert.Equal(t, matC.ID(), buckets[1].Draws[2].Material.ID())
}

func TestBuildBuckets_SkipsIncompleteAndInactive(t *testing.T) {
	cache := shader.NewCache()
	active := newMaterial(t, cache, meshVertex, meshFragment)
	inactive := newMaterial(t, cache, meshVertex, meshFragment, material.WithActive(false))
	cube := model.NewCube(1)

	root := scene.NewNode(scene.WithChildren(
		scene.NewNode(scene.WithMesh(cube), scene.WithMaterial(active)),
		scene.NewNode(scene.WithMesh(cube), scene.WithMaterial(inactive)),
		scene.NewNode(scene.WithMaterial(active)),
		scene.NewNode(scene.WithMesh(cube)),
		scene.NewNode(scene.WithActive(false), scene.WithChildren(
			scene.NewNode(scene.WithMesh(cube), scene.WithMaterial(active)),
		)),
	))

	buckets := buildBuckets(root, nil)
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Draws, 1)

	assert.Nil(t, buildBuckets(nil, nil))
}

func TestBuildBuckets_FrustumCulling(t *testing.T) {
	cache := shader.NewCache()
	mat := newMaterial(t, cache, meshVertex, meshFragment)
	visible := scene.NewNode(scene.WithMesh(model.NewCube(1)), scene.WithMaterial(mat))
	behind := scene.NewNode(scene.WithMesh(model.NewCube(1)), scene.WithMaterial(mat), scene.WithPosition(mgl32.Vec3{0, 0, 50}))
	root := scene.NewNode(scene.WithChildren(visible, behind))

	frustum := camera.NewCamera().Frustum()
	buckets := buildBuckets(root, &frustum)
	require.Len(t, buckets, 1)
	require.Len(t, buckets[0].Draws, 1)
	assert.Equal(t, visible.ID(), buckets[0].Draws[0].Object.ID())

	buckets = buildBuckets(root, nil)
	assert.Len(t, buckets[0].Draws, 2)
}

func TestRenderer_Render(t *testing.T) {
	r, dev, surface := newTestRenderer(t, WithClearColor(wgpu.Color{R: 0.2, A: 1}))
	mat := newMaterial(t, r.ShaderCache(), meshVertex, meshFragment)
	root := scene.NewNode(scene.WithMesh(model.NewCube(1)), scene.WithMaterial(mat))

	require.NoError(t, r.Render(root, camera.NewCamera()))

	assert.Equal(t, 1, surface.Presented)
	enc := dev.LastSubmission()
	require.NotNil(t, enc)
	require.Len(t, enc.Passes, 1)
	pass := enc.Passes[0]
	assert.Same(t, surface.Frames[0], pass.Desc.Color)
	assert.Equal(t, 0.2, pass.Desc.ClearColor.R)
	assert.Equal(t, 1, pass.Count("drawIndexed"))
}

func TestRenderer_NilRootClearsOnly(t *testing.T) {
	r, dev, surface := newTestRenderer(t)
	require.NoError(t, r.Render(nil, camera.NewCamera()))

	assert.Equal(t, 1, surface.Presented)
	enc := dev.LastSubmission()
	require.Len(t, enc.Passes, 1)
	assert.Empty(t, enc.Passes[0].Draws())
}

func TestRenderer_NoCamera(t *testing.T) {
	r, _, surface := newTestRenderer(t)
	assert.ErrorIs(t, r.Render(nil, nil), ErrNoCamera)
	assert.Zero(t, surface.Presented)
}

func TestRenderer_FailedFrameReleasesSurface(t *testing.T) {
	r, dev, surface := newTestRenderer(t)
	mat := newMaterial(t, r.ShaderCache(), meshVertex, meshFragment)
	root := scene.NewNode(scene.WithMesh(model.NewCube(1)), scene.WithMaterial(mat))
	cam := camera.NewCamera()

	dev.FailPipelines = true
	require.Error(t, r.Render(root, cam))
	assert.Zero(t, surface.Presented)
	assert.Equal(t, 1, surface.Discarded)
	assert.False(t, surface.Acquired())
	require.Len(t, dev.Encoders, 1)
	assert.True(t, dev.Encoders[0].Released)
	assert.Empty(t, dev.Submissions)

	dev.FailPipelines = false
	dev.FailSubmit = true
	require.Error(t, r.Render(root, cam))
	assert.Equal(t, 2, surface.Discarded)
	assert.False(t, surface.Acquired())
	require.Len(t, dev.Encoders, 2)
	assert.True(t, dev.Encoders[1].Released)

	dev.FailSubmit = false
	require.NoError(t, r.Render(root, cam))
	assert.Equal(t, 1, surface.Presented)
	assert.Equal(t, 2, surface.Discarded)
	assert.Len(t, surface.Frames, 3)
}

func TestRenderer_Destroyed(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	mat := newMaterial(t, r.ShaderCache(), meshVertex, meshFragment)
	root := scene.NewNode(scene.WithMesh(model.NewCube(1)), scene.WithMaterial(mat))
	require.NoError(t, r.Render(root, camera.NewCamera()))

	r.Destroy()
	r.Destroy()

	assert.ErrorIs(t, r.Render(root, camera.NewCamera()), ErrRendererDestroyed)
	assert.ErrorIs(t, r.SetRenderStages(), ErrRendererDestroyed)
	assert.Zero(t, dev.LiveTextures())
	for _, p := range dev.Pipelines {
		assert.True(t, p.Released)
	}
}

func TestRenderer_SetRenderStages(t *testing.T) {
	r, dev, surface := newTestRenderer(t)
	post := newMaterial(t, r.ShaderCache(), "INCLUDE(fullscreen_vertex)", postFragment)
	require.NoError(t, r.SetRenderStages(post))

	require.NoError(t, r.Render(nil, camera.NewCamera()))
	enc := dev.LastSubmission()
	require.Len(t, enc.Passes, 2)
	assert.NotSame(t, surface.Frames[0], enc.Passes[0].Desc.Color)
	assert.Same(t, surface.Frames[0], enc.Passes[1].Desc.Color)
	assert.Equal(t, 1, enc.Passes[1].Count("draw"))

	bad := newMaterial(t, r.ShaderCache(), meshVertex, postFragment)
	var shaderErr *shader.ShaderError
	require.True(t, errors.As(r.SetRenderStages(post, bad), &shaderErr))

	require.NoError(t, r.Render(nil, camera.NewCamera()))
	assert.Len(t, dev.LastSubmission().Passes, 1)
}

func TestRenderer_ResetPipeline(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	require.NoError(t, r.SetRenderStages(newMaterial(t, r.ShaderCache(), "INCLUDE(fullscreen_vertex)", postFragment)))
	r.ResetPipeline()

	require.NoError(t, r.Render(nil, camera.NewCamera()))
	assert.Len(t, dev.LastSubmission().Passes, 1)
}

func TestRenderer_GlobalsFollowClockAndSurface(t *testing.T) {
	now := time.Unix(100, 0)
	clock := func() time.Time { return now }
	r, _, surface := newTestRenderer(t, WithClock(clock))
	impl := r.(*renderer)

	require.NoError(t, r.Render(nil, camera.NewCamera()))
	now = now.Add(500 * time.Millisecond)
	r.Resize(640, 480)
	require.NoError(t, r.Render(nil, camera.NewCamera()))

	assert.Equal(t, uint32(640), surface.Width)
	assert.Equal(t, [2]float32{640, 480}, impl.globals.ScreenSize())
	assert.Equal(t, uint64(2), impl.globals.Version())

	r.Resize(0, 0)
	assert.Equal(t, uint32(640), surface.Width)
}

func TestRenderer_ClearColor(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	assert.Equal(t, wgpu.Color{A: 1}, r.ClearColor())
	r.SetClearColor(wgpu.Color{G: 1, A: 1})
	assert.Equal(t, wgpu.Color{G: 1, A: 1}, r.ClearColor())
}

func TestRenderer_ReleaseNode(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	mat := newMaterial(t, r.ShaderCache(), meshVertex, meshFragment)
	cube := model.NewCube(1)
	n := scene.NewNode(scene.WithMesh(cube), scene.WithMaterial(mat))
	require.NoError(t, r.Render(n, camera.NewCamera()))

	_, objects := r.(*renderer).manager.Len()
	require.Equal(t, 1, objects)

	r.ReleaseNode(n)
	_, objects = r.(*renderer).manager.Len()
	assert.Zero(t, objects)
	prefix := fmt.Sprintf("mesh_%d_", cube.ID())
	meshBuffers := 0
	for _, b := range dev.Buffers {
		if strings.HasPrefix(b.Label, prefix) {
			meshBuffers++
			assert.True(t, b.Released)
		}
	}
	assert.Equal(t, 2, meshBuffers)
}

func TestNewRenderer_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewRenderer(nil, gputest.NewSurface(1, 1)) })
}
