package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(t *testing.T, dev *gputest.Device) gpu.RenderPipeline {
	t.Helper()
	p, err := dev.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:            "test",
		BindGroupLayouts: [][]wgpu.BindGroupLayoutEntry{{}, {{Binding: 0}, {Binding: 1}}},
	})
	require.NoError(t, err)
	return p
}

func TestBindGroupProvider_RebuildsOnlyOnIdentityChange(t *testing.T) {
	dev := gputest.NewDevice()
	pipe := testPipeline(t, dev)
	bufA, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: "a", Size: 16})
	require.NoError(t, err)
	bufB, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: "b", Size: 16})
	require.NoError(t, err)
	smp, err := dev.CreateSampler("s", common.DefaultSampler)
	require.NoError(t, err)

	p := NewBindGroupProvider(dev, 1, WithLabel("material"))
	assert.Equal(t, "material", p.Label())
	assert.Equal(t, uint32(1), p.Group())
	assert.Nil(t, p.BindGroup())

	entries := []gpu.BindGroupEntry{{Binding: 0, Buffer: bufA}, {Binding: 1, Sampler: smp}}
	first, err := p.Sync(pipe, entries)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Builds())

	again, err := p.Sync(pipe, []gpu.BindGroupEntry{{Binding: 0, Buffer: bufA}, {Binding: 1, Sampler: smp}})
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, p.Builds())

	swapped, err := p.Sync(pipe, []gpu.BindGroupEntry{{Binding: 0, Buffer: bufB}, {Binding: 1, Sampler: smp}})
	require.NoError(t, err)
	assert.NotSame(t, first, swapped)
	assert.Equal(t, 2, p.Builds())
	assert.True(t, first.(*gputest.BindGroup).Released)
	assert.Equal(t, bufB, p.Entries()[0].Buffer)
}

func TestBindGroupProvider_PipelineChangeRebuilds(t *testing.T) {
	dev := gputest.NewDevice()
	buf, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: "a", Size: 16})
	require.NoError(t, err)
	smp, err := dev.CreateSampler("s", common.DefaultSampler)
	require.NoError(t, err)
	entries := []gpu.BindGroupEntry{{Binding: 0, Buffer: buf}, {Binding: 1, Sampler: smp}}

	p := NewBindGroupProvider(dev, 1)
	_, err = p.Sync(testPipeline(t, dev), entries)
	require.NoError(t, err)
	_, err = p.Sync(testPipeline(t, dev), entries)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Builds())
}

func TestBindGroupProvider_ErrorKeepsPrevious(t *testing.T) {
	dev := gputest.NewDevice()
	pipe := testPipeline(t, dev)
	buf, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: "a", Size: 16})
	require.NoError(t, err)
	smp, err := dev.CreateSampler("s", common.DefaultSampler)
	require.NoError(t, err)

	p := NewBindGroupProvider(dev, 1)
	first, err := p.Sync(pipe, []gpu.BindGroupEntry{{Binding: 0, Buffer: buf}, {Binding: 1, Sampler: smp}})
	require.NoError(t, err)

	_, err = p.Sync(pipe, []gpu.BindGroupEntry{{Binding: 0, Buffer: buf}})
	assert.Error(t, err)
	assert.Same(t, first, p.BindGroup())
}

func TestBindGroupProvider_Release(t *testing.T) {
	dev := gputest.NewDevice()
	pipe := testPipeline(t, dev)

	p := NewBindGroupProvider(dev, 0)
	bg, err := p.Sync(pipe, nil)
	require.NoError(t, err)

	p.Release()
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.Entries())
	assert.True(t, bg.(*gputest.BindGroup).Released)

	_, err = p.Sync(pipe, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Builds())
}

func TestNewBindGroupProvider_NilDevicePanics(t *testing.T) {
	assert.Panics(t, func() { NewBindGroupProvider(nil, 0) })
}
