package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestState_Apply(t *testing.T) {
	s := NewState(
		WithCullMode(wgpu.CullModeBack),
		WithDepthTestEnabled(false),
		WithDepthBias(2, 1.5),
		WithBlendEnabled(true),
	)

	desc := &gpu.RenderPipelineDescriptor{DepthFormat: DepthFormat}
	s.apply(desc)

	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
	assert.Equal(t, wgpu.CompareFunctionAlways, desc.DepthCompare)
	assert.True(t, desc.DepthWriteEnabled)
	assert.Equal(t, int32(2), desc.DepthBias)
	assert.Equal(t, float32(1.5), desc.DepthBiasSlopeScale)
	assert.NotNil(t, desc.Blend)
	assert.Equal(t, wgpu.ColorWriteMaskAll, desc.WriteMask)
}

func TestState_ApplyWithoutDepthOrBlend(t *testing.T) {
	desc := &gpu.RenderPipelineDescriptor{}
	NewState().apply(desc)

	assert.Nil(t, desc.Blend)
	assert.False(t, desc.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunction(0), desc.DepthCompare)
}

func TestRenderingMode_DrawCount(t *testing.T) {
	cases := []struct {
		mode     RenderingMode
		indices  int
		vertices int
		want     uint32
		pulling  bool
	}{
		{Triangles, 36, 24, 36, false},
		{TriangleLines, 36, 24, 216, true},
		{TriangleLines, 0, 3, 18, true},
		{LineList, 4, 4, 12, true},
		{LineList, 0, 5, 12, true},
		{Points, 36, 24, 144, true},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.mode.DrawCount(tc.indices, tc.vertices))
			assert.Equal(t, tc.pulling, tc.mode.VertexPulling())
		})
	}
	assert.Equal(t, "RenderingMode(9)", RenderingMode(9).String())
}
