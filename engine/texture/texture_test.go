package texture

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImage_ConvertsToRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 4, 4))
	img.Set(2, 3, color.NRGBA{R: 255, A: 255})

	tex := FromImage("red", img, true)
	w, h := tex.Size()
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(1), h)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, tex.Format())

	data := tex.StagingData()
	require.Len(t, data.Pixels, 8)
	assert.Equal(t, []byte{255, 0, 0, 255}, data.Pixels[:4])
}

func TestTexture_VersionAndSources(t *testing.T) {
	tex := New("t", 1, 1, wgpu.TextureFormatRGBA8Unorm, []byte{1, 2, 3, 4})
	v := tex.Version()
	assert.Nil(t, tex.GPUSource())

	dev := gputest.NewDevice()
	src, err := dev.CreateTexture(gpuTextureDesc())
	require.NoError(t, err)

	tex.SetGPUSource(src)
	assert.Equal(t, v+1, tex.Version())
	assert.Same(t, src, tex.GPUSource())
	w, h := tex.Size()
	assert.Equal(t, [2]uint32{8, 4}, [2]uint32{w, h})

	assert.Error(t, tex.SetPixels(0, 0, nil))
	require.NoError(t, tex.SetPixels(1, 1, []byte{0, 0, 0, 0}))
	assert.Nil(t, tex.GPUSource())
	assert.Equal(t, v+2, tex.Version())
}

func TestTexture_UniqueIDs(t *testing.T) {
	a := New("a", 1, 1, wgpu.TextureFormatRGBA8Unorm, nil)
	b := New("b", 1, 1, wgpu.TextureFormatRGBA8Unorm, nil)
	assert.NotEqual(t, a.ID(), b.ID())
}

func gpuTextureDesc() gpu.TextureDescriptor {
	return gpu.TextureDescriptor{Label: "src", Width: 8, Height: 4, Format: wgpu.TextureFormatBGRA8Unorm}
}

func TestTexture_Target(t *testing.T) {
	dev := gputest.NewDevice()
	a, err := dev.CreateTexture(gpuTextureDesc())
	require.NoError(t, err)
	b, err := dev.CreateTexture(gpuTextureDesc())
	require.NoError(t, err)

	tex := FromTarget("input", nil)
	assert.Nil(t, tex.Target())
	v := tex.Version()

	tex.SetTarget(a)
	assert.Same(t, a, tex.Target())
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, tex.Format())
	assert.Equal(t, v+1, tex.Version())

	tex.SetTarget(a)
	assert.Equal(t, v+1, tex.Version(), "same target keeps the version")

	tex.SetTarget(b)
	assert.Equal(t, v+2, tex.Version())
}
