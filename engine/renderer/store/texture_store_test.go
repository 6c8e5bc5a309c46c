package store

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextureStore(t *testing.T) (*gputest.Device, TextureStore) {
	t.Helper()
	dev := gputest.NewDevice()
	s, err := NewTextureStore(dev)
	require.NoError(t, err)
	return dev, s
}

func TestTextureStore_DefaultTexture(t *testing.T) {
	dev, s := newTextureStore(t)

	def := s.DefaultTexture()
	require.NotNil(t, def)
	assert.Equal(t, uint32(1), def.Width())
	assert.Equal(t, []byte{255, 255, 255, 255}, def.(*gputest.Texture).Pixels)

	got, err := s.Texture(nil)
	require.NoError(t, err)
	assert.Same(t, def, got)
	assert.Len(t, dev.Textures, 1, "the default texture is created once")
}

func TestTextureStore_UploadAndVersioning(t *testing.T) {
	dev, s := newTextureStore(t)
	tex := texture.New("checker", 2, 1, wgpu.TextureFormatRGBA8Unorm, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	first, err := s.Texture(tex)
	require.NoError(t, err)
	ft := first.(*gputest.Texture)
	assert.Equal(t, 1, ft.Writes)

	again, err := s.Texture(tex)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, ft.Writes)

	require.NoError(t, tex.SetPixels(2, 1, []byte{9, 9, 9, 9, 9, 9, 9, 9}))
	same, err := s.Texture(tex)
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Equal(t, 2, ft.Writes)

	require.NoError(t, tex.SetPixels(1, 1, []byte{1, 1, 1, 1}))
	resized, err := s.Texture(tex)
	require.NoError(t, err)
	assert.NotSame(t, first, resized)
	assert.True(t, ft.Released)
	assert.Equal(t, 2, dev.LiveTextures())
}

func TestTextureStore_GPUSourceCopies(t *testing.T) {
	dev, s := newTextureStore(t)
	src, err := dev.CreateTexture(gpu.TextureDescriptor{Label: "offscreen", Width: 4, Height: 4, Format: wgpu.TextureFormatBGRA8Unorm})
	require.NoError(t, err)

	tex := texture.FromGPU("copy", src)
	got, err := s.Texture(tex)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.TextureCopies)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, got.Format())
	assert.Equal(t, 0, got.(*gputest.Texture).Writes)
}

func TestTextureStore_SamplerDedup(t *testing.T) {
	dev, s := newTextureStore(t)

	a, err := s.Sampler(common.DefaultSampler)
	require.NoError(t, err)
	b, err := s.Sampler(common.DefaultSampler)
	require.NoError(t, err)
	assert.Same(t, a, b)

	nearest := common.DefaultSampler
	nearest.MagFilter = wgpu.FilterModeNearest
	c, err := s.Sampler(nearest)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Len(t, dev.Samplers, 2)
}

func TestTextureStore_ReleaseAndDestroy(t *testing.T) {
	dev, s := newTextureStore(t)
	tex := texture.New("t", 1, 1, wgpu.TextureFormatRGBA8Unorm, []byte{0, 0, 0, 0})

	_, err := s.Texture(tex)
	require.NoError(t, err)
	_, err = s.Sampler(common.DefaultSampler)
	require.NoError(t, err)

	textures, samplers := s.Len()
	assert.Equal(t, 1, textures)
	assert.Equal(t, 1, samplers)

	s.ReleaseTexture(tex.ID())
	textures, _ = s.Len()
	assert.Equal(t, 0, textures)

	s.Destroy()
	assert.Equal(t, 0, dev.LiveTextures())
	for _, smp := range dev.Samplers {
		assert.True(t, smp.Released)
	}
}

func TestTextureStore_EmptyTexture(t *testing.T) {
	_, s := newTextureStore(t)
	_, err := s.Texture(texture.New("empty", 0, 0, wgpu.TextureFormatRGBA8Unorm, nil))
	assert.Error(t, err)
}

func TestTextureStore_TargetBoundDirectly(t *testing.T) {
	dev, s := newTextureStore(t)
	target, err := dev.CreateTexture(gpu.TextureDescriptor{Label: "ping", Width: 8, Height: 8, Format: wgpu.TextureFormatBGRA8Unorm})
	require.NoError(t, err)

	got, err := s.Texture(texture.FromTarget("input", target))
	require.NoError(t, err)
	assert.Same(t, target, got)
	assert.Zero(t, dev.TextureCopies)
	textures, _ := s.Len()
	assert.Zero(t, textures)
}
