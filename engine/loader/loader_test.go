package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, enc func(*bytes.Buffer, image.Image) error, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func encodePNG(buf *bytes.Buffer, img image.Image) error { return png.Encode(buf, img) }
func encodeBMP(buf *bytes.Buffer, img image.Image) error { return bmp.Encode(buf, img) }
func encodeTIFF(buf *bytes.Buffer, img image.Image) error {
	return tiff.Encode(buf, img, nil)
}

func testFS(t *testing.T) fstest.MapFS {
	t.Helper()
	red := color.RGBA{R: 255, A: 255}
	return fstest.MapFS{
		"textures/red.png":    {Data: encode(t, encodePNG, solid(4, 2, red))},
		"textures/red.bmp":    {Data: encode(t, encodeBMP, solid(3, 3, red))},
		"textures/red.tiff":   {Data: encode(t, encodeTIFF, solid(2, 5, red))},
		"textures/large.png":  {Data: encode(t, encodePNG, solid(64, 32, red))},
		"textures/broken.png": {Data: []byte("not a png")},
		"textures/model.obj":  {Data: []byte("v 0 0 0")},
	}
}

func newTestLoader(t *testing.T, options ...LoaderBuilderOption) Loader {
	t.Helper()
	l := NewLoader(append([]LoaderBuilderOption{WithFS(testFS(t)), WithWorkers(2)}, options...)...)
	t.Cleanup(l.Close)
	return l
}

func TestLoader_LoadTexture(t *testing.T) {
	l := newTestLoader(t)

	tex, err := l.LoadTexture("textures/red.png", true)
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, uint32(4), w)
	assert.Equal(t, uint32(2), h)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, tex.Format())

	pixels := tex.StagingData().Pixels
	require.Len(t, pixels, 4*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, pixels[:4])

	again, err := l.LoadTexture("textures/red.png", true)
	require.NoError(t, err)
	assert.Same(t, tex, again)
	assert.Same(t, tex, l.Get("textures/red.png"))
}

func TestLoader_Formats(t *testing.T) {
	l := newTestLoader(t)

	bmpTex, err := l.LoadTexture("textures/red.bmp", false)
	require.NoError(t, err)
	w, h := bmpTex.Size()
	assert.Equal(t, [2]uint32{3, 3}, [2]uint32{w, h})
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, bmpTex.Format())

	tiffTex, err := l.LoadTexture("textures/red.tiff", false)
	require.NoError(t, err)
	w, h = tiffTex.Size()
	assert.Equal(t, [2]uint32{2, 5}, [2]uint32{w, h})
}

func TestLoader_Errors(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.LoadTexture("textures/model.obj", false)
	assert.ErrorContains(t, err, "unsupported image format")

	_, err = l.LoadTexture("textures/missing.png", false)
	assert.ErrorContains(t, err, "failed to open")

	_, err = l.LoadTexture("textures/broken.png", false)
	assert.ErrorContains(t, err, "failed to decode")

	assert.Empty(t, l.Textures())
}

func TestLoader_LoadTextures(t *testing.T) {
	l := newTestLoader(t)
	first, err := l.LoadTexture("textures/red.png", false)
	require.NoError(t, err)

	out, err := l.LoadTextures(false, "textures/red.png", "textures/red.bmp", "textures/red.tiff", "textures/broken.png")
	require.Error(t, err)
	assert.ErrorContains(t, err, "textures/broken.png")

	assert.Len(t, out, 3)
	assert.Same(t, first, out["textures/red.png"])
	assert.Same(t, out["textures/red.bmp"], l.Get("textures/red.bmp"))
	assert.Len(t, l.Textures(), 3)

	out, err = l.LoadTextures(false, "textures/red.bmp", "textures/red.tiff")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestLoader_DecodeTexture(t *testing.T) {
	l := newTestLoader(t)
	data := encode(t, encodeBMP, solid(5, 1, color.RGBA{G: 255, A: 255}))

	tex, err := l.DecodeTexture("green", bytes.NewReader(data), false)
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, [2]uint32{5, 1}, [2]uint32{w, h})
	assert.Same(t, tex, l.Get("green"))

	_, err = l.DecodeTexture("garbage", bytes.NewReader([]byte("garbage")), false)
	assert.Error(t, err)
}

func TestLoader_MaxSize(t *testing.T) {
	l := newTestLoader(t, WithMaxSize(16))

	tex, err := l.LoadTexture("textures/large.png", false)
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, uint32(16), w)
	assert.Equal(t, uint32(8), h)

	small, err := l.LoadTexture("textures/red.png", false)
	require.NoError(t, err)
	w, h = small.Size()
	assert.Equal(t, [2]uint32{4, 2}, [2]uint32{w, h})
}

func TestLoader_WithTexture(t *testing.T) {
	pre := texture.New("pre", 1, 1, wgpu.TextureFormatRGBA8Unorm, []byte{1, 2, 3, 4})
	l := newTestLoader(t, WithTexture("textures/red.png", pre))

	tex, err := l.LoadTexture("textures/red.png", false)
	require.NoError(t, err)
	assert.Same(t, pre, tex)
}
