// Package texture holds CPU-side texture objects. A texture is backed either by pixels in memory
// or by an existing GPU texture; the texture store turns both into a GPU texture the renderer can
// bind.
package texture

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

var textureCount atomic.Uint64

// Texture is a versioned texture source with a declared format.
type Texture struct {
	mu      *sync.Mutex
	id      uint64
	label   string
	format  wgpu.TextureFormat
	width   uint32
	height  uint32
	pixels  []byte
	gpuSrc  gpu.Texture
	target  gpu.Texture
	version uint64
}

// New creates a CPU-backed texture from tightly packed pixel rows in format.
//
// Parameters:
//   - label: a debug label
//   - width, height: the size in pixels
//   - format: the pixel format of data
//   - pixels: the pixel data
//
// Returns:
//   - *Texture: the texture at version 1
func New(label string, width, height uint32, format wgpu.TextureFormat, pixels []byte) *Texture {
	return &Texture{
		mu:      &sync.Mutex{},
		id:      textureCount.Add(1),
		label:   label,
		format:  format,
		width:   width,
		height:  height,
		pixels:  pixels,
		version: 1,
	}
}

// FromImage converts any image.Image to RGBA8 and wraps it in a CPU-backed texture.
//
// Parameters:
//   - label: a debug label
//   - img: the decoded image
//   - srgb: true to declare the sRGB variant of the format
//
// Returns:
//   - *Texture: the texture
func FromImage(label string, img image.Image, srgb bool) *Texture {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	format := wgpu.TextureFormatRGBA8Unorm
	if srgb {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	return New(label, uint32(bounds.Dx()), uint32(bounds.Dy()), format, rgba.Pix)
}

// FromGPU wraps an existing GPU texture. The texture store copies it on the GPU instead of uploading bytes.
//
// Parameters:
//   - label: a debug label
//   - src: the GPU texture to copy from
//
// Returns:
//   - *Texture: the texture
func FromGPU(label string, src gpu.Texture) *Texture {
	t := New(label, src.Width(), src.Height(), src.Format(), nil)
	t.gpuSrc = src
	return t
}

// FromTarget wraps a render target that is bound as is, without a copy. Post-processing stages
// use it to sample the output of the previous stage.
//
// Parameters:
//   - label: a debug label
//   - target: the render target to bind, may be nil until the first frame
//
// Returns:
//   - *Texture: the texture
func FromTarget(label string, target gpu.Texture) *Texture {
	t := New(label, 0, 0, wgpu.TextureFormatUndefined, nil)
	if target != nil {
		t.width, t.height, t.format = target.Width(), target.Height(), target.Format()
	}
	t.target = target
	return t
}

// ID returns the texture identity.
func (t *Texture) ID() uint64 {
	return t.id
}

// Label returns the debug label.
func (t *Texture) Label() string {
	return t.label
}

// Format returns the declared pixel format.
func (t *Texture) Format() wgpu.TextureFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format
}

// Size returns the width and height in pixels.
func (t *Texture) Size() (uint32, uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Version returns the content version.
func (t *Texture) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// GPUSource returns the GPU texture backing this texture, or nil for CPU-backed textures.
func (t *Texture) GPUSource() gpu.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gpuSrc
}

// Target returns the render target bound directly in place of this texture, or nil.
func (t *Texture) Target() gpu.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

// SetTarget points the texture at a render target. The version only advances when the target changes.
//
// Parameters:
//   - target: the render target to bind
func (t *Texture) SetTarget(target gpu.Texture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.target == target {
		return
	}
	t.target, t.gpuSrc, t.pixels = target, nil, nil
	if target != nil {
		t.width, t.height, t.format = target.Width(), target.Height(), target.Format()
	}
	t.version++
}

// StagingData returns the pixels for upload.
func (t *Texture) StagingData() common.TextureStagingData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return common.TextureStagingData{Pixels: t.pixels, Width: t.width, Height: t.height}
}

// SetPixels replaces the CPU pixels and advances the version. A GPU-backed texture becomes CPU-backed.
//
// Parameters:
//   - width, height: the new size in pixels
//   - pixels: the pixel data in the declared format
//
// Returns:
//   - error: an error if pixels is empty
func (t *Texture) SetPixels(width, height uint32, pixels []byte) error {
	if width == 0 || height == 0 || len(pixels) == 0 {
		return fmt.Errorf("texture: %q needs a non-empty image, got %dx%d with %d bytes", t.label, width, height, len(pixels))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width, t.height, t.pixels, t.gpuSrc, t.target = width, height, pixels, nil, nil
	t.version++
	return nil
}

// SetGPUSource points the texture at a GPU texture and advances the version.
//
// Parameters:
//   - src: the GPU texture to copy from
func (t *Texture) SetGPUSource(src gpu.Texture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gpuSrc, t.pixels, t.target = src, nil, nil
	t.width, t.height, t.format = src.Width(), src.Height(), src.Format()
	t.version++
}
