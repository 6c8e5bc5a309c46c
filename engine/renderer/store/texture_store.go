package store

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

type textureEntry struct {
	handle  gpu.Texture
	version uint64
}

type textureStore struct {
	mu     *sync.Mutex
	device gpu.Device

	empty    gpu.Texture
	textures map[uint64]*textureEntry
	samplers map[common.SamplerStagingData]gpu.Sampler
}

// TextureStore owns the GPU textures and samplers of the renderer. Textures are keyed by
// texture id and re-uploaded when the texture version advances. Samplers are deduplicated by
// their parameter tuple across every material.
type TextureStore interface {
	// Texture returns the GPU texture for t, creating and uploading it on first use.
	// A nil t resolves to the default texture and a render target texture resolves to its target.
	//
	// Parameters:
	//   - t: the CPU texture, or nil
	//
	// Returns:
	//   - gpu.Texture: the synced GPU texture
	//   - error: an error if the texture has no contents or the device fails
	Texture(t *texture.Texture) (gpu.Texture, error)

	// DefaultTexture returns the 1x1 opaque white texture created with the store.
	DefaultTexture() gpu.Texture

	// Sampler returns the shared sampler for params, creating it on first use.
	//
	// Parameters:
	//   - params: the filter and address modes
	//
	// Returns:
	//   - gpu.Sampler: the shared sampler
	//   - error: an error if the device fails
	Sampler(params common.SamplerStagingData) (gpu.Sampler, error)

	// ReleaseTexture releases the GPU texture created for a texture id.
	ReleaseTexture(textureID uint64)

	// Len returns the number of live textures, not counting the default texture, and samplers.
	Len() (textures, samplers int)

	// Destroy releases every texture and sampler including the default texture. The store must not be used afterwards.
	Destroy()
}

var _ TextureStore = &textureStore{}

// NewTextureStore creates a TextureStore on device and uploads its default texture.
// Panics if device is nil.
//
// Parameters:
//   - device: the GPU device textures are created on
//
// Returns:
//   - TextureStore: the new store
//   - error: an error if the default texture cannot be created
func NewTextureStore(device gpu.Device) (TextureStore, error) {
	if device == nil {
		panic("store: nil device")
	}
	empty, err := device.CreateTexture(gpu.TextureDescriptor{
		Label:  "default_texture",
		Width:  1,
		Height: 1,
		Format: wgpu.TextureFormatRGBA8Unorm,
		Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("store: create default texture: %w", err)
	}
	if err = device.WriteTexture(empty, common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1}); err != nil {
		empty.Release()
		return nil, fmt.Errorf("store: upload default texture: %w", err)
	}
	return &textureStore{
		mu:       &sync.Mutex{},
		device:   device,
		empty:    empty,
		textures: make(map[uint64]*textureEntry),
		samplers: make(map[common.SamplerStagingData]gpu.Sampler),
	}, nil
}

func (s *textureStore) Texture(t *texture.Texture) (gpu.Texture, error) {
	if t == nil {
		return s.empty, nil
	}
	if target := t.Target(); target != nil {
		return target, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := t.Version()
	e, ok := s.textures[t.ID()]
	if ok && e.version == version {
		return e.handle, nil
	}

	width, height := t.Size()
	format := t.Format()
	if ok && (e.handle.Width() != width || e.handle.Height() != height || e.handle.Format() != format) {
		e.handle.Release()
		delete(s.textures, t.ID())
		ok = false
	}
	if !ok {
		if width == 0 || height == 0 {
			return nil, fmt.Errorf("store: texture %q has no size", t.Label())
		}
		handle, err := s.device.CreateTexture(gpu.TextureDescriptor{
			Label:  t.Label(),
			Width:  width,
			Height: height,
			Format: format,
			Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("store: create texture %q: %w", t.Label(), err)
		}
		e = &textureEntry{handle: handle}
		s.textures[t.ID()] = e
		common.Logger().Debug("texture created", "label", t.Label(), "width", width, "height", height)
	}

	if src := t.GPUSource(); src != nil {
		if err := s.device.CopyTexture(src, e.handle); err != nil {
			return nil, fmt.Errorf("store: copy texture %q: %w", t.Label(), err)
		}
	} else if err := s.device.WriteTexture(e.handle, t.StagingData()); err != nil {
		return nil, fmt.Errorf("store: upload texture %q: %w", t.Label(), err)
	}
	e.version = version
	return e.handle, nil
}

func (s *textureStore) DefaultTexture() gpu.Texture {
	return s.empty
}

func (s *textureStore) Sampler(params common.SamplerStagingData) (gpu.Sampler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if smp, ok := s.samplers[params]; ok {
		return smp, nil
	}
	smp, err := s.device.CreateSampler(fmt.Sprintf("sampler_%d", len(s.samplers)), params)
	if err != nil {
		return nil, fmt.Errorf("store: create sampler: %w", err)
	}
	s.samplers[params] = smp
	return smp, nil
}

func (s *textureStore) ReleaseTexture(textureID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.textures[textureID]; ok {
		e.handle.Release()
		delete(s.textures, textureID)
	}
}

func (s *textureStore) Len() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures), len(s.samplers)
}

func (s *textureStore) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.textures {
		e.handle.Release()
		delete(s.textures, id)
	}
	for params, smp := range s.samplers {
		smp.Release()
		delete(s.samplers, params)
	}
	s.empty.Release()
	common.Logger().Debug("texture store destroyed")
}
