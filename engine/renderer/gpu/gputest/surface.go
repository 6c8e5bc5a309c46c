package gputest

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is a recording gpu.Surface. Each CurrentTexture call hands out a fresh texture sized to
// the last Configure call, the way a swap chain does. Like a real swap chain it refuses to hand
// out a second texture until the first one is presented or discarded.
type Surface struct {
	Width, Height uint32
	Frames        []*Texture
	Presented     int
	Discarded     int
	format        wgpu.TextureFormat
	acquired      bool
}

var _ gpu.Surface = &Surface{}

// NewSurface creates a surface of the given size using the BGRA8Unorm format.
func NewSurface(width, height uint32) *Surface {
	return &Surface{Width: width, Height: height, format: wgpu.TextureFormatBGRA8Unorm}
}

func (s *Surface) Configure(width, height uint32) {
	s.Width, s.Height = width, height
}

func (s *Surface) CurrentTexture() (gpu.Texture, error) {
	if s.acquired {
		return nil, errors.New("gputest: previous frame surface not yet presented")
	}
	t := &Texture{Label: "Surface", width: s.Width, height: s.Height, format: s.format}
	s.Frames = append(s.Frames, t)
	s.acquired = true
	return t, nil
}

func (s *Surface) Present() {
	if !s.acquired {
		return
	}
	s.acquired = false
	s.Presented++
}

func (s *Surface) Discard() {
	if !s.acquired {
		return
	}
	s.acquired = false
	s.Discarded++
}

// Acquired reports whether a texture is currently handed out.
func (s *Surface) Acquired() bool {
	return s.acquired
}

func (s *Surface) Format() wgpu.TextureFormat {
	return s.format
}
