package stage

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// targetKey identifies the final target by what the intermediate textures must match. Swap chain
// textures are new objects every frame, so the handle itself cannot be the key.
type targetKey struct {
	width, height uint32
	format        wgpu.TextureFormat
}

// Chain runs the scene stage followed by the post stages. With post stages the scene renders into
// the first of two ping-pong textures, each post stage samples the texture the previous stage wrote
// and the last stage always writes the final target.
type Chain struct {
	device gpu.Device
	scene  Stage
	posts  []PostStage

	pingPong [2]gpu.Texture
	key      targetKey
}

// NewChain creates a chain holding only scene. Panics if device or scene is nil.
//
// Parameters:
//   - device: the device intermediate textures are created on
//   - scene: the scene stage, always at index 0
//
// Returns:
//   - *Chain: the chain
func NewChain(device gpu.Device, scene Stage) *Chain {
	if device == nil || scene == nil {
		panic("stage: nil collaborator")
	}
	return &Chain{device: device, scene: scene}
}

// Stages returns every stage in execution order, the scene stage first.
func (c *Chain) Stages() []Stage {
	out := make([]Stage, 0, len(c.posts)+1)
	out = append(out, c.scene)
	for _, p := range c.posts {
		out = append(out, p)
	}
	return out
}

// Append adds post stages to the end of the chain.
func (c *Chain) Append(posts ...PostStage) {
	c.posts = append(c.posts, posts...)
}

// Reset truncates the chain to the scene stage and releases the post stages and intermediate textures.
func (c *Chain) Reset() {
	for _, p := range c.posts {
		p.Release()
	}
	c.posts = nil
	c.releasePingPong()
	common.Logger().Info("render stages reset")
}

// Execute runs every stage for one frame.
//
// Parameters:
//   - frame: the frame input passed to every stage
//   - final: the target the last stage renders into
//
// Returns:
//   - error: the first stage error
func (c *Chain) Execute(frame Frame, final gpu.Texture) error {
	if final == nil {
		return ErrNoOutput
	}
	if len(c.posts) > 0 {
		if err := c.ensurePingPong(final); err != nil {
			return err
		}
	}

	stages := c.Stages()
	for i, st := range stages {
		if i == len(stages)-1 {
			st.SetOutput(final)
		} else {
			st.SetOutput(c.pingPong[i%2])
		}
		if i > 0 {
			c.posts[i-1].SetInput(c.pingPong[(i-1)%2])
		}
		if err := st.Execute(frame); err != nil {
			return fmt.Errorf("stage %s: %w", st.Label(), err)
		}
	}
	return nil
}

// PingPong returns the two intermediate textures, nil until the chain has run with post stages.
func (c *Chain) PingPong() [2]gpu.Texture {
	return c.pingPong
}

// Release releases every stage and intermediate texture.
func (c *Chain) Release() {
	c.Reset()
	c.scene.Release()
}

// ensurePingPong recreates both intermediate textures when the final target size or format changed.
func (c *Chain) ensurePingPong(final gpu.Texture) error {
	key := targetKey{width: final.Width(), height: final.Height(), format: final.Format()}
	if c.pingPong[0] != nil && key == c.key {
		return nil
	}
	c.releasePingPong()

	for i := range c.pingPong {
		tex, err := c.device.CreateTexture(gpu.TextureDescriptor{
			Label:  fmt.Sprintf("ping_pong_%d", i),
			Width:  key.width,
			Height: key.height,
			Format: key.format,
			Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		})
		if err != nil {
			c.releasePingPong()
			return fmt.Errorf("stage: create ping-pong texture: %w", err)
		}
		c.pingPong[i] = tex
	}
	c.key = key
	common.Logger().Debug("ping-pong textures created", "width", key.width, "height", key.height)
	return nil
}

func (c *Chain) releasePingPong() {
	for i, t := range c.pingPong {
		if t != nil {
			t.Release()
			c.pingPong[i] = nil
		}
	}
}
