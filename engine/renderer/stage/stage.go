// Package stage implements the render stage chain: one scene stage drawing the bucketed scene,
// followed by any number of post-processing stages that each sample the previous output.
package stage

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoOutput is returned when a stage is executed before it was given an output target.
var ErrNoOutput = errors.New("stage: no output target")

// Draw is one mesh drawn for one object with one material.
type Draw struct {
	Material pipeline.Material
	Object   pipeline.Object
	Mesh     model.Mesh
}

// Bucket groups the draws sharing a render order. Buckets are drawn in ascending render order.
type Bucket struct {
	RenderOrder int
	Draws       []Draw
}

// Frame is the per-frame input shared by every stage of the chain.
type Frame struct {
	Encoder    gpu.CommandEncoder
	Globals    uniform.Source
	ClearColor wgpu.Color
	Buckets    []Bucket
}

// Stage is one render pass of the chain.
type Stage interface {
	// Label returns the debug label of the stage.
	Label() string

	// Output returns the color target of the stage, or nil if none was set.
	Output() gpu.Texture

	// SetOutput sets the color target the next Execute renders into.
	//
	// Parameters:
	//   - target: the color target
	SetOutput(target gpu.Texture)

	// Execute records the pass into frame.Encoder. The color target and the depth texture of the
	// stage are cleared first.
	//
	// Parameters:
	//   - frame: the frame input
	//
	// Returns:
	//   - error: ErrNoOutput without an output target, or any resource or preprocessing error
	Execute(frame Frame) error

	// Release frees the resources owned by the stage.
	Release()
}

// depthTarget is the depth texture a stage owns, sized to its output and recreated on size change.
type depthTarget struct {
	device  gpu.Device
	label   string
	format  wgpu.TextureFormat
	texture gpu.Texture
}

// ensure returns a depth texture of width x height, or nil when the stage renders without depth.
func (d *depthTarget) ensure(width, height uint32) (gpu.Texture, error) {
	if d.format == wgpu.TextureFormatUndefined {
		return nil, nil
	}
	if d.texture != nil && d.texture.Width() == width && d.texture.Height() == height {
		return d.texture, nil
	}
	d.release()

	tex, err := d.device.CreateTexture(gpu.TextureDescriptor{
		Label:  d.label,
		Width:  width,
		Height: height,
		Format: d.format,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("stage: create depth texture %s: %w", d.label, err)
	}
	d.texture = tex
	common.Logger().Debug("depth texture created", "label", d.label, "width", width, "height", height)
	return tex, nil
}

func (d *depthTarget) release() {
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}

// bindShared sets the pipeline and the global and material bind groups of binding.
func bindShared(pass gpu.RenderPass, binding pipeline.Binding) {
	pass.SetPipeline(binding.Pipeline)
	for g, bg := range binding.BindGroups {
		pass.SetBindGroup(uint32(g), bg)
	}
}
