// Package gputest provides an in-memory gpu.Device and gpu.Surface that record every call, for
// testing GPU-facing code without a GPU.
package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is a recorded buffer. Contents holds the bytes of the last write.
type Buffer struct {
	Label    string
	Usage    wgpu.BufferUsage
	Contents []byte
	Writes   int
	Released bool
	size     uint64
}

func (b *Buffer) Size() uint64 { return b.size }
func (b *Buffer) Release()     { b.Released = true }

// Texture is a recorded texture.
type Texture struct {
	Label    string
	Usage    wgpu.TextureUsage
	Pixels   []byte
	Writes   int
	CopiedTo int
	Released bool
	width    uint32
	height   uint32
	format   wgpu.TextureFormat
}

func (t *Texture) Width() uint32              { return t.width }
func (t *Texture) Height() uint32             { return t.height }
func (t *Texture) Format() wgpu.TextureFormat { return t.format }
func (t *Texture) Release()                   { t.Released = true }

// Sampler is a recorded sampler.
type Sampler struct {
	Label    string
	Params   common.SamplerStagingData
	Released bool
}

func (s *Sampler) Release() { s.Released = true }

// BindGroup is a recorded bind group.
type BindGroup struct {
	Label    string
	Pipeline *Pipeline
	Group    uint32
	Entries  []gpu.BindGroupEntry
	Released bool
}

func (b *BindGroup) Release() { b.Released = true }

// Pipeline is a recorded render pipeline.
type Pipeline struct {
	Desc     gpu.RenderPipelineDescriptor
	Released bool
}

func (p *Pipeline) Release() { p.Released = true }

// Command is one recorded render pass command.
type Command struct {
	// Op is one of "pipeline", "bindgroup", "vertex", "index", "draw", "drawIndexed".
	Op        string
	Pipeline  *Pipeline
	BindGroup *BindGroup
	Buffer    *Buffer
	Slot      uint32
	Count     uint32
	Instances uint32
}

// Pass is a recorded render pass.
type Pass struct {
	Desc     gpu.RenderPassDescriptor
	Commands []Command
	Ended    bool
}

// Draws returns the draw and drawIndexed commands of the pass in order.
func (p *Pass) Draws() []Command {
	var out []Command
	for _, c := range p.Commands {
		if c.Op == "draw" || c.Op == "drawIndexed" {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many commands with op the pass recorded.
func (p *Pass) Count(op string) int {
	n := 0
	for _, c := range p.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (p *Pass) SetPipeline(rp gpu.RenderPipeline) {
	p.Commands = append(p.Commands, Command{Op: "pipeline", Pipeline: rp.(*Pipeline)})
}

func (p *Pass) SetBindGroup(group uint32, bg gpu.BindGroup) {
	p.Commands = append(p.Commands, Command{Op: "bindgroup", Slot: group, BindGroup: bg.(*BindGroup)})
}

func (p *Pass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	p.Commands = append(p.Commands, Command{Op: "vertex", Slot: slot, Buffer: buf.(*Buffer)})
}

func (p *Pass) SetIndexBuffer(buf gpu.Buffer) {
	p.Commands = append(p.Commands, Command{Op: "index", Buffer: buf.(*Buffer)})
}

func (p *Pass) Draw(vertexCount, instanceCount uint32) {
	p.Commands = append(p.Commands, Command{Op: "draw", Count: vertexCount, Instances: instanceCount})
}

func (p *Pass) DrawIndexed(indexCount, instanceCount uint32) {
	p.Commands = append(p.Commands, Command{Op: "drawIndexed", Count: indexCount, Instances: instanceCount})
}

func (p *Pass) End() error {
	if p.Ended {
		return fmt.Errorf("gputest: pass %q ended twice", p.Desc.Label)
	}
	p.Ended = true
	return nil
}

// Encoder is a recorded command encoder.
type Encoder struct {
	Label     string
	Passes    []*Pass
	Submitted bool
	Released  bool
	device    *Device
}

func (e *Encoder) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if n := len(e.Passes); n > 0 && !e.Passes[n-1].Ended {
		return nil, fmt.Errorf("gputest: pass %q still open", e.Passes[n-1].Desc.Label)
	}
	if desc.Color == nil {
		return nil, fmt.Errorf("gputest: pass %q has no color target", desc.Label)
	}
	p := &Pass{Desc: desc}
	e.Passes = append(e.Passes, p)
	return p, nil
}

func (e *Encoder) Submit() error {
	if e.Submitted {
		return fmt.Errorf("gputest: encoder %q submitted twice", e.Label)
	}
	e.device.mu.Lock()
	defer e.device.mu.Unlock()
	if e.device.FailSubmit {
		return fmt.Errorf("gputest: encoder %q rejected by the queue", e.Label)
	}
	e.Submitted = true
	e.device.Submissions = append(e.device.Submissions, e)
	return nil
}

func (e *Encoder) Release() { e.Released = true }

// Device is a recording gpu.Device. All fields may be inspected by tests after the code under
// test has run.
type Device struct {
	mu *sync.Mutex

	Buffers     []*Buffer
	Textures    []*Texture
	Samplers    []*Sampler
	Pipelines   []*Pipeline
	BindGroups  []*BindGroup
	Encoders    []*Encoder
	Submissions []*Encoder

	// BufferWrites counts every WriteBuffer call.
	BufferWrites int
	// TextureCopies counts every CopyTexture call.
	TextureCopies int

	// FailPipelines makes CreateRenderPipeline return an error.
	FailPipelines bool
	// FailSubmit makes Encoder.Submit return an error.
	FailSubmit bool
}

var _ gpu.Device = &Device{}

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	return &Device{mu: &sync.Mutex{}}
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &Buffer{Label: desc.Label, Usage: desc.Usage, size: desc.Size}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := buf.(*Buffer)
	if b.Released {
		return fmt.Errorf("gputest: write to released buffer %q", b.Label)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("gputest: write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, b.Label, b.size)
	}
	b.Contents = append([]byte(nil), data...)
	b.Writes++
	d.BufferWrites++
	return nil
}

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &Texture{Label: desc.Label, Usage: desc.Usage, width: desc.Width, height: desc.Height, format: desc.Format}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) WriteTexture(tex gpu.Texture, data common.TextureStagingData) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := tex.(*Texture)
	t.Pixels = append([]byte(nil), data.Pixels...)
	t.Writes++
	return nil
}

func (d *Device) CopyTexture(src, dst gpu.Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, t := src.(*Texture), dst.(*Texture)
	if s.width != t.width || s.height != t.height {
		return fmt.Errorf("gputest: copy between mismatched sizes")
	}
	t.Pixels = append([]byte(nil), s.Pixels...)
	s.CopiedTo++
	d.TextureCopies++
	return nil
}

func (d *Device) CreateSampler(label string, params common.SamplerStagingData) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Sampler{Label: label, Params: params}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailPipelines {
		return nil, fmt.Errorf("gputest: pipeline %q rejected", desc.Label)
	}
	p := &Pipeline{Desc: *desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) CreateBindGroup(label string, pipeline gpu.RenderPipeline, group uint32, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := pipeline.(*Pipeline)
	if int(group) >= len(p.Desc.BindGroupLayouts) {
		return nil, fmt.Errorf("gputest: pipeline %q has no bind group %d", p.Desc.Label, group)
	}
	if want := len(p.Desc.BindGroupLayouts[group]); want != len(entries) {
		return nil, fmt.Errorf("gputest: bind group %d wants %d entries, got %d", group, want, len(entries))
	}
	bg := &BindGroup{Label: label, Pipeline: p, Group: group, Entries: append([]gpu.BindGroupEntry(nil), entries...)}
	d.BindGroups = append(d.BindGroups, bg)
	return bg, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := &Encoder{Label: label, device: d}
	d.Encoders = append(d.Encoders, e)
	return e, nil
}

// LastSubmission returns the most recently submitted encoder, or nil.
func (d *Device) LastSubmission() *Encoder {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Submissions) == 0 {
		return nil
	}
	return d.Submissions[len(d.Submissions)-1]
}

// LiveTextures counts textures that have not been released.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.Textures {
		if !t.Released {
			n++
		}
	}
	return n
}
