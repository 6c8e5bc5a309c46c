package gpu

import (
	"cmp"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

func (b *wgpuBuffer) Size() uint64 { return b.size }
func (b *wgpuBuffer) Release()     { b.buf.Release() }

type wgpuTexture struct {
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	width  uint32
	height uint32
	format wgpu.TextureFormat
}

func (t *wgpuTexture) Width() uint32              { return t.width }
func (t *wgpuTexture) Height() uint32             { return t.height }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

type wgpuSampler struct{ s *wgpu.Sampler }

func (s *wgpuSampler) Release() { s.s.Release() }

type wgpuBindGroup struct{ bg *wgpu.BindGroup }

func (b *wgpuBindGroup) Release() { b.bg.Release() }

type wgpuPipeline struct {
	pipeline         *wgpu.RenderPipeline
	layout           *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
	modules          []*wgpu.ShaderModule
}

func (p *wgpuPipeline) Release() {
	p.pipeline.Release()
	p.layout.Release()
	for _, l := range p.bindGroupLayouts {
		l.Release()
	}
	for _, m := range p.modules {
		m.Release()
	}
}

// wgpuDevice is the implementation of the WGPUDevice interface.
type wgpuDevice struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	presentMode   wgpu.PresentMode

	forceFallbackAdapter bool

	frameTexture *wgpuTexture
}

// WGPUDevice is a Device and Surface backed by cogentcore/webgpu, created for a window surface.
type WGPUDevice interface {
	Device
	Surface

	// Release frees the device, queue, surface, adapter and instance.
	Release()
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice creates a WebGPU instance, a surface from surfaceDescriptor, and requests an
// adapter and device compatible with that surface. The calling goroutine is locked to its OS
// thread, as the native WebGPU implementation requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, e.g. from wgpuglfw.GetSurfaceDescriptor
//   - options: variadic list of WGPUDeviceBuilderOption functions
//
// Returns:
//   - WGPUDevice: the device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUDeviceBuilderOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		presentMode: wgpu.PresentModeFifo,
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return nil, errors.New("gpu: surface reports no supported formats")
	}
	d.surfaceFormat = capabilities.Formats[0]

	common.Logger().Info("gpu device acquired", "surfaceFormat", d.surfaceFormat)
	return d, nil
}

func (d *wgpuDevice) Configure(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.surfaceWidth = width
	d.surfaceHeight = height
}

func (d *wgpuDevice) Format() wgpu.TextureFormat {
	return d.surfaceFormat
}

func (d *wgpuDevice) CurrentTexture() (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture != nil {
		return nil, errors.New("gpu: previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	d.frameTexture = &wgpuTexture{
		tex:    surfaceTexture,
		view:   view,
		width:  d.surfaceWidth,
		height: d.surfaceHeight,
		format: d.surfaceFormat,
	}
	return d.frameTexture, nil
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture == nil {
		return
	}
	d.surface.Present()
	d.frameTexture.Release()
	d.frameTexture = nil
}

func (d *wgpuDevice) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture == nil {
		return
	}
	d.frameTexture.Release()
	d.frameTexture = nil
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, size: desc.Size}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("gpu: foreign buffer %T", buf)
	}
	d.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     desc.Usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        desc.Format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

func (d *wgpuDevice) WriteTexture(tex Texture, data common.TextureStagingData) error {
	t, ok := tex.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("gpu: foreign texture %T", tex)
	}
	if data.Height == 0 || len(data.Pixels) == 0 {
		return nil
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(len(data.Pixels)) / data.Height,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDevice) CopyTexture(src, dst Texture) error {
	s, ok := src.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("gpu: foreign texture %T", src)
	}
	t, ok := dst.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("gpu: foreign texture %T", dst)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: t.tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *wgpuDevice) CreateSampler(label string, params common.SamplerStagingData) (Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  cmp.Or(params.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  cmp.Or(params.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     cmp.Or(params.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     cmp.Or(params.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{s: s}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	vs, err := d.device.CreateShaderModule(desc.VertexModule)
	if err != nil {
		return nil, fmt.Errorf("vertex module: %w", err)
	}
	fs, err := d.device.CreateShaderModule(desc.FragmentModule)
	if err != nil {
		vs.Release()
		return nil, fmt.Errorf("fragment module: %w", err)
	}
	p := &wgpuPipeline{modules: []*wgpu.ShaderModule{vs, fs}}

	p.bindGroupLayouts = make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for g, entries := range desc.BindGroupLayouts {
		layout, layoutErr := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", desc.Label, g),
			Entries: entries,
		})
		if layoutErr != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		p.bindGroupLayouts[g] = layout
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.bindGroupLayouts,
	})
	if err != nil {
		return nil, err
	}

	target := wgpu.ColorTargetState{
		Format:    desc.ColorFormat,
		WriteMask: desc.WriteMask,
		Blend:     desc.Blend,
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != wgpu.TextureFormatUndefined {
		depthStencil = &wgpu.DepthStencilState{
			Format:              desc.DepthFormat,
			DepthWriteEnabled:   desc.DepthWriteEnabled,
			DepthCompare:        desc.DepthCompare,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	p.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *wgpuDevice) CreateBindGroup(label string, pipeline RenderPipeline, group uint32, entries []BindGroupEntry) (BindGroup, error) {
	p, ok := pipeline.(*wgpuPipeline)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign pipeline %T", pipeline)
	}
	if int(group) >= len(p.bindGroupLayouts) {
		return nil, fmt.Errorf("gpu: pipeline %q has no bind group %d", label, group)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		switch {
		case e.Texture != nil:
			tex, ok := e.Texture.(*wgpuTexture)
			if !ok {
				return nil, fmt.Errorf("gpu: foreign texture %T", e.Texture)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{Binding: e.Binding, TextureView: tex.view}
		case e.Sampler != nil:
			s, ok := e.Sampler.(*wgpuSampler)
			if !ok {
				return nil, fmt.Errorf("gpu: foreign sampler %T", e.Sampler)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{Binding: e.Binding, Sampler: s.s}
		case e.Buffer != nil:
			buf, ok := e.Buffer.(*wgpuBuffer)
			if !ok {
				return nil, fmt.Errorf("gpu: foreign buffer %T", e.Buffer)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: e.Binding,
				Buffer:  buf.buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		default:
			return nil, fmt.Errorf("gpu: binding %d has no resource", e.Binding)
		}
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  p.bindGroupLayouts[group],
		Entries: bindGroupEntries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{bg: bg}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{queue: d.queue, encoder: encoder}, nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture != nil {
		d.frameTexture.Release()
		d.frameTexture = nil
	}
	d.queue.Release()
	d.device.Release()
	d.surface.Release()
	d.adapter.Release()
	d.instance.Release()
}

type wgpuCommandEncoder struct {
	queue    *wgpu.Queue
	encoder  *wgpu.CommandEncoder
	pass     *wgpuRenderPass
	released bool
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	if e.pass != nil && !e.pass.ended {
		return nil, errors.New("gpu: previous render pass has not ended")
	}
	color, ok := desc.Color.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign texture %T", desc.Color)
	}

	rpd := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       color.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: desc.ClearColor,
			},
		},
	}
	if desc.Depth != nil {
		depth, ok := desc.Depth.(*wgpuTexture)
		if !ok {
			return nil, fmt.Errorf("gpu: foreign texture %T", desc.Depth)
		}
		rpd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	e.pass = &wgpuRenderPass{pass: e.encoder.BeginRenderPass(rpd)}
	return e.pass, nil
}

func (e *wgpuCommandEncoder) Submit() error {
	if e.released {
		return errors.New("gpu: command encoder already released")
	}
	defer e.Release()

	commandBuffer, err := e.encoder.Finish(nil)
	if err != nil {
		return err
	}
	e.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (e *wgpuCommandEncoder) Release() {
	if e.released {
		return
	}
	e.released = true
	e.encoder.Release()
}

type wgpuRenderPass struct {
	pass  *wgpu.RenderPassEncoder
	ended bool
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	p.pass.SetPipeline(rp.(*wgpuPipeline).pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(group uint32, bg BindGroup) {
	p.pass.SetBindGroup(group, bg.(*wgpuBindGroup).bg, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer) {
	p.pass.SetIndexBuffer(buf.(*wgpuBuffer).buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	p.pass.End()
	p.pass.Release()
	p.ended = true
	return nil
}
