// Package gpu is the narrow GPU surface the renderer is written against. Handles are opaque
// interfaces so the stores, pipeline manager and stage chain run unchanged on the wgpu backed
// device and on the recording fake in gputest.
package gpu

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is a GPU buffer handle.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Release frees the GPU buffer.
	Release()
}

// Texture is a GPU texture together with its default view.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() wgpu.TextureFormat

	// Release frees the texture and its view.
	Release()
}

// Sampler is a GPU sampler handle.
type Sampler interface {
	Release()
}

// BindGroup is a GPU bind group handle.
type BindGroup interface {
	Release()
}

// RenderPipeline is a GPU render pipeline handle, including the bind group layouts it was built with.
type RenderPipeline interface {
	Release()
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a 2D, single mip, single sample texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// RenderPipelineDescriptor carries everything needed to build a render pipeline from preprocessed
// WGSL. BindGroupLayouts is indexed by group.
type RenderPipelineDescriptor struct {
	Label string

	VertexModule       *wgpu.ShaderModuleDescriptor
	VertexEntryPoint   string
	FragmentModule     *wgpu.ShaderModuleDescriptor
	FragmentEntryPoint string

	BindGroupLayouts [][]wgpu.BindGroupLayoutEntry
	VertexBuffers    []wgpu.VertexBufferLayout

	ColorFormat wgpu.TextureFormat
	WriteMask   wgpu.ColorWriteMask
	// Blend is nil when blending is disabled.
	Blend *wgpu.BlendState

	Primitive wgpu.PrimitiveState

	// DepthFormat is wgpu.TextureFormatUndefined when the pipeline has no depth attachment.
	DepthFormat         wgpu.TextureFormat
	DepthWriteEnabled   bool
	DepthCompare        wgpu.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// BindGroupEntry binds exactly one of Buffer, Texture or Sampler at Binding.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// RenderPassDescriptor describes a pass that clears Color to ClearColor and Depth to 1.
// Depth may be nil.
type RenderPassDescriptor struct {
	Label      string
	Color      Texture
	Depth      Texture
	ClearColor wgpu.Color
}

// Device creates GPU resources and records work.
type Device interface {
	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the allocation failed
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be queued
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture allocates a texture and its default view.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the allocation failed
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture queues a write of tightly packed pixel rows into tex.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - data: the pixels and their dimensions
	//
	// Returns:
	//   - error: an error if the write could not be queued
	WriteTexture(tex Texture, data common.TextureStagingData) error

	// CopyTexture copies the full contents of src into dst on the GPU. Both must share size and format.
	//
	// Parameters:
	//   - src: the source texture
	//   - dst: the destination texture
	//
	// Returns:
	//   - error: an error if the copy could not be submitted
	CopyTexture(src, dst Texture) error

	// CreateSampler creates a sampler for the parameter tuple.
	//
	// Parameters:
	//   - label: the debug label
	//   - params: filter and address modes
	//
	// Returns:
	//   - Sampler: the new sampler
	//   - error: an error if creation failed
	CreateSampler(label string, params common.SamplerStagingData) (Sampler, error)

	// CreateRenderPipeline builds the shader modules, bind group layouts, pipeline layout and pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the new pipeline
	//   - error: an error if any step failed
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateBindGroup creates a bind group against the layout pipeline uses for group.
	//
	// Parameters:
	//   - label: the debug label
	//   - pipeline: the pipeline whose layout to build against
	//   - group: the bind group index
	//   - entries: the resources to bind
	//
	// Returns:
	//   - BindGroup: the new bind group
	//   - error: an error if creation failed
	CreateBindGroup(label string, pipeline RenderPipeline, group uint32, entries []BindGroupEntry) (BindGroup, error)

	// CreateCommandEncoder starts recording a command buffer.
	//
	// Returns:
	//   - CommandEncoder: the encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)
}

// CommandEncoder records render passes into a single command buffer.
type CommandEncoder interface {
	// BeginRenderPass starts a pass. The previous pass must have ended.
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// Submit finishes the command buffer and submits it to the queue. The encoder cannot be used afterwards.
	Submit() error

	// Release drops the encoder without submitting. Safe to call after Submit or more than once.
	Release()
}

// RenderPass records draw commands.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(group uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End() error
}

// Surface is the presentable target the final stage renders into.
type Surface interface {
	// Configure (re)configures the surface for the given size.
	Configure(width, height uint32)

	// CurrentTexture acquires the texture to render the current frame into. Only one texture
	// may be acquired at a time; it must be handed back by Present or Discard.
	CurrentTexture() (Texture, error)

	// Present presents the acquired texture and releases it.
	Present()

	// Discard releases the acquired texture without presenting it. Used when a frame fails after
	// acquisition. No-op if nothing is acquired.
	Discard()

	// Format returns the surface color format.
	Format() wgpu.TextureFormat
}
