package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/store"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// Material is the view of a material the Manager builds pipelines and material bind groups from.
type Material interface {
	ID() uint64
	Label() string
	ShaderInfo() *shader.ShaderInfo
	State() State
	RenderingMode() RenderingMode

	// UniformAt returns the buffer slot at a material group binding, or nil.
	UniformAt(binding uint32) uniform.Source
	// TextureAt returns the texture at a material group binding, nil for the default texture.
	TextureAt(binding uint32) *texture.Texture
	// SamplerAt returns the sampler parameters at a material group binding.
	SamplerAt(binding uint32) common.SamplerStagingData
}

// Object is the view of a drawable the Manager builds object bind groups from.
type Object interface {
	ID() uint64

	// ObjectUniform returns the per-object value for an OBJECT_UNIFORM name, or nil.
	ObjectUniform(name string) uniform.Source
}

// Binding is everything needed to draw with a material in one output format.
type Binding struct {
	Pipeline gpu.RenderPipeline

	// BindGroups holds the global and material bind groups indexed by group. It only covers the
	// groups the shader layout uses.
	BindGroups []gpu.BindGroup
}

type pipelineKey struct {
	materialID uint64
	format     wgpu.TextureFormat
}

type objectKey struct {
	objectID   uint64
	materialID uint64
}

// pipelineEntry is one built pipeline with the bind group providers of its shared groups.
type pipelineEntry struct {
	pipeline  gpu.RenderPipeline
	providers []bind_group_provider.BindGroupProvider
}

// objectEntry is the object bind group of one (object, material) pair and the uniforms feeding it.
type objectEntry struct {
	provider   bind_group_provider.BindGroupProvider
	uniformIDs map[uint64]struct{}
}

type manager struct {
	mu       *sync.Mutex
	device   gpu.Device
	buffers  store.BufferStore
	textures store.TextureStore

	depthFormat wgpu.TextureFormat

	pipelines map[pipelineKey]*pipelineEntry
	objects   map[objectKey]*objectEntry
	// materialUniforms remembers the material uniform buffers each material id has synced.
	materialUniforms map[uint64]map[uint64]struct{}
}

// Manager builds and caches one render pipeline per (material, color format), the global and
// material bind groups that go with it and one object bind group per (object, material).
//
// Bind group entries are re-resolved on every call. Buffer contents are re-synced by the buffer
// store when their version advances, bind groups are only rebuilt when a resolved resource
// changes identity, for example when a material texture is swapped.
type Manager interface {
	// Prepare returns the pipeline and the global and material bind groups for mat.
	//
	// Parameters:
	//   - mat: the material
	//   - colorFormat: the format of the color target the pipeline renders into
	//   - globals: the per-frame GlobalValues block, bound to every GlobalValues uniform
	//
	// Returns:
	//   - Binding: the pipeline and bind groups
	//   - error: a ShaderError if the layout cannot be satisfied, or a device error
	Prepare(mat Material, colorFormat wgpu.TextureFormat, globals uniform.Source) (Binding, error)

	// PrepareObject returns the object bind group for drawing obj with mat. Mesh data uniforms
	// (array<f32> and array<u32>) are bound read-only to the vertex slot of the same name and to
	// the index buffer of mesh.
	//
	// Parameters:
	//   - mat: the material, which must have been prepared for colorFormat
	//   - obj: the object providing the OBJECT_UNIFORM values
	//   - mesh: the mesh being drawn, may be nil if mat declares no mesh data uniforms
	//   - colorFormat: the color format mat was prepared for
	//
	// Returns:
	//   - gpu.BindGroup: the object bind group, or nil if the material declares no object uniforms
	//   - error: a ShaderError if obj or mesh lacks a declared object uniform, or a device error
	PrepareObject(mat Material, obj Object, mesh model.Mesh, colorFormat wgpu.TextureFormat) (gpu.BindGroup, error)

	// DepthFormat returns the depth attachment format pipelines are built with, or
	// wgpu.TextureFormatUndefined when they have no depth attachment.
	DepthFormat() wgpu.TextureFormat

	// Buffers returns the buffer store bind groups are resolved against.
	Buffers() store.BufferStore

	// Textures returns the texture store bind groups are resolved against.
	Textures() store.TextureStore

	// ReleaseMaterial releases every pipeline and bind group built for a material along with its
	// uniform buffers. The material is rebuilt from scratch if it is prepared again.
	//
	// Parameters:
	//   - materialID: the material identity
	ReleaseMaterial(materialID uint64)

	// ReleaseObject releases the object bind groups and object uniform buffers of an object.
	//
	// Parameters:
	//   - objectID: the object identity
	ReleaseObject(objectID uint64)

	// ReleaseMesh releases the vertex and index buffers of a mesh.
	//
	// Parameters:
	//   - meshID: the mesh identity
	ReleaseMesh(meshID uint64)

	// Len returns the number of live pipelines and object bind groups.
	Len() (pipelines, objects int)

	// Destroy releases every pipeline and bind group. The stores are left to their owner.
	Destroy()
}

var _ Manager = &manager{}

// NewManager creates a Manager resolving resources through the given stores. Panics if any
// collaborator is nil.
//
// Parameters:
//   - device: the GPU device pipelines and bind groups are created on
//   - buffers: the buffer store
//   - textures: the texture store
//   - options: variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the new manager
func NewManager(device gpu.Device, buffers store.BufferStore, textures store.TextureStore, options ...ManagerBuilderOption) Manager {
	if device == nil || buffers == nil || textures == nil {
		panic("pipeline: nil collaborator")
	}
	m := &manager{
		mu:               &sync.Mutex{},
		device:           device,
		buffers:          buffers,
		textures:         textures,
		depthFormat:      DepthFormat,
		pipelines:        make(map[pipelineKey]*pipelineEntry),
		objects:          make(map[objectKey]*objectEntry),
		materialUniforms: make(map[uint64]map[uint64]struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) Prepare(mat Material, colorFormat wgpu.TextureFormat, globals uniform.Source) (Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.pipelineFor(mat, colorFormat)
	if err != nil {
		return Binding{}, err
	}

	layout := mat.ShaderInfo().Layout
	b := Binding{Pipeline: entry.pipeline, BindGroups: make([]gpu.BindGroup, len(entry.providers))}
	for g, provider := range entry.providers {
		group := shader.BindGroupIndex(g)
		entries, err := m.resolve(layout.UniformsInGroup(group), nil, func(u shader.UniformDeclaration) (uniform.Source, error) {
			if u.Type == shader.UniformTypeGlobalValues {
				if globals == nil {
					return nil, &shader.ShaderError{Message: fmt.Sprintf("material %q needs GlobalValues but none were provided", mat.Label()), Text: u.Marker}
				}
				return globals, nil
			}
			src := mat.UniformAt(*u.Binding)
			if src == nil {
				return nil, &shader.ShaderError{Message: fmt.Sprintf("material %q has no value for uniform %q", mat.Label(), u.Name), Text: u.Marker}
			}
			m.trackMaterialUniform(mat.ID(), src.ID())
			return src, nil
		}, mat)
		if err != nil {
			return Binding{}, err
		}
		bg, err := provider.Sync(entry.pipeline, entries)
		if err != nil {
			return Binding{}, err
		}
		b.BindGroups[g] = bg
	}
	return b, nil
}

func (m *manager) PrepareObject(mat Material, obj Object, mesh model.Mesh, colorFormat wgpu.TextureFormat) (gpu.BindGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	layout := mat.ShaderInfo().Layout
	if layout.GroupCount() <= int(shader.GroupObject) {
		return nil, nil
	}
	entry, err := m.pipelineFor(mat, colorFormat)
	if err != nil {
		return nil, err
	}

	key := objectKey{objectID: obj.ID(), materialID: mat.ID()}
	oe, ok := m.objects[key]
	if !ok {
		oe = &objectEntry{
			provider: bind_group_provider.NewBindGroupProvider(m.device, uint32(shader.GroupObject),
				bind_group_provider.WithLabel(fmt.Sprintf("object_%d_material_%d", obj.ID(), mat.ID()))),
			uniformIDs: make(map[uint64]struct{}),
		}
		m.objects[key] = oe
	}

	entries, err := m.resolve(layout.UniformsInGroup(shader.GroupObject), mesh, func(u shader.UniformDeclaration) (uniform.Source, error) {
		src := obj.ObjectUniform(u.Name)
		if src == nil {
			return nil, &shader.ShaderError{Message: fmt.Sprintf("object %d has no value for object uniform %q", obj.ID(), u.Name), Text: u.Marker}
		}
		oe.uniformIDs[src.ID()] = struct{}{}
		return src, nil
	}, mat)
	if err != nil {
		return nil, err
	}
	return oe.provider.Sync(entry.pipeline, entries)
}

func (m *manager) DepthFormat() wgpu.TextureFormat {
	return m.depthFormat
}

func (m *manager) Buffers() store.BufferStore {
	return m.buffers
}

func (m *manager) Textures() store.TextureStore {
	return m.textures
}

func (m *manager) ReleaseMaterial(materialID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.pipelines {
		if key.materialID == materialID {
			e.release()
			delete(m.pipelines, key)
		}
	}
	for key, oe := range m.objects {
		if key.materialID == materialID {
			oe.provider.Release()
			delete(m.objects, key)
		}
	}
	for id := range m.materialUniforms[materialID] {
		m.buffers.ReleaseUniform(id)
	}
	delete(m.materialUniforms, materialID)
	common.Logger().Debug("material released", "material", materialID)
}

func (m *manager) ReleaseObject(objectID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, oe := range m.objects {
		if key.objectID != objectID {
			continue
		}
		oe.provider.Release()
		for id := range oe.uniformIDs {
			m.buffers.ReleaseUniform(id)
		}
		delete(m.objects, key)
	}
}

func (m *manager) ReleaseMesh(meshID uint64) {
	m.buffers.ReleaseMesh(meshID)
}

func (m *manager) Len() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pipelines), len(m.objects)
}

func (m *manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.pipelines {
		e.release()
		delete(m.pipelines, key)
	}
	for key, oe := range m.objects {
		oe.provider.Release()
		delete(m.objects, key)
	}
	clear(m.materialUniforms)
	common.Logger().Debug("pipeline manager destroyed")
}

// pipelineFor returns the cached pipeline entry for mat in colorFormat, building it on first use.
// Caller must hold the mutex.
func (m *manager) pipelineFor(mat Material, colorFormat wgpu.TextureFormat) (*pipelineEntry, error) {
	key := pipelineKey{materialID: mat.ID(), format: colorFormat}
	if e, ok := m.pipelines[key]; ok {
		return e, nil
	}

	info := mat.ShaderInfo()
	mode := mat.RenderingMode()
	label := mat.Label()
	if label == "" {
		label = fmt.Sprintf("material_%d", mat.ID())
	}

	desc := &gpu.RenderPipelineDescriptor{
		Label:              label,
		VertexModule:       info.VertexModule(label),
		VertexEntryPoint:   info.VertexEntryPoint,
		FragmentModule:     info.FragmentModule(label),
		FragmentEntryPoint: info.FragmentEntryPoint,
		BindGroupLayouts:   info.BindGroupLayoutEntries(),
		ColorFormat:        colorFormat,
		DepthFormat:        m.depthFormat,
	}
	if mode.VertexPulling() {
		if len(info.Layout.Attributes) > 0 {
			return nil, &shader.ShaderError{Message: fmt.Sprintf("material %q draws %s by vertex pulling but declares vertex attributes", label, mode)}
		}
	} else {
		desc.VertexBuffers = info.Layout.VertexBufferLayouts()
	}
	mat.State().apply(desc)
	if mode.VertexPulling() {
		desc.Primitive.Topology = wgpu.PrimitiveTopologyTriangleList
	}

	rp, err := m.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build %q: %w", label, err)
	}

	shared := min(info.Layout.GroupCount(), int(shader.GroupObject))
	e := &pipelineEntry{pipeline: rp, providers: make([]bind_group_provider.BindGroupProvider, shared)}
	for g := range shared {
		e.providers[g] = bind_group_provider.NewBindGroupProvider(m.device, uint32(g),
			bind_group_provider.WithLabel(fmt.Sprintf("%s_group_%d", label, g)))
	}
	m.pipelines[key] = e
	common.Logger().Debug("pipeline built", "material", label, "format", colorFormat, "mode", mode)
	return e, nil
}

// resolve turns the uniforms of one group into bind group entries. Buffer uniforms are looked up
// through source and synced by the buffer store, textures and samplers come from mat and mesh
// data comes from mesh. Caller must hold the mutex.
func (m *manager) resolve(uniforms []shader.UniformDeclaration, mesh model.Mesh, source func(u shader.UniformDeclaration) (uniform.Source, error), mat Material) ([]gpu.BindGroupEntry, error) {
	entries := make([]gpu.BindGroupEntry, 0, len(uniforms))
	for _, u := range uniforms {
		binding := *u.Binding
		switch u.Type {
		case shader.UniformTypeVertexData, shader.UniformTypeIndexData:
			block, err := m.meshData(mesh, u)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gpu.BindGroupEntry{Binding: binding, Buffer: block.Handle})
		case shader.UniformTypeTexture2D:
			tex, err := m.textures.Texture(mat.TextureAt(binding))
			if err != nil {
				return nil, err
			}
			entries = append(entries, gpu.BindGroupEntry{Binding: binding, Texture: tex})
		case shader.UniformTypeSampler:
			smp, err := m.textures.Sampler(mat.SamplerAt(binding))
			if err != nil {
				return nil, err
			}
			entries = append(entries, gpu.BindGroupEntry{Binding: binding, Sampler: smp})
		default:
			src, err := source(u)
			if err != nil {
				return nil, err
			}
			block, err := m.buffers.UniformBuffer(src)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gpu.BindGroupEntry{Binding: binding, Buffer: block.Handle})
		}
	}
	return entries, nil
}

// meshData returns the mesh buffer bound to a mesh data uniform: the index buffer for array<u32>
// and the vertex slot named like the uniform for array<f32>.
func (m *manager) meshData(mesh model.Mesh, u shader.UniformDeclaration) (store.Block, error) {
	if mesh == nil {
		return store.Block{}, &shader.ShaderError{Message: fmt.Sprintf("uniform %q reads mesh data but the draw has no mesh", u.Name), Text: u.Marker}
	}
	if u.Type == shader.UniformTypeIndexData {
		if mesh.IndexCount() == 0 {
			return store.Block{}, &shader.ShaderError{Message: fmt.Sprintf("uniform %q reads indices but mesh %d has none", u.Name, mesh.ID()), Text: u.Marker}
		}
		return m.buffers.IndexBuffer(mesh)
	}

	data := mesh.VertexBuffer(u.Name)
	n := mesh.VertexCount()
	if data == nil || n == 0 {
		return store.Block{}, &shader.ShaderError{Message: fmt.Sprintf("uniform %q reads vertex slot %q but mesh %d has no such data", u.Name, u.Name, mesh.ID()), Text: u.Marker}
	}
	return m.buffers.VertexBuffer(mesh, u.Name, len(data)/n)
}

func (m *manager) trackMaterialUniform(materialID, uniformID uint64) {
	ids, ok := m.materialUniforms[materialID]
	if !ok {
		ids = make(map[uint64]struct{})
		m.materialUniforms[materialID] = ids
	}
	ids[uniformID] = struct{}{}
}

func (e *pipelineEntry) release() {
	for _, p := range e.providers {
		p.Release()
	}
	e.pipeline.Release()
}
