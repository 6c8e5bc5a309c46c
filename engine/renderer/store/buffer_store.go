// Package store maps CPU-side meshes, uniforms and textures to the GPU objects that back them.
// Entries are keyed by integer identity, created lazily on first use, re-synced when the source
// version advances and released by explicit Release calls or Destroy.
package store

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// indexSlot is the slot name index buffers are stored under. It cannot collide with an
// attribute name because WGSL identifiers cannot start with '#'.
const indexSlot = "#index"

// Block is a GPU buffer region backing one CPU buffer.
type Block struct {
	Handle     gpu.Buffer
	ByteOffset uint64
	ByteLength uint64
}

// meshKey identifies one vertex or index buffer of a mesh. components is zero for buffers the
// mesh supplies and the per-vertex width for default buffers, so defaults of different widths
// never share an entry.
type meshKey struct {
	meshID     uint64
	slot       string
	components int
}

// blockEntry is a cached block plus the source version it was last synced at. shadow holds the
// bytes last written so that re-syncs only upload the changed range.
type blockEntry struct {
	block   Block
	version uint64
	shadow  []byte
}

type bufferStore struct {
	mu     *sync.Mutex
	device gpu.Device

	meshBuffers    map[meshKey]*blockEntry
	uniformBuffers map[uint64]*blockEntry
}

// BufferStore owns the vertex, index and uniform buffers of the renderer. Vertex and index buffers
// also carry storage usage so vertex pulling shaders can bind them read-only.
//
// Vertex and index buffers are keyed by (mesh id, slot). When the mesh version advances the
// buffer is rewritten, or recreated if its byte length changed. Uniform buffers are keyed by
// uniform id and rewritten only when the uniform version advances.
type BufferStore interface {
	// VertexBuffer returns the buffer for one attribute slot of mesh. Slots the mesh does not
	// populate resolve to a default buffer of components floats per vertex: ones for
	// model.SlotColor and zeros otherwise.
	//
	// Parameters:
	//   - mesh: the mesh
	//   - slot: the attribute name, which is also the mesh slot name
	//   - components: floats per vertex, used to size default buffers
	//
	// Returns:
	//   - Block: the synced buffer block
	//   - error: an error if the mesh has no vertices, the slot data is not VertexCount()*components
	//     floats long or the device fails
	VertexBuffer(mesh model.Mesh, slot string, components int) (Block, error)

	// IndexBuffer returns the uint32 index buffer of mesh.
	//
	// Parameters:
	//   - mesh: the mesh
	//
	// Returns:
	//   - Block: the synced buffer block
	//   - error: an error if the mesh has no indices or the device fails
	IndexBuffer(mesh model.Mesh) (Block, error)

	// UniformBuffer returns the uniform buffer for src, sized exactly to its serialized bytes.
	//
	// Parameters:
	//   - src: the uniform source
	//
	// Returns:
	//   - Block: the synced buffer block
	//   - error: an error if the device fails
	UniformBuffer(src uniform.Source) (Block, error)

	// ReleaseMesh releases every buffer created for the mesh.
	//
	// Parameters:
	//   - meshID: the mesh identity
	ReleaseMesh(meshID uint64)

	// ReleaseUniform releases the buffer created for a uniform.
	//
	// Parameters:
	//   - uniformID: the uniform identity
	ReleaseUniform(uniformID uint64)

	// Len returns the number of live buffers.
	Len() int

	// Destroy releases every buffer. The store stays usable and recreates buffers on demand.
	Destroy()
}

var _ BufferStore = &bufferStore{}

// NewBufferStore creates an empty BufferStore on device. Panics if device is nil.
//
// Parameters:
//   - device: the GPU device buffers are created on
//
// Returns:
//   - BufferStore: the new store
func NewBufferStore(device gpu.Device) BufferStore {
	if device == nil {
		panic("store: nil device")
	}
	return &bufferStore{
		mu:             &sync.Mutex{},
		device:         device,
		meshBuffers:    make(map[meshKey]*blockEntry),
		uniformBuffers: make(map[uint64]*blockEntry),
	}
}

func (s *bufferStore) VertexBuffer(mesh model.Mesh, slot string, components int) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if components <= 0 {
		return Block{}, fmt.Errorf("store: mesh %d slot %q: invalid component count %d", mesh.ID(), slot, components)
	}
	n := mesh.VertexCount()
	if n == 0 {
		return Block{}, fmt.Errorf("store: mesh %d has no vertices", mesh.ID())
	}

	version := mesh.Version()
	data := mesh.VertexBuffer(slot)
	key := meshKey{meshID: mesh.ID(), slot: slot}
	label := fmt.Sprintf("mesh_%d_%s", mesh.ID(), slot)
	if data == nil {
		key.components = components
		label = fmt.Sprintf("mesh_%d_%s_default%d", mesh.ID(), slot, components)
	} else if len(data) != n*components {
		return Block{}, fmt.Errorf("store: mesh %d slot %q holds %d floats, want %d (%d vertices of %d)",
			mesh.ID(), slot, len(data), n*components, n, components)
	}

	if e, ok := s.meshBuffers[key]; ok && e.version == version {
		return e.block, nil
	}

	if data == nil {
		fill := float32(0)
		if slot == model.SlotColor {
			fill = 1
		}
		common.Logger().Debug("default vertex buffer", "mesh", mesh.ID(), "slot", slot, "components", components)
		data = common.FilledFloat32s(n*components, fill)
	}
	return syncBlock(s, s.meshBuffers, key, label, wgpu.BufferUsageVertex|wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, common.SliceToBytes(data), version, true)
}

func (s *bufferStore) IndexBuffer(mesh model.Mesh) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := meshKey{meshID: mesh.ID(), slot: indexSlot}
	version := mesh.Version()
	if e, ok := s.meshBuffers[key]; ok && e.version == version {
		return e.block, nil
	}

	indices := mesh.Indices()
	if len(indices) == 0 {
		return Block{}, fmt.Errorf("store: mesh %d has no indices", mesh.ID())
	}
	label := fmt.Sprintf("mesh_%d_index", mesh.ID())
	return syncBlock(s, s.meshBuffers, key, label, wgpu.BufferUsageIndex|wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, common.SliceToBytes(indices), version, true)
}

func (s *bufferStore) UniformBuffer(src uniform.Source) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := src.Version()
	if e, ok := s.uniformBuffers[src.ID()]; ok && e.version == version {
		return e.block, nil
	}
	label := fmt.Sprintf("uniform_%d", src.ID())
	return syncBlock(s, s.uniformBuffers, src.ID(), label, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, src.Bytes(), version, false)
}

func (s *bufferStore) ReleaseMesh(meshID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.meshBuffers {
		if key.meshID == meshID {
			e.block.Handle.Release()
			delete(s.meshBuffers, key)
		}
	}
}

func (s *bufferStore) ReleaseUniform(uniformID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.uniformBuffers[uniformID]; ok {
		e.block.Handle.Release()
		delete(s.uniformBuffers, uniformID)
	}
}

func (s *bufferStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meshBuffers) + len(s.uniformBuffers)
}

func (s *bufferStore) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.meshBuffers {
		e.block.Handle.Release()
		delete(s.meshBuffers, key)
	}
	for id, e := range s.uniformBuffers {
		e.block.Handle.Release()
		delete(s.uniformBuffers, id)
	}
	common.Logger().Debug("buffer store destroyed")
}

// syncBlock creates or rewrites the entry for key so that it holds data at version. A byte length
// change recreates the buffer. With diff set only the changed byte range is written, otherwise
// the whole buffer is. Caller must hold the mutex.
func syncBlock[K comparable](s *bufferStore, entries map[K]*blockEntry, key K, label string, usage wgpu.BufferUsage, data []byte, version uint64, diff bool) (Block, error) {
	e, ok := entries[key]
	if ok && e.block.ByteLength != uint64(len(data)) {
		e.block.Handle.Release()
		delete(entries, key)
		ok = false
	}

	if !ok {
		buf, err := s.device.CreateBuffer(gpu.BufferDescriptor{Label: label, Size: uint64(len(data)), Usage: usage})
		if err != nil {
			return Block{}, fmt.Errorf("store: create buffer %s: %w", label, err)
		}
		if err = s.device.WriteBuffer(buf, 0, data); err != nil {
			buf.Release()
			return Block{}, fmt.Errorf("store: upload buffer %s: %w", label, err)
		}
		e = &blockEntry{block: Block{Handle: buf, ByteLength: uint64(len(data))}, version: version}
		if diff {
			e.shadow = append([]byte(nil), data...)
		}
		entries[key] = e
		common.Logger().Debug("buffer created", "label", label, "bytes", len(data))
		return e.block, nil
	}

	lo, hi := 0, len(data)
	if diff {
		lo, hi = changedRange(e.shadow, data)
	}
	if lo < hi {
		if err := s.device.WriteBuffer(e.block.Handle, e.block.ByteOffset+uint64(lo), data[lo:hi]); err != nil {
			return Block{}, fmt.Errorf("store: sync buffer %s: %w", label, err)
		}
		if diff {
			copy(e.shadow[lo:hi], data[lo:hi])
		}
	}
	e.version = version
	return e.block, nil
}

// changedRange returns the smallest [lo, hi) range outside of which a and b are equal, widened
// to 4 byte alignment as WriteBuffer requires. a and b must have the same length.
func changedRange(a, b []byte) (int, int) {
	lo := 0
	for lo < len(b) && a[lo] == b[lo] {
		lo++
	}
	if lo == len(b) {
		return 0, 0
	}
	hi := len(b)
	for hi > lo && a[hi-1] == b[hi-1] {
		hi--
	}
	lo &^= 3
	hi = min((hi+3)&^3, len(b))
	return lo, hi
}
