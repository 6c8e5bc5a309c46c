package model

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// Well-known vertex buffer slots. Slot names match the ATTRIBUTE names shaders declare.
const (
	SlotPosition = "position"
	SlotNormal   = "normal"
	SlotUV       = "uv"
	SlotColor    = "color"
	SlotTangent  = "tangent"
)

var meshCount atomic.Uint64

// mesh is the implementation of the Mesh interface.
type mesh struct {
	mu      *sync.Mutex
	id      uint64
	name    string
	buffers map[string][]float32
	indices []uint32
	version uint64
	bounds  common.AABB
}

// Mesh is CPU-side geometry: non-interleaved float vertex buffers keyed by slot name, an optional
// uint32 index buffer and a version that advances on every mutation.
type Mesh interface {
	// ID retrieves the mesh identity GPU buffers are keyed by.
	//
	// Returns:
	//   - uint64: the mesh id
	ID() uint64

	// Name retrieves the mesh name.
	//
	// Returns:
	//   - string: the name, empty if unset
	Name() string

	// VertexBuffer retrieves the floats stored in a slot.
	//
	// Parameters:
	//   - slot: the slot name, e.g. SlotPosition
	//
	// Returns:
	//   - []float32: the slot data, or nil if the mesh has no such slot. The slice is shared with
	//     the mesh and must not be modified; use SetVertexBuffer instead
	VertexBuffer(slot string) []float32

	// Slots returns the names of all populated slots, sorted.
	//
	// Returns:
	//   - []string: the slot names
	Slots() []string

	// Indices retrieves the index buffer.
	//
	// Returns:
	//   - []uint32: the indices, or nil for non-indexed geometry. The slice is shared with the
	//     mesh and must not be modified
	Indices() []uint32

	// VertexCount returns the number of vertices, derived from the position slot.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of indices.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Version returns the current content version.
	//
	// Returns:
	//   - uint64: the version
	Version() uint64

	// Bounds returns the local space bounding box of the positions.
	//
	// Returns:
	//   - common.AABB: the bounds, empty if the mesh has no positions
	Bounds() common.AABB

	// SetVertexBuffer replaces a slot with a copy of data and advances the version.
	//
	// Parameters:
	//   - slot: the slot name
	//   - data: the floats to store
	//
	// Returns:
	//   - error: an error if data would change the vertex count of an existing position slot
	//     or does not divide evenly into vertices
	SetVertexBuffer(slot string, data []float32) error

	// SetIndices replaces the index buffer with a copy of indices and advances the version.
	//
	// Parameters:
	//   - indices: the new indices
	SetIndices(indices []uint32)
}

var _ Mesh = &mesh{}

// NewMesh creates a Mesh from the provided options.
//
// Parameters:
//   - options: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the new mesh at version 1
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{
		mu:      &sync.Mutex{},
		id:      meshCount.Add(1),
		buffers: make(map[string][]float32),
		version: 1,
	}
	for _, opt := range options {
		opt(m)
	}
	m.bounds = computeBounds(m.buffers[SlotPosition])
	return m
}

func (m *mesh) ID() uint64 {
	return m.id
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) VertexBuffer(slot string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffers[slot]
}

func (m *mesh) Slots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := make([]string, 0, len(m.buffers))
	for s := range m.buffers {
		slots = append(slots, s)
	}
	slices.Sort(slots)
	return slots
}

func (m *mesh) Indices() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indices
}

func (m *mesh) VertexCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers[SlotPosition]) / 3
}

func (m *mesh) IndexCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indices)
}

func (m *mesh) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *mesh) Bounds() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *mesh) SetVertexBuffer(slot string, data []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot == SlotPosition {
		if len(data)%3 != 0 {
			return fmt.Errorf("model: position data length %d is not a multiple of 3", len(data))
		}
		if old, ok := m.buffers[SlotPosition]; ok && len(old) != len(data) && len(m.buffers) > 1 {
			return fmt.Errorf("model: position data changes vertex count from %d to %d", len(old)/3, len(data)/3)
		}
	} else if n := len(m.buffers[SlotPosition]) / 3; n > 0 && len(data)%n != 0 {
		return fmt.Errorf("model: slot %q length %d does not divide into %d vertices", slot, len(data), n)
	}

	data = slices.Clone(data)
	m.buffers[slot] = data
	if slot == SlotPosition {
		m.bounds = computeBounds(data)
	}
	m.version++
	return nil
}

func (m *mesh) SetIndices(indices []uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indices = slices.Clone(indices)
	m.version++
}

func computeBounds(positions []float32) common.AABB {
	if len(positions) < 3 {
		return common.AABB{Min: [3]float32{1, 1, 1}, Max: [3]float32{-1, -1, -1}}
	}
	b := common.AABB{
		Min: [3]float32{positions[0], positions[1], positions[2]},
		Max: [3]float32{positions[0], positions[1], positions[2]},
	}
	for i := 3; i+2 < len(positions); i += 3 {
		for axis := range 3 {
			v := positions[i+axis]
			b.Min[axis] = min(b.Min[axis], v)
			b.Max[axis] = max(b.Max[axis], v)
		}
	}
	return b
}
