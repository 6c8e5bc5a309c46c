// Package bind_group_provider holds one GPU bind group together with the resources it was built
// from, so callers can re-resolve their resources every frame and only pay for a new bind group
// when one of them actually changed.
package bind_group_provider

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string
	// group is the bind group index this provider builds for.
	group uint32
	device gpu.Device

	// The following fields are GPU allocated resources and must be released when no longer needed.

	// bindGroup is the current bind group, or nil before the first Sync.
	bindGroup gpu.BindGroup
	// pipeline is the pipeline whose layout bindGroup was built against.
	pipeline gpu.RenderPipeline
	// entries are the resources bindGroup was built from, ordered by binding.
	entries []gpu.BindGroupEntry
	// builds counts how many bind groups this provider has created.
	builds int
}

// BindGroupProvider owns the bind group of one group index for one material or one object.
//
// Usage pattern:
//  1. The pipeline manager resolves the entries for the group from its stores
//  2. It calls Sync with the pipeline and the resolved entries every frame
//  3. Sync returns the cached bind group unless the pipeline or any entry resource changed
//  4. Release frees the bind group when the owner is released
type BindGroupProvider interface {
	// Release releases the bind group held by this provider. The next Sync builds a new one.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the bind group index this provider builds for.
	//
	// Returns:
	//   - uint32: the group index
	Group() uint32

	// BindGroup returns the current bind group.
	// Returns nil before the first successful Sync or after Release.
	//
	// Returns:
	//   - gpu.BindGroup: the bind group or nil
	BindGroup() gpu.BindGroup

	// Entries returns a copy of the entries the current bind group was built from.
	//
	// Returns:
	//   - []gpu.BindGroupEntry: the entries ordered by binding
	Entries() []gpu.BindGroupEntry

	// Builds returns how many bind groups this provider has created over its lifetime.
	//
	// Returns:
	//   - int: the number of bind group creations
	Builds() int

	// Sync makes sure the held bind group matches pipeline and entries. Entries are compared by
	// resource identity, buffer contents are not part of the comparison.
	//
	// Parameters:
	//   - pipeline: the pipeline whose layout the bind group must match
	//   - entries: the resolved resources, one per binding
	//
	// Returns:
	//   - gpu.BindGroup: the current bind group
	//   - error: an error if the bind group could not be created
	Sync(pipeline gpu.RenderPipeline, entries []gpu.BindGroupEntry) (gpu.BindGroup, error)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options. Panics if device is nil.
//
// Parameters:
//   - device: the device bind groups are created on
//   - group: the bind group index
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(device gpu.Device, group uint32, options ...BindGroupProviderOption) BindGroupProvider {
	if device == nil {
		panic("bind_group_provider: nil device")
	}
	p := &bindGroupProvider{
		mu:     &sync.Mutex{},
		label:  fmt.Sprintf("bind_group_%d", group),
		group:  group,
		device: device,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() uint32 {
	return p.group
}

func (p *bindGroupProvider) BindGroup() gpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Entries() []gpu.BindGroupEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gpu.BindGroupEntry(nil), p.entries...)
}

func (p *bindGroupProvider) Builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builds
}

func (p *bindGroupProvider) Sync(pipeline gpu.RenderPipeline, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bindGroup != nil && p.pipeline == pipeline && sameEntries(p.entries, entries) {
		return p.bindGroup, nil
	}

	bg, err := p.device.CreateBindGroup(p.label, pipeline, p.group, entries)
	if err != nil {
		return nil, fmt.Errorf("bind_group_provider: create %s: %w", p.label, err)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.pipeline = pipeline
	p.entries = append(p.entries[:0], entries...)
	p.builds++
	common.Logger().Debug("bind group built", "label", p.label, "entries", len(entries))
	return bg, nil
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = nil
	p.pipeline = nil
	p.entries = nil
}

// sameEntries reports whether a and b bind the same resources at the same bindings.
func sameEntries(a, b []gpu.BindGroupEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
