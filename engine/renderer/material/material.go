package material

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// materialCount is the id source for materials. Ids start at 1.
var materialCount atomic.Uint64

// RenderingMode selects the draw call the stage chain issues for a material.
type RenderingMode = pipeline.RenderingMode

const (
	Triangles     = pipeline.Triangles
	TriangleLines = pipeline.TriangleLines
	LineList      = pipeline.LineList
	Points        = pipeline.Points
)

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	id    uint64
	label string
	info  *shader.ShaderInfo

	// the following maps are keyed by binding index within the material group
	uniforms map[uint32]*uniform.Uniform
	textures map[uint32]*texture.Texture
	samplers map[uint32]common.SamplerStagingData

	version     uint64
	active      bool
	renderOrder int
	mode        RenderingMode
	state       pipeline.State

	// pending initial values from builder options, applied and validated by NewMaterial
	pendingUniforms map[string]uniform.Value
	pendingTextures map[string]*texture.Texture
	pendingSamplers map[string]common.SamplerStagingData
	stateOptions    []pipeline.StateBuilderOption
}

// Material is a versioned bundle of preprocessed shader sources and the typed values feeding
// their material bind group. Slots are addressed by uniform name and stored by binding index.
//
// Every buffer uniform in the material group gets a slot at construction, initialized to zero
// (identity for matrices). Texture slots left unset resolve to the default white texture and
// sampler slots left unset resolve to common.DefaultSampler.
type Material interface {
	// ID returns the material identity. Ids are unique and increase monotonically.
	ID() uint64

	// Label returns the debug label.
	Label() string

	// ShaderInfo returns the preprocessed shader sources and layout.
	ShaderInfo() *shader.ShaderInfo

	// Version returns a counter that advances on every slot mutation.
	Version() uint64

	// Active returns whether nodes using this material are drawn.
	Active() bool

	// SetActive sets whether nodes using this material are drawn.
	SetActive(active bool)

	// RenderOrder returns the bucket key. Lower orders draw first.
	RenderOrder() int

	// SetRenderOrder sets the bucket key.
	SetRenderOrder(order int)

	// RenderingMode returns the draw mode.
	RenderingMode() RenderingMode

	// State returns the fixed-function render state the pipeline is built with.
	State() pipeline.State

	// SetUniform sets the value of a buffer uniform in the material group.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - v: the new value, its kind must match the declared type (colors fill vec4 slots)
	//
	// Returns:
	//   - error: a ShaderError if the name is unknown, not a material buffer uniform, or of a different kind
	SetUniform(name string, v uniform.Value) error

	// Uniform returns the current value of a buffer uniform in the material group.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - uniform.Value: the current value
	//   - error: a ShaderError if the name is unknown or not a material buffer uniform
	Uniform(name string) (uniform.Value, error)

	// SetTexture assigns a texture to a texture_2d uniform. A nil texture restores the default.
	//
	// Parameters:
	//   - name: the uniform name
	//   - t: the texture, or nil
	//
	// Returns:
	//   - error: a ShaderError if the name is unknown or not a material texture
	SetTexture(name string, t *texture.Texture) error

	// SetSampler assigns sampler parameters to a sampler uniform.
	//
	// Parameters:
	//   - name: the uniform name
	//   - params: the filter and address modes
	//
	// Returns:
	//   - error: a ShaderError if the name is unknown or not a material sampler
	SetSampler(name string, params common.SamplerStagingData) error

	// UniformAt returns the uniform backing a buffer slot, or nil if binding is not a buffer slot.
	UniformAt(binding uint32) uniform.Source

	// TextureAt returns the texture assigned to binding, or nil if none is assigned.
	TextureAt(binding uint32) *texture.Texture

	// SamplerAt returns the sampler parameters assigned to binding.
	SamplerAt(binding uint32) common.SamplerStagingData
}

var _ Material = &material{}

// NewMaterial preprocesses the sources through cache and creates a material for them.
//
// Parameters:
//   - cache: the shader info cache, panics if nil
//   - vertexSource: the annotated vertex shader source
//   - fragmentSource: the annotated fragment shader source
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the new material
//   - error: the preprocessing error, or a ShaderError from an initial value option
func NewMaterial(cache shader.Cache, vertexSource, fragmentSource string, options ...MaterialBuilderOption) (Material, error) {
	if cache == nil {
		panic("material: nil shader cache")
	}
	info, err := cache.Process(vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}

	m := &material{
		mu:              &sync.Mutex{},
		id:              materialCount.Add(1),
		info:            info,
		uniforms:        make(map[uint32]*uniform.Uniform),
		textures:        make(map[uint32]*texture.Texture),
		samplers:        make(map[uint32]common.SamplerStagingData),
		version:         1,
		active:          true,
		pendingUniforms: make(map[string]uniform.Value),
		pendingTextures: make(map[string]*texture.Texture),
		pendingSamplers: make(map[string]common.SamplerStagingData),
	}
	for _, opt := range options {
		opt(m)
	}
	m.state = pipeline.NewState(m.stateOptions...)

	for _, u := range info.Layout.UniformsInGroup(shader.GroupMaterial) {
		switch u.Type {
		case shader.UniformTypeSampler:
			m.samplers[*u.Binding] = common.DefaultSampler
		case shader.UniformTypeTexture2D:
		default:
			m.uniforms[*u.Binding] = uniform.New(zeroValue(u.Type))
		}
	}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.pendingUniforms)) {
		errs = append(errs, m.SetUniform(name, m.pendingUniforms[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(m.pendingTextures)) {
		errs = append(errs, m.SetTexture(name, m.pendingTextures[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(m.pendingSamplers)) {
		errs = append(errs, m.SetSampler(name, m.pendingSamplers[name]))
	}
	if err = errors.Join(errs...); err != nil {
		return nil, err
	}
	m.pendingUniforms, m.pendingTextures, m.pendingSamplers, m.stateOptions = nil, nil, nil, nil
	m.version = 1
	return m, nil
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Label() string {
	return m.label
}

func (m *material) ShaderInfo() *shader.ShaderInfo {
	return m.info
}

func (m *material) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *material) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *material) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
}

func (m *material) RenderOrder() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderOrder
}

func (m *material) SetRenderOrder(order int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderOrder = order
}

func (m *material) RenderingMode() RenderingMode {
	return m.mode
}

func (m *material) State() pipeline.State {
	return m.state
}

func (m *material) SetUniform(name string, v uniform.Value) error {
	decl, err := m.slot(name, "buffer uniform")
	if err != nil {
		return err
	}
	if !decl.Type.IsBuffer() {
		return shaderErrorf(decl.Marker, "uniform %q is a %s, not a buffer uniform", name, decl.Type.WGSL())
	}
	if !kindMatches(decl.Type, v.Kind()) {
		return shaderErrorf(decl.Marker, "uniform %q is %s but got a %s value", name, decl.Type.WGSL(), v.Kind())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uniforms[*decl.Binding].Set(v) {
		m.version++
	}
	return nil
}

func (m *material) Uniform(name string) (uniform.Value, error) {
	decl, err := m.slot(name, "buffer uniform")
	if err != nil {
		return uniform.Value{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uniforms[*decl.Binding]
	if !ok {
		return uniform.Value{}, shaderErrorf(decl.Marker, "uniform %q is a %s, not a buffer uniform", name, decl.Type.WGSL())
	}
	return u.Value(), nil
}

func (m *material) SetTexture(name string, t *texture.Texture) error {
	decl, err := m.slot(name, "texture")
	if err != nil {
		return err
	}
	if decl.Type != shader.UniformTypeTexture2D {
		return shaderErrorf(decl.Marker, "uniform %q is a %s, not a texture", name, decl.Type.WGSL())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.textures[*decl.Binding] == t {
		return nil
	}
	if t == nil {
		delete(m.textures, *decl.Binding)
	} else {
		m.textures[*decl.Binding] = t
	}
	m.version++
	return nil
}

func (m *material) SetSampler(name string, params common.SamplerStagingData) error {
	decl, err := m.slot(name, "sampler")
	if err != nil {
		return err
	}
	if decl.Type != shader.UniformTypeSampler {
		return shaderErrorf(decl.Marker, "uniform %q is a %s, not a sampler", name, decl.Type.WGSL())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.samplers[*decl.Binding] == params {
		return nil
	}
	m.samplers[*decl.Binding] = params
	m.version++
	return nil
}

func (m *material) UniformAt(binding uint32) uniform.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.uniforms[binding]; ok {
		return u
	}
	return nil
}

func (m *material) TextureAt(binding uint32) *texture.Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textures[binding]
}

func (m *material) SamplerAt(binding uint32) common.SamplerStagingData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.samplers[binding]; ok {
		return s
	}
	return common.DefaultSampler
}

// slot resolves name to a declaration in the material group.
func (m *material) slot(name, what string) (shader.UniformDeclaration, error) {
	decl, err := m.info.Layout.Uniform(name)
	if err != nil {
		return decl, err
	}
	if decl.Group != shader.GroupMaterial {
		return decl, shaderErrorf(decl.Marker, "uniform %q is in bind group %d, only material %ss can be set on a material", name, decl.Group, what)
	}
	return decl, nil
}

func shaderErrorf(text, format string, args ...any) error {
	return &shader.ShaderError{Message: fmt.Sprintf(format, args...), Text: text}
}

// kindMatches reports whether a value of kind k can fill a uniform of type t.
func kindMatches(t shader.UniformType, k uniform.Kind) bool {
	switch t {
	case shader.UniformTypeScalar:
		return k == uniform.KindNumber
	case shader.UniformTypeVec2:
		return k == uniform.KindVec2
	case shader.UniformTypeVec3:
		return k == uniform.KindVec3
	case shader.UniformTypeVec4:
		return k == uniform.KindVec4 || k == uniform.KindColor
	case shader.UniformTypeMat4:
		return k == uniform.KindMat4
	default:
		return false
	}
}

// zeroValue returns the initial value of a buffer slot of type t.
func zeroValue(t shader.UniformType) uniform.Value {
	switch t {
	case shader.UniformTypeVec2:
		return uniform.Vec2(0, 0)
	case shader.UniformTypeVec3:
		return uniform.Vec3(0, 0, 0)
	case shader.UniformTypeVec4:
		return uniform.Vec4(0, 0, 0, 0)
	case shader.UniformTypeMat4:
		return uniform.Mat4(mgl32.Ident4())
	default:
		return uniform.Number(0)
	}
}
