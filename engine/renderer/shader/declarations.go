package shader

import (
	"fmt"
	"regexp"

	"github.com/cogentcore/webgpu/wgpu"
)

// AttributeType is the closed set of vertex attribute types an ATTRIBUTE marker may declare.
type AttributeType int

const (
	// AttributeTypeVec2 is a two component float attribute (vec2f).
	AttributeTypeVec2 AttributeType = iota

	// AttributeTypeVec3 is a three component float attribute (vec3f).
	AttributeTypeVec3

	// AttributeTypeVec4 is a four component float attribute (vec4f).
	AttributeTypeVec4
)

// UniformType is the closed set of uniform types a UNIFORM or OBJECT_UNIFORM marker may declare.
type UniformType int

const (
	// UniformTypeTexture2D is a sampled 2D float texture (texture_2d<f32>).
	UniformTypeTexture2D UniformType = iota

	// UniformTypeSampler is a filtering sampler (sampler).
	UniformTypeSampler

	// UniformTypeScalar is a single float (f32).
	UniformTypeScalar

	// UniformTypeVec2 is a two component float vector (vec2f).
	UniformTypeVec2

	// UniformTypeVec3 is a three component float vector (vec3f).
	UniformTypeVec3

	// UniformTypeVec4 is a four component float vector (vec4f).
	UniformTypeVec4

	// UniformTypeMat4 is a 4x4 float matrix (mat4x4f).
	UniformTypeMat4

	// UniformTypeGlobalValues is the engine's per-frame GlobalValues struct.
	UniformTypeGlobalValues

	// UniformTypeVertexData is a read-only storage view of the drawn mesh's vertex slot named
	// like the uniform (array<f32>). Object group only.
	UniformTypeVertexData

	// UniformTypeIndexData is a read-only storage view of the drawn mesh's index buffer
	// (array<u32>). Object group only.
	UniformTypeIndexData
)

// BindGroupIndex is the bind group a uniform is placed in. The three groups are a wire contract
// between the preprocessor and every pipeline layout the engine builds.
type BindGroupIndex uint32

const (
	// GroupGlobal holds per-frame values shared by every draw.
	GroupGlobal BindGroupIndex = 0

	// GroupMaterial holds per-material uniforms, textures and samplers.
	GroupMaterial BindGroupIndex = 1

	// GroupObject holds per-object values such as the model matrix.
	GroupObject BindGroupIndex = 2
)

// GlobalValuesTypeName is the reserved uniform type token for the per-frame globals struct.
const GlobalValuesTypeName = "GlobalValues"

// GlobalValuesSize is the byte size of the GlobalValues struct under WGSL uniform layout rules.
const GlobalValuesSize = 144

// GlobalValuesSource is the WGSL struct injected once into every stage that declares a
// GlobalValues uniform.
const GlobalValuesSource = `struct GlobalValues {
    time: f32,
    deltaTime: f32,
    screenSize: vec2f,
    viewMatrix: mat4x4f,
    projectionMatrix: mat4x4f,
};`

const markerObjectUniform = "OBJECT_UNIFORM"

var (
	// attributeMarkerRegex matches ATTRIBUTE(name, type) and captures the name and type token
	attributeMarkerRegex = regexp.MustCompile(`\bATTRIBUTE\(\s*(\w+)\s*,\s*([^)]*?)\s*\)`)

	// uniformMarkerRegex matches UNIFORM(name, type) and OBJECT_UNIFORM(name, type) and captures
	// the keyword, the name and the type token
	uniformMarkerRegex = regexp.MustCompile(`\b(OBJECT_UNIFORM|UNIFORM)\(\s*(\w+)\s*,\s*([^)]*?)\s*\)`)
)

var attributeTypeTokens = map[string]AttributeType{
	"vec2f": AttributeTypeVec2,
	"vec3f": AttributeTypeVec3,
	"vec4f": AttributeTypeVec4,
}

var uniformTypeTokens = map[string]UniformType{
	"texture_2d<f32>":    UniformTypeTexture2D,
	"sampler":            UniformTypeSampler,
	"f32":                UniformTypeScalar,
	"vec2f":              UniformTypeVec2,
	"vec3f":              UniformTypeVec3,
	"vec4f":              UniformTypeVec4,
	"mat4x4f":            UniformTypeMat4,
	GlobalValuesTypeName: UniformTypeGlobalValues,
	"array<f32>":         UniformTypeVertexData,
	"array<u32>":         UniformTypeIndexData,
}

// AttributeDeclaration is one ATTRIBUTE marker found in a vertex shader.
type AttributeDeclaration struct {
	// Name is the attribute name, also the mesh vertex buffer slot it reads from.
	Name string

	// Type is the declared attribute type.
	Type AttributeType

	// Marker is the exact marker text as it appears in the source.
	Marker string

	// Location is assigned by AssignAttributeLocations; nil until then.
	Location *uint32
}

// UniformDeclaration is one UNIFORM or OBJECT_UNIFORM marker found in a shader stage.
type UniformDeclaration struct {
	// Name is the uniform variable name.
	Name string

	// Type is the declared uniform type.
	Type UniformType

	// Group is the bind group the uniform lives in, derived from the marker keyword and type.
	Group BindGroupIndex

	// Qualifier is the WGSL variable qualifier: "var<uniform>" for buffers, "var<storage, read>"
	// for mesh data and "var" for handles.
	Qualifier string

	// Marker is the exact marker text as it appears in the source.
	Marker string

	// Binding is assigned by AssignUniformBindings; nil until then.
	Binding *uint32

	// InVertex and InFragment record which stages reference the uniform.
	InVertex   bool
	InFragment bool
}

// WGSL returns the WGSL type name for the attribute type.
func (t AttributeType) WGSL() string {
	switch t {
	case AttributeTypeVec2:
		return "vec2f"
	case AttributeTypeVec3:
		return "vec3f"
	default:
		return "vec4f"
	}
}

// Components returns the number of float components in the attribute type.
func (t AttributeType) Components() int {
	switch t {
	case AttributeTypeVec2:
		return 2
	case AttributeTypeVec3:
		return 3
	default:
		return 4
	}
}

// VertexFormat returns the wgpu vertex format matching the attribute type.
func (t AttributeType) VertexFormat() wgpu.VertexFormat {
	return wgslVertexFormatMap[t.WGSL()].format
}

// Size returns the byte size of a single attribute value.
func (t AttributeType) Size() uint64 {
	return wgslVertexFormatMap[t.WGSL()].size
}

// WGSL returns the WGSL type name for the uniform type.
func (t UniformType) WGSL() string {
	for token, ut := range uniformTypeTokens {
		if ut == t {
			return token
		}
	}
	return ""
}

// IsBuffer reports whether the uniform is backed by a uniform buffer rather than a texture or
// sampler handle or mesh data.
func (t UniformType) IsBuffer() bool {
	return t != UniformTypeTexture2D && t != UniformTypeSampler && !t.IsMeshData()
}

// IsMeshData reports whether the uniform is a read-only storage binding filled from the drawn mesh.
func (t UniformType) IsMeshData() bool {
	return t == UniformTypeVertexData || t == UniformTypeIndexData
}

// Size returns the byte size of a buffer-backed uniform, or 0 for texture and sampler handles.
func (t UniformType) Size() uint64 {
	switch t {
	case UniformTypeScalar:
		return 4
	case UniformTypeVec2:
		return 8
	case UniformTypeVec3:
		return 12
	case UniformTypeVec4:
		return 16
	case UniformTypeMat4:
		return 64
	case UniformTypeGlobalValues:
		return GlobalValuesSize
	default:
		return 0
	}
}

// Bound reports whether the declaration has been assigned a location.
func (a AttributeDeclaration) Bound() bool {
	return a.Location != nil
}

// Declaration serializes the attribute into the WGSL struct member that replaces its marker.
//
// Returns:
//   - string: the declaration, e.g. "@location(0) position: vec3f,"
//   - error: a ShaderError if no location has been assigned yet
func (a AttributeDeclaration) Declaration() (string, error) {
	if a.Location == nil {
		return "", shaderErrorf(a.Marker, "attribute %q has no location assigned", a.Name)
	}
	return fmt.Sprintf("@location(%d) %s: %s,", *a.Location, a.Name, a.Type.WGSL()), nil
}

// Bound reports whether the declaration has been assigned a binding.
func (u UniformDeclaration) Bound() bool {
	return u.Binding != nil
}

// Declaration serializes the uniform into the WGSL module-scope variable that replaces its marker.
//
// Returns:
//   - string: the declaration, e.g. "@group(1) @binding(0) var<uniform> color: vec4f;"
//   - error: a ShaderError if no binding has been assigned yet
func (u UniformDeclaration) Declaration() (string, error) {
	if u.Binding == nil {
		return "", shaderErrorf(u.Marker, "uniform %q has no binding assigned", u.Name)
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", u.Group, *u.Binding, u.Qualifier, u.Name, u.Type.WGSL()), nil
}

// ParseAttributes extracts every ATTRIBUTE marker from source in encounter order.
// Locations are left unassigned.
//
// Parameters:
//   - source: the shader source to scan
//
// Returns:
//   - []AttributeDeclaration: the parsed declarations
//   - error: a ShaderError naming the type and marker when a type token is not recognized
func ParseAttributes(source string) ([]AttributeDeclaration, error) {
	matches := attributeMarkerRegex.FindAllStringSubmatch(source, -1)
	attrs := make([]AttributeDeclaration, 0, len(matches))
	for _, m := range matches {
		t, ok := attributeTypeTokens[m[2]]
		if !ok {
			return nil, shaderErrorf(m[0], "unknown attribute type %q", m[2])
		}
		attrs = append(attrs, AttributeDeclaration{
			Name:   m[1],
			Type:   t,
			Marker: m[0],
		})
	}
	return attrs, nil
}

// ParseUniforms extracts every UNIFORM and OBJECT_UNIFORM marker from source in encounter order.
// GlobalValues uniforms are placed in GroupGlobal, OBJECT_UNIFORM markers in GroupObject and
// everything else in GroupMaterial. Mesh data types are only accepted as OBJECT_UNIFORM.
// Bindings are left unassigned.
//
// Parameters:
//   - source: the shader source to scan
//
// Returns:
//   - []UniformDeclaration: the parsed declarations
//   - error: a ShaderError naming the type and marker when a type token is not recognized,
//     or when a type is declared in a group it cannot live in
func ParseUniforms(source string) ([]UniformDeclaration, error) {
	matches := uniformMarkerRegex.FindAllStringSubmatch(source, -1)
	uniforms := make([]UniformDeclaration, 0, len(matches))
	for _, m := range matches {
		t, ok := uniformTypeTokens[m[3]]
		if !ok {
			return nil, shaderErrorf(m[0], "unknown uniform type %q", m[3])
		}

		group := GroupMaterial
		switch {
		case m[1] == markerObjectUniform:
			if !t.IsBuffer() && !t.IsMeshData() || t == UniformTypeGlobalValues {
				return nil, shaderErrorf(m[0], "type %q cannot be an object uniform", m[3])
			}
			group = GroupObject
		case t.IsMeshData():
			return nil, shaderErrorf(m[0], "type %q is mesh data and must be an OBJECT_UNIFORM", m[3])
		case t == UniformTypeGlobalValues:
			group = GroupGlobal
		}

		qualifier := "var"
		switch {
		case t.IsBuffer():
			qualifier = "var<uniform>"
		case t.IsMeshData():
			qualifier = "var<storage, read>"
		}

		uniforms = append(uniforms, UniformDeclaration{
			Name:      m[2],
			Type:      t,
			Group:     group,
			Qualifier: qualifier,
			Marker:    m[0],
		})
	}
	return uniforms, nil
}
