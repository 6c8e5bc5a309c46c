package shader

import (
	"regexp"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Stage identifies the shader stage a source belongs to.
type Stage int

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// vertexFormatInfo holds the wgpu vertex format and its byte size for stride calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslVertexFormatMap maps the WGSL attribute type names the preprocessor accepts to their wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"vec2f": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f": {wgpu.VertexFormatFloat32x4, 16},
}

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
)

// parseEntryPoint finds the name of the first entry point function for the given stage.
//
// Parameters:
//   - source: the WGSL source code
//   - stage: the stage whose entry point attribute to look for
//
// Returns:
//   - string: the entry point name, or an empty string if the source has none
func parseEntryPoint(source string, stage Stage) string {
	cleaned := stripComments(source)

	re := vertexEntryRegex
	if stage == StageFragment {
		re = fragmentEntryRegex
	}
	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// classifyResource creates a wgpu.BindGroupLayoutEntry for a uniform of the given type.
//
// Parameters:
//   - binding: the binding index within the group
//   - visibility: the shader stages that reference the uniform
//   - t: the uniform type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a populated layout entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, t UniformType) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch t {
	case UniformTypeSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case UniformTypeTexture2D:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case UniformTypeVertexData, UniformTypeIndexData:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = 4
	default:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = t.Size()
	}
	return entry
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// WGSL block comments may nest.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
