// pre_processor.go implements the WGSL layout preprocessor. It expands INCLUDE chunks, parses
// ATTRIBUTE, UNIFORM and OBJECT_UNIFORM markers from a vertex/fragment pair, assigns attribute
// locations and bind group bindings, and replaces every marker with the WGSL declaration it
// stands for.
//
// Bind groups are fixed: 0 holds per-frame globals, 1 per-material uniforms and 2 per-object
// values. Pipelines built from the result rely on this layout.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// maxIncludeDepth bounds nested INCLUDE expansion.
const maxIncludeDepth = 16

// FullscreenVertexChunk is the name of the built-in chunk holding a full screen triangle vertex
// shader. It outputs clip space position and a uv at location 0, and is drawn with three vertices.
const FullscreenVertexChunk = "fullscreen_vertex"

const fullscreenVertexSource = `struct FullscreenOutput {
    @builtin(position) position: vec4f,
    @location(0) uv: vec2f,
};

@vertex
fn vs_fullscreen(@builtin(vertex_index) index: u32) -> FullscreenOutput {
    var corners = array<vec2f, 3>(vec2f(-1.0, -3.0), vec2f(3.0, 1.0), vec2f(-1.0, 1.0));
    let p = corners[index];
    var out: FullscreenOutput;
    out.position = vec4f(p, 0.0, 1.0);
    out.uv = vec2f(p.x * 0.5 + 0.5, 0.5 - p.y * 0.5);
    return out;
}`

// includeMarkerRegex matches INCLUDE(chunk) and captures the chunk name
var includeMarkerRegex = regexp.MustCompile(`\bINCLUDE\(\s*(\w+)\s*\)`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	mu *sync.Mutex

	// chunks maps chunk names to the WGSL source an INCLUDE marker expands to.
	chunks map[string]string
}

// PreProcessor expands annotated vertex/fragment WGSL sources into plain WGSL plus the layout the
// engine needs to build pipelines and bind groups for them. It does no caching, see Cache.
type PreProcessor interface {
	// RegisterChunk adds a named WGSL chunk that INCLUDE(name) markers expand to.
	// Chunks may include other chunks.
	//
	// Parameters:
	//   - name: the chunk name used inside INCLUDE(...)
	//   - source: the WGSL source of the chunk
	//
	// Returns:
	//   - error: an error if a different chunk is already registered under name
	RegisterChunk(name, source string) error

	// Chunk retrieves a registered chunk by name.
	//
	// Parameters:
	//   - name: the chunk name
	//
	// Returns:
	//   - string: the chunk source
	//   - bool: true if the chunk exists
	Chunk(name string) (string, bool)

	// Process preprocesses a vertex and fragment source pair. Attribute markers are only read from
	// the vertex source. Uniforms declared in both stages share one binding.
	//
	// Parameters:
	//   - vertexSource: the annotated vertex shader source
	//   - fragmentSource: the annotated fragment shader source
	//
	// Returns:
	//   - *ShaderInfo: the expanded sources, entry points and merged layout
	//   - error: a ShaderError describing the first problem found in the sources
	Process(vertexSource, fragmentSource string) (*ShaderInfo, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the built-in chunks registered.
//
// Returns:
//   - PreProcessor: a ready-to-use preprocessor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		mu: &sync.Mutex{},
		chunks: map[string]string{
			FullscreenVertexChunk: fullscreenVertexSource,
		},
	}
}

func (p *preProcessor) RegisterChunk(name, source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.chunks[name]; ok && existing != source {
		return fmt.Errorf("shader: chunk %q is already registered", name)
	}
	p.chunks[name] = source
	return nil
}

func (p *preProcessor) Chunk(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, ok := p.chunks[name]
	return src, ok
}

func (p *preProcessor) Process(vertexSource, fragmentSource string) (*ShaderInfo, error) {
	vs, err := p.expandIncludes(vertexSource, nil)
	if err != nil {
		return nil, err
	}
	fs, err := p.expandIncludes(fragmentSource, nil)
	if err != nil {
		return nil, err
	}

	attrs, err := ParseAttributes(vs)
	if err != nil {
		return nil, err
	}
	if err = AssignAttributeLocations(attrs); err != nil {
		return nil, err
	}
	if stray := attributeMarkerRegex.FindString(fs); stray != "" {
		return nil, shaderErrorf(stray, "attribute markers are only valid in the vertex shader")
	}

	vsUniforms, err := ParseUniforms(vs)
	if err != nil {
		return nil, err
	}
	fsUniforms, err := ParseUniforms(fs)
	if err != nil {
		return nil, err
	}
	if err = AssignUniformBindings(vsUniforms, fsUniforms); err != nil {
		return nil, err
	}

	for _, a := range attrs {
		decl, declErr := a.Declaration()
		if declErr != nil {
			return nil, declErr
		}
		vs = strings.Replace(vs, a.Marker, decl, 1)
	}
	if vs, err = expandUniforms(vs, vsUniforms); err != nil {
		return nil, err
	}
	if fs, err = expandUniforms(fs, fsUniforms); err != nil {
		return nil, err
	}

	info := &ShaderInfo{
		VertexSource:       vs,
		FragmentSource:     fs,
		VertexEntryPoint:   parseEntryPoint(vs, StageVertex),
		FragmentEntryPoint: parseEntryPoint(fs, StageFragment),
		Layout: ShaderLayout{
			Attributes: attrs,
			Uniforms:   mergeUniforms(vsUniforms, fsUniforms),
		},
	}
	if info.VertexEntryPoint == "" {
		return nil, shaderErrorf("", "vertex shader has no @vertex entry point")
	}
	if info.FragmentEntryPoint == "" {
		return nil, shaderErrorf("", "fragment shader has no @fragment entry point")
	}
	return info, nil
}

// expandIncludes replaces every INCLUDE marker with its chunk, recursively. stack holds the chunks
// currently being expanded so that cycles are reported instead of recursing forever.
func (p *preProcessor) expandIncludes(source string, stack []string) (string, error) {
	if len(stack) > maxIncludeDepth {
		return "", shaderErrorf("", "INCLUDE nesting deeper than %d", maxIncludeDepth)
	}

	var expandErr error
	out := includeMarkerRegex.ReplaceAllStringFunc(source, func(marker string) string {
		if expandErr != nil {
			return marker
		}
		name := includeMarkerRegex.FindStringSubmatch(marker)[1]
		if slices.Contains(stack, name) {
			expandErr = shaderErrorf(marker, "include cycle through chunk %q", name)
			return marker
		}
		chunk, ok := p.Chunk(name)
		if !ok {
			expandErr = shaderErrorf(marker, "unknown chunk %q", name)
			return marker
		}
		expanded, err := p.expandIncludes(chunk, append(stack, name))
		if err != nil {
			expandErr = err
			return marker
		}
		return expanded
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// expandUniforms replaces each uniform marker with its declaration and injects the GlobalValues
// struct once if the stage declares a GlobalValues uniform.
func expandUniforms(source string, uniforms []UniformDeclaration) (string, error) {
	needsGlobals := false
	for _, u := range uniforms {
		decl, err := u.Declaration()
		if err != nil {
			return "", err
		}
		source = strings.Replace(source, u.Marker, decl, 1)
		if u.Type == UniformTypeGlobalValues {
			needsGlobals = true
		}
	}
	if needsGlobals && !strings.Contains(source, "struct "+GlobalValuesTypeName) {
		source = GlobalValuesSource + "\n\n" + source
	}
	return source, nil
}
