package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
)

// Shader file names looked up in the configured shader directory.
const (
	meshVertexFile   = "mesh.vert.wgsl"
	meshFragmentFile = "mesh.frag.wgsl"
	postFragmentFile = "post.frag.wgsl"
)

const meshVertexSource = `
struct VertexInput {
    ATTRIBUTE(position, vec3f)
    ATTRIBUTE(normal, vec3f)
    ATTRIBUTE(uv, vec2f)
};

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) normal: vec3f,
    @location(1) uv: vec2f,
};

UNIFORM(globals, GlobalValues)
OBJECT_UNIFORM(modelMatrix, mat4x4f)
OBJECT_UNIFORM(normalMatrix, mat4x4f)

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = globals.projectionMatrix * globals.viewMatrix * modelMatrix * vec4f(in.position, 1.0);
    out.normal = (normalMatrix * vec4f(in.normal, 0.0)).xyz;
    out.uv = in.uv;
    return out;
}
`

const meshFragmentSource = `
UNIFORM(tint, vec4f)
UNIFORM(lightDir, vec3f)
UNIFORM(lightColor, vec4f)
UNIFORM(albedo, texture_2d<f32>)
UNIFORM(albedoSampler, sampler)

@fragment
fn fs_main(@location(0) normal: vec3f, @location(1) uv: vec2f) -> @location(0) vec4f {
    let diffuse = max(dot(normalize(normal), -lightDir), 0.0);
    let base = textureSample(albedo, albedoSampler, uv) * tint;
    return vec4f(base.rgb * (lightColor.rgb * diffuse + vec3f(0.15)), base.a);
}
`

const postFragmentSource = `
UNIFORM(inputTexture, texture_2d<f32>)
UNIFORM(inputSampler, sampler)
UNIFORM(strength, f32)

@fragment
fn fs_main(@location(0) uv: vec2f) -> @location(0) vec4f {
    let c = textureSample(inputTexture, inputSampler, uv);
    let d = distance(uv, vec2f(0.5, 0.5));
    return vec4f(c.rgb * (1.0 - strength * d * d), c.a);
}
`

// shaderSet is the WGSL the demo builds its materials from.
type shaderSet struct {
	meshVertex, meshFragment, postFragment string
}

// postVertex is the vertex stage of every post material.
var postVertex = "INCLUDE(" + shader.FullscreenVertexChunk + ")"

// loadShaders reads the demo shaders from dir. Files missing from dir, or an empty dir, fall back to
// the built-in sources.
func loadShaders(dir string) (shaderSet, error) {
	set := shaderSet{
		meshVertex:   meshVertexSource,
		meshFragment: meshFragmentSource,
		postFragment: postFragmentSource,
	}
	if dir == "" {
		return set, nil
	}
	for name, dst := range map[string]*string{
		meshVertexFile:   &set.meshVertex,
		meshFragmentFile: &set.meshFragment,
		postFragmentFile: &set.postFragment,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return shaderSet{}, fmt.Errorf("read shader %s: %w", name, err)
		}
		*dst = string(data)
	}
	return set, nil
}

// shaderPaths returns the override files of the demo shaders in dir, grouped by material.
func shaderPaths(dir string) map[string][]string {
	return map[string][]string{
		"mesh": {filepath.Join(dir, meshVertexFile), filepath.Join(dir, meshFragmentFile)},
		"post": {filepath.Join(dir, postFragmentFile)},
	}
}
