package stage

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
)

// Uniform names a post-processing material declares to receive the previous stage output.
const (
	InputTextureUniform = "inputTexture"
	InputSamplerUniform = "inputSampler"
)

// fullscreenVertices is the vertex count of the fullscreen triangle drawn by the fullscreen_vertex chunk.
const fullscreenVertices = 3

type postStage struct {
	label   string
	device  gpu.Device
	manager pipeline.Manager
	mat     material.Material
	input   *texture.Texture
	output  gpu.Texture
	depth   *depthTarget
}

// PostStage is a post-processing stage. It draws one fullscreen triangle with its material, which
// samples the previous stage output through its inputTexture uniform.
type PostStage interface {
	Stage

	// Material returns the post-processing material.
	Material() material.Material

	// SetInput sets the texture the material samples as inputTexture.
	//
	// Parameters:
	//   - input: the previous stage output
	SetInput(input gpu.Texture)
}

var _ PostStage = &postStage{}

// NewPostStage creates a post-processing stage for mat. Panics if device, manager or mat is nil.
//
// Parameters:
//   - device: the device the depth texture is created on
//   - manager: the pipeline manager resolving mat
//   - mat: the post-processing material
//   - options: variadic list of StageBuilderOption functions
//
// Returns:
//   - PostStage: the stage
//   - error: a ShaderError if mat declares no inputTexture uniform or declares object uniforms
func NewPostStage(device gpu.Device, manager pipeline.Manager, mat material.Material, options ...StageBuilderOption) (PostStage, error) {
	if device == nil || manager == nil || mat == nil {
		panic("stage: nil collaborator")
	}
	cfg := newStageConfig(fmt.Sprintf("post_%d", mat.ID()), options)

	if mat.ShaderInfo().Layout.GroupCount() > int(shader.GroupObject) {
		return nil, &shader.ShaderError{Message: fmt.Sprintf("post-processing material %q declares object uniforms", mat.Label())}
	}
	input := texture.FromTarget(cfg.label+"_input", nil)
	if err := mat.SetTexture(InputTextureUniform, input); err != nil {
		return nil, err
	}

	return &postStage{
		label:   cfg.label,
		device:  device,
		manager: manager,
		mat:     mat,
		input:   input,
		depth:   &depthTarget{device: device, label: cfg.label + "_depth", format: manager.DepthFormat()},
	}, nil
}

func (s *postStage) Label() string {
	return s.label
}

func (s *postStage) Material() material.Material {
	return s.mat
}

func (s *postStage) Output() gpu.Texture {
	return s.output
}

func (s *postStage) SetOutput(target gpu.Texture) {
	s.output = target
}

func (s *postStage) SetInput(input gpu.Texture) {
	s.input.SetTarget(input)
}

func (s *postStage) Execute(frame Frame) error {
	if s.output == nil {
		return ErrNoOutput
	}
	if s.input.Target() == nil {
		return fmt.Errorf("stage: %s has no input", s.label)
	}
	depth, err := s.depth.ensure(s.output.Width(), s.output.Height())
	if err != nil {
		return err
	}

	binding, err := s.manager.Prepare(s.mat, s.output.Format(), frame.Globals)
	if err != nil {
		return err
	}

	pass, err := frame.Encoder.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:      s.label,
		Color:      s.output,
		Depth:      depth,
		ClearColor: frame.ClearColor,
	})
	if err != nil {
		return fmt.Errorf("stage: begin %s: %w", s.label, err)
	}
	bindShared(pass, binding)
	pass.Draw(fullscreenVertices, 1)
	return pass.End()
}

func (s *postStage) Release() {
	s.depth.release()
	s.manager.ReleaseMaterial(s.mat.ID())
	s.output = nil
}
