package stage

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
)

type sceneStage struct {
	label   string
	device  gpu.Device
	manager pipeline.Manager
	output  gpu.Texture
	depth   *depthTarget
}

var _ Stage = &sceneStage{}

// NewSceneStage creates the stage that draws the scene buckets. Panics if device or manager is nil.
//
// Parameters:
//   - device: the device the depth texture is created on
//   - manager: the pipeline manager resolving materials
//   - options: variadic list of StageBuilderOption functions
//
// Returns:
//   - Stage: the scene stage
func NewSceneStage(device gpu.Device, manager pipeline.Manager, options ...StageBuilderOption) Stage {
	if device == nil || manager == nil {
		panic("stage: nil collaborator")
	}
	cfg := newStageConfig("scene", options)
	return &sceneStage{
		label:   cfg.label,
		device:  device,
		manager: manager,
		depth:   &depthTarget{device: device, label: cfg.label + "_depth", format: manager.DepthFormat()},
	}
}

func (s *sceneStage) Label() string {
	return s.label
}

func (s *sceneStage) Output() gpu.Texture {
	return s.output
}

func (s *sceneStage) SetOutput(target gpu.Texture) {
	s.output = target
}

func (s *sceneStage) Execute(frame Frame) error {
	if s.output == nil {
		return ErrNoOutput
	}
	depth, err := s.depth.ensure(s.output.Width(), s.output.Height())
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

	if err = s.drawBuckets(pass, frame); err != nil {
		return errors.Join(err, pass.End())
	}
	return pass.End()
}

func (s *sceneStage) drawBuckets(pass gpu.RenderPass, frame Frame) error {
	format := s.output.Format()
	var current gpu.RenderPipeline
	for _, bucket := range frame.Buckets {
		for _, d := range bucket.Draws {
			binding, err := s.manager.Prepare(d.Material, format, frame.Globals)
			if err != nil {
				return err
			}
			// pipelines are per material, so an unchanged pipeline also means unchanged shared groups
			if binding.Pipeline != current {
				bindShared(pass, binding)
				current = binding.Pipeline
			}

			objectGroup, err := s.manager.PrepareObject(d.Material, d.Object, d.Mesh, format)
			if err != nil {
				return err
			}
			if objectGroup != nil {
				pass.SetBindGroup(uint32(shader.GroupObject), objectGroup)
			}

			if err = s.draw(pass, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// draw binds the mesh buffers the material needs and issues the draw call for its rendering mode.
func (s *sceneStage) draw(pass gpu.RenderPass, d Draw) error {
	mode := d.Material.RenderingMode()
	if mode.VertexPulling() {
		pass.Draw(mode.DrawCount(d.Mesh.IndexCount(), d.Mesh.VertexCount()), 1)
		return nil
	}

	buffers := s.manager.Buffers()
	for _, attr := range d.Material.ShaderInfo().Layout.Attributes {
		block, err := buffers.VertexBuffer(d.Mesh, attr.Name, attr.Type.Components())
		if err != nil {
			return err
		}
		pass.SetVertexBuffer(*attr.Location, block.Handle)
	}

	if d.Mesh.IndexCount() == 0 {
		pass.Draw(uint32(d.Mesh.VertexCount()), 1)
		return nil
	}
	index, err := buffers.IndexBuffer(d.Mesh)
	if err != nil {
		return err
	}
	pass.SetIndexBuffer(index.Handle)
	pass.DrawIndexed(mode.DrawCount(d.Mesh.IndexCount(), d.Mesh.VertexCount()), 1)
	return nil
}

func (s *sceneStage) Release() {
	s.depth.release()
	s.output = nil
}
