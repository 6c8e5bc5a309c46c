package scene

import (
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeBuilderOption is a functional option for configuring a Node.
// Use the With* functions to create options.
type NodeBuilderOption func(n *node)

// WithName sets the node's name.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithMesh sets the node's mesh.
func WithMesh(m model.Mesh) NodeBuilderOption {
	return func(n *node) {
		n.mesh = m
	}
}

// WithMaterial sets the node's material.
func WithMaterial(m material.Material) NodeBuilderOption {
	return func(n *node) {
		n.mat = m
	}
}

// WithPosition sets the node's local translation.
func WithPosition(p mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.position = p
	}
}

// WithRotation sets the node's local rotation.
func WithRotation(q mgl32.Quat) NodeBuilderOption {
	return func(n *node) {
		n.rotation = q.Normalize()
	}
}

// WithScale sets the node's local scale.
func WithScale(s mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.scale = s
	}
}

// WithActive sets whether the node starts active. Nodes are active by default.
func WithActive(active bool) NodeBuilderOption {
	return func(n *node) {
		n.active = active
	}
}

// WithChildren attaches children to the node.
//
// Parameters:
//   - children: the nodes to attach, in draw order
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithChildren(children ...Node) NodeBuilderOption {
	return func(n *node) {
		for _, c := range children {
			n.AddChild(c)
		}
	}
}
