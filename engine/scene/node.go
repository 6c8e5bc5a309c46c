package scene

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// Built-in object uniforms every node provides. Shaders read them through OBJECT_UNIFORM markers.
const (
	// ModelMatrixUniform is the node's world matrix.
	ModelMatrixUniform = "modelMatrix"

	// NormalMatrixUniform is the inverse transpose of the world matrix.
	NormalMatrixUniform = "normalMatrix"
)

// nodeCount is the id source for nodes. Ids start at 1.
var nodeCount atomic.Uint64

type node struct {
	mu *sync.Mutex

	id     uint64
	name   string
	active bool

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	world    mgl32.Mat4

	parent   *node
	children []*node

	mesh     model.Mesh
	mat      material.Material
	uniforms map[string]*uniform.Uniform
}

// Node is one element of the scene graph: a local transform, an optional mesh/material pair and
// a set of per-object uniforms. Nodes form a tree; a node's world matrix is its parent's world
// matrix times its local matrix.
type Node interface {
	// ID returns the node identity. Ids are unique and increase monotonically.
	ID() uint64

	// Name returns the node's name.
	Name() string

	// Active returns whether the node and its subtree are rendered.
	Active() bool

	// SetActive sets whether the node and its subtree are rendered.
	SetActive(active bool)

	// Position returns the local translation.
	Position() mgl32.Vec3

	// SetPosition sets the local translation.
	SetPosition(p mgl32.Vec3)

	// Rotation returns the local rotation.
	Rotation() mgl32.Quat

	// SetRotation sets the local rotation.
	SetRotation(q mgl32.Quat)

	// Scale returns the local scale.
	Scale() mgl32.Vec3

	// SetScale sets the local scale.
	SetScale(s mgl32.Vec3)

	// LocalMatrix composes translation * rotation * scale.
	LocalMatrix() mgl32.Mat4

	// WorldMatrix returns the world matrix computed by the last UpdateWorldMatrix or Traverse call.
	WorldMatrix() mgl32.Mat4

	// UpdateWorldMatrix recomputes the world matrix from the parent chain and refreshes the
	// built-in object uniforms.
	//
	// Returns:
	//   - mgl32.Mat4: the new world matrix
	UpdateWorldMatrix() mgl32.Mat4

	// Bounds returns the mesh bounds transformed by the world matrix, or an empty box without a mesh.
	Bounds() common.AABB

	// Parent returns the parent node, or nil for a root.
	Parent() Node

	// Children returns a copy of the child list.
	Children() []Node

	// AddChild attaches child to this node, detaching it from its previous parent first.
	// Panics if child is this node or one of its ancestors.
	//
	// Parameters:
	//   - child: the node to attach
	AddChild(child Node)

	// RemoveChild detaches child if it is a direct child of this node.
	//
	// Parameters:
	//   - child: the node to detach
	//
	// Returns:
	//   - bool: true if child was detached
	RemoveChild(child Node) bool

	// Mesh returns the node's mesh, or nil.
	Mesh() model.Mesh

	// SetMesh sets the node's mesh.
	SetMesh(m model.Mesh)

	// Material returns the node's material, or nil.
	Material() material.Material

	// SetMaterial sets the node's material.
	SetMaterial(m material.Material)

	// SetObjectUniform sets a per-object value read by OBJECT_UNIFORM declarations.
	// The built-in uniforms are overwritten on the next world matrix update.
	//
	// Parameters:
	//   - name: the uniform name
	//   - v: the value
	SetObjectUniform(name string, v uniform.Value)

	// ObjectUniform returns the per-object uniform with the given name, or nil if the node has none.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - uniform.Source: the uniform, or nil
	ObjectUniform(name string) uniform.Source

	// Traverse visits this node and its descendants parent first, updating each world matrix
	// before the visit. Inactive nodes and their subtrees are skipped.
	//
	// Parameters:
	//   - visit: called once per active node
	Traverse(visit func(n Node))
}

var _ Node = &node{}

// NewNode creates a node with an identity transform.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the new node
func NewNode(options ...NodeBuilderOption) Node {
	n := &node{
		mu:       &sync.Mutex{},
		id:       nodeCount.Add(1),
		active:   true,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		world:    mgl32.Ident4(),
		uniforms: map[string]*uniform.Uniform{
			ModelMatrixUniform:  uniform.New(uniform.Mat4(mgl32.Ident4())),
			NormalMatrixUniform: uniform.New(uniform.Mat4(mgl32.Ident4())),
		},
	}
	for _, option := range options {
		option(n)
	}
	n.UpdateWorldMatrix()
	return n
}

func (n *node) ID() uint64 {
	return n.id
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

func (n *node) SetActive(active bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = active
}

func (n *node) Position() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

func (n *node) SetPosition(p mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = p
}

func (n *node) Rotation() mgl32.Quat {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rotation
}

func (n *node) SetRotation(q mgl32.Quat) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotation = q.Normalize()
}

func (n *node) Scale() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scale
}

func (n *node) SetScale(s mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scale = s
}

func (n *node) LocalMatrix() mgl32.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.localMatrix()
}

func (n *node) WorldMatrix() mgl32.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.world
}

func (n *node) UpdateWorldMatrix() mgl32.Mat4 {
	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()

	parentWorld := mgl32.Ident4()
	if parent != nil {
		parentWorld = parent.UpdateWorldMatrix()
	}
	return n.updateWorld(parentWorld)
}

func (n *node) Bounds() common.AABB {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mesh == nil {
		return common.AABB{Min: [3]float32{1, 1, 1}, Max: [3]float32{-1, -1, -1}}
	}
	return common.TransformAABB(n.mesh.Bounds(), n.world)
}

func (n *node) Parent() Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) AddChild(child Node) {
	c := child.(*node)
	for p := n; p != nil; p = p.getParent() {
		if p == c {
			panic("scene: node cannot be its own descendant")
		}
	}
	if old := c.getParent(); old != nil {
		old.RemoveChild(c)
	}

	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()

	c.mu.Lock()
	c.parent = n
	c.mu.Unlock()
}

func (n *node) RemoveChild(child Node) bool {
	c, ok := child.(*node)
	if !ok {
		return false
	}
	n.mu.Lock()
	i := slices.Index(n.children, c)
	if i < 0 {
		n.mu.Unlock()
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	n.mu.Unlock()

	c.mu.Lock()
	c.parent = nil
	c.mu.Unlock()
	return true
}

func (n *node) Mesh() model.Mesh {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mesh
}

func (n *node) SetMesh(m model.Mesh) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mesh = m
}

func (n *node) Material() material.Material {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mat
}

func (n *node) SetMaterial(m material.Material) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mat = m
}

func (n *node) SetObjectUniform(name string, v uniform.Value) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if u, ok := n.uniforms[name]; ok {
		u.Set(v)
		return
	}
	n.uniforms[name] = uniform.New(v)
}

func (n *node) ObjectUniform(name string) uniform.Source {
	n.mu.Lock()
	defer n.mu.Unlock()
	if u, ok := n.uniforms[name]; ok {
		return u
	}
	return nil
}

func (n *node) Traverse(visit func(n Node)) {
	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()

	parentWorld := mgl32.Ident4()
	if parent != nil {
		parentWorld = parent.WorldMatrix()
	}
	n.traverse(parentWorld, visit)
}

func (n *node) traverse(parentWorld mgl32.Mat4, visit func(n Node)) {
	if !n.Active() {
		return
	}
	world := n.updateWorld(parentWorld)
	visit(n)
	for _, c := range n.Children() {
		c.(*node).traverse(world, visit)
	}
}

func (n *node) getParent() *node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

// updateWorld sets the world matrix to parentWorld * local and refreshes the built-in uniforms.
func (n *node) updateWorld(parentWorld mgl32.Mat4) mgl32.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.world = parentWorld.Mul4(n.localMatrix())
	n.uniforms[ModelMatrixUniform].Set(uniform.Mat4(n.world))
	n.uniforms[NormalMatrixUniform].Set(uniform.Mat4(n.world.Inv().Transpose()))
	return n.world
}

// localMatrix composes translation * rotation * scale. Caller must hold the mutex.
func (n *node) localMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.position[0], n.position[1], n.position[2])
	s := mgl32.Scale3D(n.scale[0], n.scale[1], n.scale[2])
	return t.Mul4(n.rotation.Mat4()).Mul4(s)
}
