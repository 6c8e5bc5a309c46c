// Package scene holds the render-facing scene graph: nodes with local transforms, meshes,
// materials and per-object uniforms, grouped under a Scene with a camera.
package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
)

// Scene is a named root node plus the camera it is viewed through.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Root returns the root node. It is never nil.
	Root() Node

	// Camera returns the scene's camera, or nil if none is set.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Add attaches nodes to the root.
	//
	// Parameters:
	//   - nodes: the nodes to attach
	Add(nodes ...Node)

	// Remove detaches a node from the root.
	//
	// Parameters:
	//   - n: the node to detach
	//
	// Returns:
	//   - bool: true if n was a direct child of the root
	Remove(n Node) bool
}

type scene struct {
	mu *sync.Mutex

	name   string
	active bool
	root   Node
	cam    camera.Camera
}

var _ Scene = &scene{}

// NewScene creates an active scene with an empty root node.
//
// Parameters:
//   - name: the scene name
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.Mutex{},
		name:   name,
		active: true,
		root:   NewNode(WithName(name + "_root")),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Root() Node {
	return s.root
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Add(nodes ...Node) {
	for _, n := range nodes {
		s.root.AddChild(n)
	}
}

func (s *scene) Remove(n Node) bool {
	return s.root.RemoveChild(n)
}
