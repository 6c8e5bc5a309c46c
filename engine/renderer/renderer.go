package renderer

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/stage"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/store"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrRendererDestroyed is returned by every frame operation after Destroy.
	ErrRendererDestroyed = errors.New("renderer: destroyed")

	// ErrNoCamera is returned by Render when no camera is given.
	ErrNoCamera = errors.New("renderer: no camera")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device  gpu.Device
	surface gpu.Surface

	cache    shader.Cache
	buffers  store.BufferStore
	textures store.TextureStore
	manager  pipeline.Manager
	chain    *stage.Chain
	globals  *uniform.Globals

	clearColor     wgpu.Color
	frustumCulling bool
	depthFormat    wgpu.TextureFormat
	clock          func() time.Time

	start     time.Time
	lastFrame time.Time
	destroyed bool
}

// Renderer draws a scene graph through the scene stage and the post-processing chain into the
// surface, one frame per Render call.
//
// The Renderer owns the shader cache, the GPU resource stores, the pipeline manager and the stage
// chain. Resources are created lazily on first use and kept until they are released explicitly
// or the Renderer is destroyed.
type Renderer interface {
	// Render draws root as seen by cam into the current surface texture and presents it.
	// A nil root renders only the clear color and the post-processing chain. When the frame fails
	// after the texture was acquired the texture is discarded, so the next Render can acquire again.
	//
	// Parameters:
	//   - root: the root of the graph to draw, or nil
	//   - cam: the camera supplying the view and projection matrices
	//
	// Returns:
	//   - error: ErrNoCamera, ErrRendererDestroyed, or the first resource or stage error
	Render(root scene.Node, cam camera.Camera) error

	// SetRenderStages replaces the post-processing chain with one stage per material, in order.
	// On error the chain is left with only the scene stage.
	//
	// Parameters:
	//   - materials: the post-processing materials
	//
	// Returns:
	//   - error: a ShaderError if a material cannot be used as a post stage, or ErrRendererDestroyed
	SetRenderStages(materials ...material.Material) error

	// ResetPipeline truncates the chain to the scene stage, releasing every post stage.
	ResetPipeline()

	// ClearColor returns the color every stage clears its target to.
	ClearColor() wgpu.Color

	// SetClearColor sets the color every stage clears its target to.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c wgpu.Color)

	// ShaderCache returns the cache materials for this renderer should be created from.
	ShaderCache() shader.Cache

	// Resize reconfigures the surface. Zero sizes are ignored, as a minimized window reports them.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// ReleaseMaterial releases the pipelines, bind groups and uniform buffers of a material.
	//
	// Parameters:
	//   - materialID: the material identity
	ReleaseMaterial(materialID uint64)

	// ReleaseNode releases the per-object bind groups and buffers of a node and the buffers of its mesh.
	//
	// Parameters:
	//   - n: the node being discarded
	ReleaseNode(n scene.Node)

	// ReleaseTexture releases the GPU copy of a texture.
	//
	// Parameters:
	//   - textureID: the texture identity
	ReleaseTexture(textureID uint64)

	// Destroy releases every GPU resource the renderer owns. Later frame operations fail with
	// ErrRendererDestroyed. Calling Destroy again has no effect.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing into surface with resources created on device.
//
// Parameters:
//   - device: the GPU device
//   - surface: the presentable surface
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the default texture could not be created
func NewRenderer(device gpu.Device, surface gpu.Surface, options ...RendererBuilderOption) (Renderer, error) {
	if device == nil || surface == nil {
		panic("renderer: nil collaborator")
	}
	r := &renderer{
		mu:          &sync.Mutex{},
		device:      device,
		surface:     surface,
		clearColor:  wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		depthFormat: pipeline.DepthFormat,
		clock:       time.Now,
		globals:     uniform.NewGlobals(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.cache == nil {
		r.cache = shader.NewCache()
	}

	textures, err := store.NewTextureStore(device)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.textures = textures
	r.buffers = store.NewBufferStore(device)
	r.manager = pipeline.NewManager(device, r.buffers, r.textures, pipeline.WithDepthFormat(r.depthFormat))
	r.chain = stage.NewChain(device, stage.NewSceneStage(device, r.manager))

	common.Logger().Info("renderer created", "surfaceFormat", surface.Format(), "depthFormat", r.depthFormat)
	return r, nil
}

func (r *renderer) Render(root scene.Node, cam camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRendererDestroyed
	}
	if cam == nil {
		return ErrNoCamera
	}

	now := r.clock()
	if r.start.IsZero() {
		r.start, r.lastFrame = now, now
	}
	elapsed := now.Sub(r.start).Seconds()
	delta := now.Sub(r.lastFrame).Seconds()
	r.lastFrame = now

	final, err := r.surface.CurrentTexture()
	if err != nil {
		return fmt.Errorf("renderer: acquire surface texture: %w", err)
	}
	presented := false
	defer func() {
		if !presented {
			r.surface.Discard()
		}
	}()
	r.globals.Update(float32(elapsed), float32(delta), final.Width(), final.Height(), cam.ViewMatrix(), cam.ProjectionMatrix())

	var frustum *common.Frustum
	if r.frustumCulling {
		f := cam.Frustum()
		frustum = &f
	}
	buckets := buildBuckets(root, frustum)

	encoder, err := r.device.CreateCommandEncoder("frame")
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer encoder.Release()

	frame := stage.Frame{
		Encoder:    encoder,
		Globals:    r.globals,
		ClearColor: r.clearColor,
		Buckets:    buckets,
	}
	if err = r.chain.Execute(frame, final); err != nil {
		return err
	}
	if err = encoder.Submit(); err != nil {
		return fmt.Errorf("renderer: submit: %w", err)
	}
	r.surface.Present()
	presented = true
	return nil
}

func (r *renderer) SetRenderStages(materials ...material.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRendererDestroyed
	}
	r.chain.Reset()

	posts := make([]stage.PostStage, 0, len(materials))
	for _, mat := range materials {
		post, err := stage.NewPostStage(r.device, r.manager, mat)
		if err != nil {
			for _, p := range posts {
				p.Release()
			}
			return err
		}
		posts = append(posts, post)
	}
	r.chain.Append(posts...)
	common.Logger().Info("render stages set", "count", len(posts))
	return nil
}

func (r *renderer) ResetPipeline() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.chain.Reset()
}

func (r *renderer) ClearColor() wgpu.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearColor
}

func (r *renderer) SetClearColor(c wgpu.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = c
}

func (r *renderer) ShaderCache() shader.Cache {
	return r.cache
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.surface.Configure(uint32(width), uint32(height))
}

func (r *renderer) ReleaseMaterial(materialID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.manager.ReleaseMaterial(materialID)
}

func (r *renderer) ReleaseNode(n scene.Node) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.manager.ReleaseObject(n.ID())
	if mesh := n.Mesh(); mesh != nil {
		r.manager.ReleaseMesh(mesh.ID())
	}
}

func (r *renderer) ReleaseTexture(textureID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.textures.ReleaseTexture(textureID)
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.chain.Release()
	r.manager.Destroy()
	r.buffers.Destroy()
	r.textures.Destroy()
	r.destroyed = true
	common.Logger().Info("renderer destroyed")
}

// buildBuckets collects a draw for every visited node carrying both a mesh and an active material.
// Buckets ascend by render order; draws within a bucket ascend by material id, then mesh id.
// With a non-nil frustum, nodes whose world bounds fall outside it are skipped.
func buildBuckets(root scene.Node, frustum *common.Frustum) []stage.Bucket {
	if root == nil {
		return nil
	}

	byOrder := make(map[int][]stage.Draw)
	root.Traverse(func(n scene.Node) {
		mesh, mat := n.Mesh(), n.Material()
		if mesh == nil || mat == nil || !mat.Active() {
			return
		}
		if frustum != nil && !frustum.IntersectsAABB(n.Bounds()) {
			return
		}
		order := mat.RenderOrder()
		byOrder[order] = append(byOrder[order], stage.Draw{Material: mat, Object: n, Mesh: mesh})
	})

	orders := slices.Sorted(maps.Keys(byOrder))
	buckets := make([]stage.Bucket, 0, len(orders))
	for _, order := range orders {
		draws := byOrder[order]
		slices.SortStableFunc(draws, func(a, b stage.Draw) int {
			return cmp.Or(
				cmp.Compare(a.Material.ID(), b.Material.ID()),
				cmp.Compare(a.Mesh.ID(), b.Mesh.ID()),
			)
		})
		buckets = append(buckets, stage.Bucket{RenderOrder: order, Draws: draws})
	}
	return buckets
}
