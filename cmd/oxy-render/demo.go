package main

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/input"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/shaderwatch"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	gridSide     = 3
	gridSpacing  = 2.5
	spinSpeed    = 0.8 // radians per second
	vignette     = 1.6
	checkerSize  = 64
	checkerCells = 8
)

// demo owns the scene, its materials and the camera controls.
type demo struct {
	r       renderer.Renderer
	shaders shaderSet
	dir     string
	sun     light.Light

	albedos   []*texture.Texture
	materials []material.Material
	post      material.Material
	postOn    bool

	scene   scene.Scene
	cubes   []scene.Node
	surface scene.Node
	orbit   camera.OrbitController
	watcher shaderwatch.Watcher
	spin    float32
}

func newDemo(cfg config.Config, r renderer.Renderer, ld loader.Loader) (*demo, error) {
	shaders, err := loadShaders(cfg.Assets.ShaderDir)
	if err != nil {
		return nil, err
	}
	d := &demo{
		r:       r,
		shaders: shaders,
		dir:     cfg.Assets.ShaderDir,
		sun:     light.NewLight(light.WithDirection(-0.4, -1, -0.3), light.WithColor(1, 0.95, 0.85)),
		postOn:  true,
	}

	d.albedos = loadAlbedos(ld, cfg.Assets.Textures)
	if d.materials, err = d.buildMeshMaterials(); err != nil {
		return nil, err
	}
	if d.post, err = d.buildPost(); err != nil {
		return nil, err
	}
	if err := r.SetRenderStages(d.post); err != nil {
		return nil, err
	}

	cam := camera.NewCamera()
	d.orbit = camera.NewOrbitController(cam,
		camera.WithRadius(12),
		camera.WithElevation(0.5),
		camera.WithSpeeds(0.005, 0.5, 0.02),
	)
	d.scene = scene.NewScene("demo", scene.WithCamera(cam))

	d.surface = scene.NewNode(
		scene.WithName("floor"),
		scene.WithMesh(model.NewPlane(20, 20)),
		scene.WithMaterial(d.materials[0]),
		scene.WithPosition(mgl32.Vec3{0, -1, 0}),
	)
	d.scene.Add(d.surface)

	offset := float32(gridSide-1) * gridSpacing / 2
	cube := model.NewCube(1)
	for i := range gridSide * gridSide {
		x, z := float32(i%gridSide)*gridSpacing-offset, float32(i/gridSide)*gridSpacing-offset
		n := scene.NewNode(
			scene.WithName(fmt.Sprintf("cube_%d", i)),
			scene.WithMesh(cube),
			scene.WithMaterial(d.materials[i%len(d.materials)]),
			scene.WithPosition(mgl32.Vec3{x, 0, z}),
		)
		d.cubes = append(d.cubes, n)
		d.scene.Add(n)
	}

	if cfg.Assets.WatchShaders {
		if d.watcher, err = shaderwatch.NewWatcher(); err != nil {
			return nil, err
		}
		for name, paths := range shaderPaths(cfg.Assets.ShaderDir) {
			if err := d.watcher.Watch(name, paths...); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// loadAlbedos loads the configured textures, skipping the ones that fail. A procedural checker is
// used when none load.
func loadAlbedos(ld loader.Loader, paths []string) []*texture.Texture {
	var albedos []*texture.Texture
	if len(paths) > 0 {
		loaded, err := ld.LoadTextures(true, paths...)
		if err != nil {
			common.Logger().Warn("some textures failed to load", "error", err)
		}
		for _, p := range paths {
			if t, ok := loaded[p]; ok {
				albedos = append(albedos, t)
			}
		}
	}
	if len(albedos) == 0 {
		albedos = append(albedos, checker())
	}
	return albedos
}

func checker() *texture.Texture {
	pixels := make([]byte, checkerSize*checkerSize*4)
	cell := checkerSize / checkerCells
	for y := range checkerSize {
		for x := range checkerSize {
			v := byte(200)
			if (x/cell+y/cell)%2 == 1 {
				v = 60
			}
			i := (y*checkerSize + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	return texture.New("checker", checkerSize, checkerSize, wgpu.TextureFormatRGBA8UnormSrgb, pixels)
}

// buildMeshMaterials creates one lit material per albedo. They share a single cached shader.
func (d *demo) buildMeshMaterials() ([]material.Material, error) {
	cache := d.r.ShaderCache()
	mats := make([]material.Material, 0, len(d.albedos))
	for i, albedo := range d.albedos {
		hue := float32(i) / float32(len(d.albedos))
		m, err := material.NewMaterial(cache, d.shaders.meshVertex, d.shaders.meshFragment,
			material.WithLabel("lit_"+albedo.Label()),
			material.WithUniform("tint", uniform.Color(1, 1-0.4*hue, 1-0.2*hue, 1)),
			material.WithTexture("albedo", albedo),
		)
		if err != nil {
			for _, built := range mats {
				d.r.ReleaseMaterial(built.ID())
			}
			return nil, err
		}
		mats = append(mats, m)
	}
	if err := d.sun.Apply(mats...); err != nil {
		for _, built := range mats {
			d.r.ReleaseMaterial(built.ID())
		}
		return nil, err
	}
	return mats, nil
}

func (d *demo) buildPost() (material.Material, error) {
	return material.NewMaterial(d.r.ShaderCache(), postVertex, d.shaders.postFragment,
		material.WithLabel("vignette"),
		material.WithUniform("strength", uniform.Number(vignette)),
	)
}

// tick advances the cube animation by one fixed step.
func (d *demo) tick(dt float32) {
	d.spin = float32(math.Mod(float64(d.spin+dt*spinSpeed), 2*math.Pi))
	for i, n := range d.cubes {
		axis := mgl32.Vec3{0, 1, float32(i%2) * 0.5}.Normalize()
		n.SetRotation(mgl32.QuatRotate(d.spin+float32(i)*0.3, axis))
	}
}

// frame applies this frame's input and any shader reloads.
func (d *demo) frame(in *input.State) {
	f := in.Flush()
	switch {
	case in.ButtonDown(input.MouseButtonLeft):
		d.orbit.Orbit(-f.DX, f.DY)
	case in.ButtonDown(input.MouseButtonMiddle), in.ButtonDown(input.MouseButtonRight):
		d.orbit.Pan(-f.DX, f.DY)
	}
	if f.Scroll != 0 {
		d.orbit.Zoom(f.Scroll)
	}

	var reload []string
	if slices.Contains(f.Pressed, input.KeySpace) {
		d.togglePost()
	}
	if slices.Contains(f.Pressed, input.KeyR) {
		reload = []string{"mesh", "post"}
	}
	if d.watcher != nil {
		reload = append(reload, d.watcher.Changed()...)
	}
	if len(reload) > 0 {
		d.reload(reload)
	}
}

func (d *demo) togglePost() {
	d.postOn = !d.postOn
	if !d.postOn {
		d.r.ResetPipeline()
		return
	}
	if err := d.r.SetRenderStages(d.post); err != nil {
		common.Logger().Warn("enable post stage", "error", err)
	}
}

// reload rebuilds the named materials from the shader directory. A shader that fails to compile
// keeps the previous material in place.
func (d *demo) reload(names []string) {
	shaders, err := loadShaders(d.dir)
	if err != nil {
		common.Logger().Warn("reload shaders", "error", err)
		return
	}
	next := *d
	next.shaders = shaders

	var errs []error
	if slices.Contains(names, "mesh") {
		mats, err := next.buildMeshMaterials()
		if err != nil {
			errs = append(errs, err)
		} else {
			d.swapMeshMaterials(mats)
			d.shaders.meshVertex, d.shaders.meshFragment = shaders.meshVertex, shaders.meshFragment
		}
	}
	if slices.Contains(names, "post") {
		post, err := next.buildPost()
		if err != nil {
			errs = append(errs, err)
		} else {
			old := d.post
			d.post = post
			d.shaders.postFragment = shaders.postFragment
			if d.postOn {
				if err := d.r.SetRenderStages(post); err != nil {
					errs = append(errs, err)
				}
			}
			d.r.ReleaseMaterial(old.ID())
		}
	}
	if err := errors.Join(errs...); err != nil {
		common.Logger().Warn("shader reload failed", "error", err)
		return
	}
	common.Logger().Info("shaders reloaded", "materials", names)
}

func (d *demo) swapMeshMaterials(mats []material.Material) {
	index := make(map[uint64]material.Material, len(d.materials))
	for i, old := range d.materials {
		index[old.ID()] = mats[i]
	}
	for _, n := range append([]scene.Node{d.surface}, d.cubes...) {
		if m, ok := index[n.Material().ID()]; ok {
			n.SetMaterial(m)
		}
	}
	for _, old := range d.materials {
		d.r.ReleaseMaterial(old.ID())
	}
	d.materials = mats
}

func (d *demo) close() {
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			common.Logger().Warn("close shader watcher", "error", err)
		}
	}
}
