// Command oxy-render opens a window and renders a small lit scene through a post-processing stage.
//
// Controls: left drag orbits, right or middle drag pans, the wheel zooms, space toggles the post
// stage and R reloads the shaders.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

func main() {
	configPath := flag.String("config", "oxy.toml", "path to a TOML or YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return err
	}

	logger, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return err
	}
	common.SetLogger(logger)

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := win.Close(); err != nil {
			logger.Warn("close window", "error", err)
		}
	}()

	mode, err := cfg.Render.Mode()
	if err != nil {
		return err
	}
	dev, err := gpu.NewWGPUDevice(win.SurfaceDescriptor(), gpu.WithPresentMode(mode))
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	defer dev.Release()

	r, err := renderer.NewRenderer(dev, dev,
		renderer.WithClearColor(cfg.Render.Color()),
		renderer.WithFrustumCulling(cfg.Render.FrustumCulling),
	)
	if err != nil {
		return err
	}
	defer r.Destroy()

	loaderOptions := []loader.LoaderBuilderOption{
		loader.WithFS(os.DirFS(cfg.Assets.Root)),
		loader.WithMaxSize(cfg.Assets.MaxTextureSize),
	}
	if cfg.Assets.Workers > 0 {
		loaderOptions = append(loaderOptions, loader.WithWorkers(cfg.Assets.Workers))
	}
	ld := loader.NewLoader(loaderOptions...)
	defer ld.Close()

	d, err := newDemo(cfg, r, ld)
	if err != nil {
		return err
	}
	defer d.close()

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(0, d.scene),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithRenderFrameLimit(cfg.Engine.FrameLimit),
		engine.WithProfiling(cfg.Engine.Profiling),
	)
	eng.SetTickCallback(d.tick)
	eng.SetRenderCallback(func(float32) { d.frame(win.Input()) })

	return eng.Run()
}
