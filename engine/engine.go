package engine

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

// ErrNoRenderer is returned by Frame and Run when the engine was built without a renderer.
var ErrNoRenderer = errors.New("engine: no renderer")

// maxTicksPerFrame bounds the catch-up ticks run after a long frame.
const maxTicksPerFrame = 8

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	window   window.Window
	renderer renderer.Renderer
	scenes   map[int]scene.Scene

	clock     func() time.Time
	lastFrame time.Time
	tickDebt  time.Duration

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate   time.Duration
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)

	quit bool
}

// Engine drives frames on the calling goroutine: it polls window events, runs fixed-rate ticks,
// then renders the first active scene through the renderer.
type Engine interface {
	// Window returns the window the engine polls, or nil for a headless engine.
	Window() window.Window

	// Renderer returns the renderer scenes are drawn with.
	Renderer() renderer.Renderer

	// EnableProfiler enables performance statistics in the log.
	EnableProfiler()

	// DisableProfiler disables performance statistics.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the tick rate, for game logic and animation.
	//
	// Parameters:
	//   - callback: function receiving the fixed tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called once per frame before the scene is rendered.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given key. The active scene with the lowest key is rendered.
	//
	// Parameters:
	//   - key: the priority of the scene (lower wins)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key, or nil.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Frame runs one frame: poll events, tick, call the render callback and render.
	//
	// Returns:
	//   - bool: false when the window closed or Quit was called
	//   - error: the render error, which is fatal to the loop
	Frame() (bool, error)

	// Run calls Frame until the window closes, Quit is called or a frame fails.
	//
	// Returns:
	//   - error: the first frame error
	Run() error

	// Quit makes Run return after the current frame. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:             &sync.Mutex{},
		scenes:         make(map[int]scene.Scene),
		clock:          time.Now,
		engineTickRate: time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(e.clock(), time.Second)

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		if w, h := e.window.Size(); w > 0 && h > 0 {
			e.resize(w, h)
		}
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engineTickRate = tickRate(fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameLimit(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.scenes)
}

func (e *engine) Frame() (bool, error) {
	if e.renderer == nil {
		return false, ErrNoRenderer
	}
	if e.window != nil && !e.window.PollEvents() {
		return false, nil
	}

	e.mu.Lock()
	now := e.clock()
	if e.lastFrame.IsZero() {
		e.lastFrame = now
	}
	dt := now.Sub(e.lastFrame)
	e.lastFrame = now
	ticks := e.ticksDue(dt)
	rate, tickCallback, renderCallback := e.engineTickRate, e.tickCallback, e.renderCallback
	active := e.activeScene()
	e.mu.Unlock()

	if tickCallback != nil {
		for range ticks {
			tickCallback(float32(rate.Seconds()))
		}
	}
	if renderCallback != nil {
		renderCallback(float32(dt.Seconds()))
	}

	if active != nil {
		if err := e.renderer.Render(active.Root(), active.Camera()); err != nil {
			return false, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profilingEnabled {
		e.profiler.Tick(now)
	}
	return !e.quit, nil
}

func (e *engine) Run() error {
	common.Logger().Info("engine running")
	defer common.Logger().Info("engine stopped")

	for {
		start := e.clock()
		running, err := e.Frame()
		if err != nil || !running {
			return err
		}

		e.mu.Lock()
		limit := e.renderFrameLimit
		e.mu.Unlock()
		if limit > 0 {
			if remaining := limit - e.clock().Sub(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quit = true
}

// ticksDue adds dt to the tick debt and returns how many fixed ticks are owed. Debt beyond
// maxTicksPerFrame is dropped so a stalled frame does not trigger a burst of catch-up ticks.
// Caller must hold the mutex.
func (e *engine) ticksDue(dt time.Duration) int {
	e.tickDebt += dt
	ticks := int(e.tickDebt / e.engineTickRate)
	if ticks > maxTicksPerFrame {
		common.Logger().Warn("dropping engine ticks", "owed", ticks, "run", maxTicksPerFrame)
		ticks = maxTicksPerFrame
		e.tickDebt = 0
		return ticks
	}
	e.tickDebt -= time.Duration(ticks) * e.engineTickRate
	return ticks
}

// activeScene returns the active scene with the lowest key, or nil. Caller must hold the mutex.
func (e *engine) activeScene() scene.Scene {
	for _, k := range slices.Sorted(maps.Keys(e.scenes)) {
		if s := e.scenes[k]; s.Active() {
			return s
		}
	}
	return nil
}

// resize reconfigures the renderer and every scene camera for a new framebuffer size.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.scenes {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

func tickRate(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
