package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the host configuration read from a TOML or YAML file. Fields missing from the file
// keep the values of Default.
type Config struct {
	Window WindowConfig `toml:"window" yaml:"window"`
	Render RenderConfig `toml:"render" yaml:"render"`
	Engine EngineConfig `toml:"engine" yaml:"engine"`
	Assets AssetConfig  `toml:"assets" yaml:"assets"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// WindowConfig configures the host window.
type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// RenderConfig configures the device and the renderer.
type RenderConfig struct {
	// PresentMode is one of fifo, fifo_relaxed, immediate or mailbox.
	PresentMode    string     `toml:"present_mode" yaml:"present_mode"`
	ClearColor     [4]float64 `toml:"clear_color" yaml:"clear_color"`
	FrustumCulling bool       `toml:"frustum_culling" yaml:"frustum_culling"`
}

// EngineConfig configures the frame loop.
type EngineConfig struct {
	TickRate   float64 `toml:"tick_rate" yaml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
	Profiling  bool    `toml:"profiling" yaml:"profiling"`
}

// AssetConfig configures texture and shader loading.
type AssetConfig struct {
	Root     string   `toml:"root" yaml:"root"`
	Textures []string `toml:"textures" yaml:"textures"`
	// ShaderDir holds WGSL files overriding the built-in demo shaders. Empty uses the built-ins.
	ShaderDir string `toml:"shader_dir" yaml:"shader_dir"`
	// WatchShaders reloads materials when a file in ShaderDir changes.
	WatchShaders bool `toml:"watch_shaders" yaml:"watch_shaders"`

	MaxTextureSize int `toml:"max_texture_size" yaml:"max_texture_size"`
	Workers        int `toml:"workers" yaml:"workers"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	// Level is parsed by slog.Level.UnmarshalText: debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
}

var presentModes = map[string]wgpu.PresentMode{
	"fifo":         wgpu.PresentModeFifo,
	"fifo_relaxed": wgpu.PresentModeFifoRelaxed,
	"immediate":    wgpu.PresentModeImmediate,
	"mailbox":      wgpu.PresentModeMailbox,
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: WindowConfig{Title: "oxy-render", Width: 1280, Height: 720},
		Render: RenderConfig{PresentMode: "fifo", ClearColor: [4]float64{0.05, 0.05, 0.08, 1}},
		Engine: EngineConfig{TickRate: 60},
		Assets: AssetConfig{Root: "."},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads and parses the file at path. Files ending in .yaml or .yml are parsed as YAML,
// anything else as TOML.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the parsed configuration layered over Default
//   - error: error if the file cannot be read or is invalid
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	parse := Parse
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parse = ParseYAML
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over Default and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: a decode error naming the offending key, or a validation error
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, e := range strict.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseYAML is Parse for YAML documents. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: a decode or validation error
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
//
// Returns:
//   - error: every problem found, joined
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if _, err := c.Render.Mode(); err != nil {
		errs = append(errs, err)
	}
	for i, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_color[%d] out of range: %g", i, v))
		}
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		errs = append(errs, errors.New("tick_rate and frame_limit must not be negative"))
	}
	if c.Assets.MaxTextureSize < 0 || c.Assets.Workers < 0 {
		errs = append(errs, errors.New("max_texture_size and workers must not be negative"))
	}
	if c.Assets.WatchShaders && c.Assets.ShaderDir == "" {
		errs = append(errs, errors.New("watch_shaders needs a shader_dir"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Mode returns the configured present mode.
func (r RenderConfig) Mode() (wgpu.PresentMode, error) {
	mode, ok := presentModes[strings.ToLower(r.PresentMode)]
	if !ok {
		return 0, fmt.Errorf("unknown present_mode %q", r.PresentMode)
	}
	return mode, nil
}

// Color returns the clear color as a wgpu.Color.
func (r RenderConfig) Color() wgpu.Color {
	return wgpu.Color{R: r.ClearColor[0], G: r.ClearColor[1], B: r.ClearColor[2], A: r.ClearColor[3]}
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// Logger builds a text logger writing to w at the configured level.
//
// Parameters:
//   - w: the log destination
//
// Returns:
//   - *slog.Logger: the logger to pass to common.SetLogger
//   - error: error if the level is invalid
func (l LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
