package light

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// Material uniform names a Light writes. Materials that do not declare one are left untouched.
const (
	// DirectionUniform is a vec3f holding the normalized direction the light travels in.
	DirectionUniform = "lightDir"

	// ColorUniform is a vec4f holding color * intensity in rgb and 1 in alpha, or zero when the
	// light is disabled.
	ColorUniform = "lightColor"
)

// directional is the implementation of the Light interface.
type directional struct {
	mu *sync.Mutex

	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	enabled   bool
}

// Light is a directional light source, like the sun. It has no position and does not attenuate.
//
// Lights are not part of the render graph. They reach shaders through material uniforms written
// by Apply, so a change takes effect on the next frame of every material it was applied to.
type Light interface {
	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: the direction
	Direction() mgl32.Vec3

	// SetDirection sets the light direction. The vector is normalized; a zero vector is ignored.
	//
	// Parameters:
	//   - d: the new direction
	SetDirection(d mgl32.Vec3)

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// SetColor sets the RGB color of the light.
	SetColor(c mgl32.Vec3)

	// Intensity returns the scalar intensity multiplier.
	Intensity() float32

	// SetIntensity sets the scalar intensity multiplier. Negative values are clamped to zero.
	SetIntensity(intensity float32)

	// Enabled reports whether the light contributes to shading.
	Enabled() bool

	// SetEnabled turns the light on or off.
	SetEnabled(enabled bool)

	// Apply writes the light into the materials' lightDir and lightColor uniforms.
	//
	// Parameters:
	//   - mats: the materials to update
	//
	// Returns:
	//   - error: the joined errors of uniforms declared with a mismatched type
	Apply(mats ...material.Material) error
}

var _ Light = &directional{}

// NewLight creates a white directional light pointing straight down.
//
// Parameters:
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the configured light
func NewLight(options ...LightBuilderOption) Light {
	l := &directional{
		mu:        &sync.Mutex{},
		direction: mgl32.Vec3{0, -1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		enabled:   true,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *directional) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *directional) SetDirection(d mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setDirection(d)
}

func (l *directional) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *directional) SetColor(c mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
}

func (l *directional) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *directional) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = max(intensity, 0)
}

func (l *directional) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *directional) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *directional) Apply(mats ...material.Material) error {
	l.mu.Lock()
	dir := uniform.Vec3(l.direction.X(), l.direction.Y(), l.direction.Z())
	radiance := l.color.Mul(l.intensity)
	if !l.enabled {
		radiance = mgl32.Vec3{}
	}
	l.mu.Unlock()
	color := uniform.Color(radiance.X(), radiance.Y(), radiance.Z(), 1)

	var errs []error
	for _, m := range mats {
		layout := m.ShaderInfo().Layout
		if _, err := layout.Uniform(DirectionUniform); err == nil {
			errs = append(errs, m.SetUniform(DirectionUniform, dir))
		}
		if _, err := layout.Uniform(ColorUniform); err == nil {
			errs = append(errs, m.SetUniform(ColorUniform, color))
		}
	}
	return errors.Join(errs...)
}

// setDirection normalizes and stores d. Caller must hold the mutex.
func (l *directional) setDirection(d mgl32.Vec3) {
	if d.Len() < 1e-6 {
		return
	}
	l.direction = d.Normalize()
}
