package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*directional)

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing; a zero vector keeps the default.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a light
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *directional) {
		l.setDirection(mgl32.Vec3{x, y, z})
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *directional) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value, clamped to zero
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a light
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *directional) {
		l.intensity = max(intensity, 0)
	}
}

// WithEnabled is an option builder that sets whether the light starts enabled.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *directional) {
		l.enabled = enabled
	}
}
