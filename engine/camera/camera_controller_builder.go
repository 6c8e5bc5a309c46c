package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitController)

// WithOrbitTarget sets the point the controller orbits around.
//
// Parameters:
//   - target: the orbit target
//
// Returns:
//   - OrbitControllerOption: functional option to set the target
func WithOrbitTarget(target mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.target = target
	}
}

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.radius = radius
	}
}

// WithRadiusLimits sets the minimum and maximum orbit radius.
func WithRadiusLimits(minRadius, maxRadius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minRadius, oc.maxRadius = minRadius, maxRadius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - OrbitControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - OrbitControllerOption: functional option to set the elevation
func WithElevation(elevation float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.elevation = elevation
	}
}

// WithSpeeds sets the orbit, zoom and pan step sizes.
func WithSpeeds(orbit, zoom, pan float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.orbitSpeed, oc.zoomSpeed, oc.panSpeed = orbit, zoom, pan
	}
}
