package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// orbitController is the implementation of the OrbitController interface.
type orbitController struct {
	mu *sync.Mutex

	cam    Camera
	target mgl32.Vec3

	// spherical coordinates of the eye around target
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

// OrbitController moves a Camera on a sphere around a target point. Every mutation writes the
// new eye position back to the camera through Camera.LookAt.
type OrbitController interface {
	// Camera returns the camera this controller drives.
	Camera() Camera

	// Orbit rotates the eye around the target. Steps are scaled by the orbit speed and elevation is clamped.
	//
	// Parameters:
	//   - dAzimuth: horizontal steps, positive orbits right
	//   - dElevation: vertical steps, positive orbits up
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye towards the target, scaled by the zoom speed and clamped to the radius limits.
	//
	// Parameters:
	//   - delta: positive zooms in
	Zoom(delta float32)

	// Pan translates target and eye together along the camera's right and up axes.
	//
	// Parameters:
	//   - dx: movement along the right axis
	//   - dy: movement along the up axis
	Pan(dx, dy float32)

	// Radius returns the distance between eye and target.
	Radius() float32

	// Target returns the orbit target.
	Target() mgl32.Vec3
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an OrbitController for cam and immediately positions the camera.
// Panics if cam is nil.
//
// Parameters:
//   - cam: the camera to drive
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(cam Camera, options ...OrbitControllerOption) OrbitController {
	if cam == nil {
		panic("camera: orbit controller needs a camera")
	}
	oc := &orbitController{
		mu:  &sync.Mutex{},
		cam: cam,

		radius:    5.0,
		elevation: float32(math.Pi / 6),

		minRadius:    0.5,
		maxRadius:    500.0,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		orbitSpeed: 0.03,
		zoomSpeed:  0.5,
		panSpeed:   0.05,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = mgl32.Clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.apply()
	return oc
}

func (oc *orbitController) Camera() Camera {
	return oc.cam
}

func (oc *orbitController) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth * oc.orbitSpeed
	oc.elevation = mgl32.Clamp(oc.elevation+dElevation*oc.orbitSpeed, oc.minElevation, oc.maxElevation)
	oc.apply()
}

func (oc *orbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = mgl32.Clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.apply()
}

func (oc *orbitController) Pan(dx, dy float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	backward := oc.offset().Normalize()
	right := mgl32.Vec3{0, 1, 0}.Cross(backward)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	up := backward.Cross(right)

	oc.target = oc.target.Add(right.Mul(dx * oc.panSpeed)).Add(up.Mul(dy * oc.panSpeed))
	oc.apply()
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) Target() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

// offset is the eye position relative to the target. Caller must hold the mutex.
func (oc *orbitController) offset() mgl32.Vec3 {
	cosElev := float32(math.Cos(float64(oc.elevation)))
	sinElev := float32(math.Sin(float64(oc.elevation)))
	cosAzim := float32(math.Cos(float64(oc.azimuth)))
	sinAzim := float32(math.Sin(float64(oc.azimuth)))
	return mgl32.Vec3{
		oc.radius * cosElev * sinAzim,
		oc.radius * sinElev,
		oc.radius * cosElev * cosAzim,
	}
}

// apply writes the eye position to the camera. Caller must hold the mutex.
func (oc *orbitController) apply() {
	oc.cam.LookAt(oc.target.Add(oc.offset()), oc.target)
}
