package uniform

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// uniformCount is the monotonically increasing id source shared by every uniform container.
var uniformCount atomic.Uint64

// NextID returns a fresh uniform identity. Containers other than Uniform that feed the buffer
// store, such as Globals, take their ids from here so ids never collide.
func NextID() uint64 {
	return uniformCount.Add(1)
}

// Source is anything the buffer store can keep in sync with a GPU uniform buffer. The version
// must advance whenever Bytes would return different contents.
type Source interface {
	// ID returns the identity the GPU buffer is keyed by.
	ID() uint64

	// Version returns the current content version.
	Version() uint64

	// Bytes serializes the current contents.
	Bytes() []byte
}

// Uniform is a versioned Value. Set bumps the version only when the value actually changes.
type Uniform struct {
	mu      *sync.Mutex
	id      uint64
	value   Value
	version uint64
}

var _ Source = &Uniform{}

// New creates a Uniform holding v at version 1.
func New(v Value) *Uniform {
	return &Uniform{
		mu:      &sync.Mutex{},
		id:      NextID(),
		value:   v,
		version: 1,
	}
}

func (u *Uniform) ID() uint64 {
	return u.id
}

func (u *Uniform) Version() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.version
}

// Value returns the current value.
func (u *Uniform) Value() Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.value
}

// Set replaces the value.
//
// Returns:
//   - bool: true if the value changed and the version advanced
func (u *Uniform) Set(v Value) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.value == v {
		return false
	}
	u.value = v
	u.version++
	return true
}

func (u *Uniform) Bytes() []byte {
	return u.Value().Bytes()
}

// Globals is the per-frame GlobalValues block shared by every draw in a frame.
// Its byte layout matches the GlobalValues WGSL struct.
type Globals struct {
	mu      *sync.Mutex
	id      uint64
	version uint64

	time             float32
	deltaTime        float32
	screenSize       [2]float32
	viewMatrix       mgl32.Mat4
	projectionMatrix mgl32.Mat4
}

var _ Source = &Globals{}

// globalsSize mirrors the WGSL GlobalValues struct: two f32, one vec2f and two mat4x4f.
const globalsSize = 4 + 4 + 8 + 64 + 64

// NewGlobals creates a Globals block with identity matrices.
func NewGlobals() *Globals {
	return &Globals{
		mu:               &sync.Mutex{},
		id:               NextID(),
		viewMatrix:       mgl32.Ident4(),
		projectionMatrix: mgl32.Ident4(),
	}
}

func (g *Globals) ID() uint64 {
	return g.id
}

func (g *Globals) Version() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.version
}

// Update replaces every field and advances the version once.
//
// Parameters:
//   - time: seconds since the renderer started
//   - deltaTime: seconds since the previous frame
//   - width, height: the output size in pixels
//   - view: the camera view matrix
//   - projection: the camera projection matrix
func (g *Globals) Update(time, deltaTime float32, width, height uint32, view, projection mgl32.Mat4) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.time = time
	g.deltaTime = deltaTime
	g.screenSize = [2]float32{float32(width), float32(height)}
	g.viewMatrix = view
	g.projectionMatrix = projection
	g.version++
}

// ScreenSize returns the output size last passed to Update.
func (g *Globals) ScreenSize() [2]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.screenSize
}

func (g *Globals) Bytes() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]byte, globalsSize)
	Number(g.time).Put(out[0:])
	Number(g.deltaTime).Put(out[4:])
	Vec2(g.screenSize[0], g.screenSize[1]).Put(out[8:])
	Mat4(g.viewMatrix).Put(out[16:])
	Mat4(g.projectionMatrix).Put(out[80:])
	return out
}
