// Package input tracks keyboard and mouse state between frames. Window callbacks feed a State and
// the frame loop reads it once per frame.
package input

import "sync"

// Key is a keyboard key. Values follow the GLFW key codes.
type Key int

// Keys the engine and demo host react to.
const (
	KeySpace  Key = 32
	KeyA      Key = 65
	KeyD      Key = 68
	KeyR      Key = 82
	KeyS      Key = 83
	KeyW      Key = 87
	KeyEscape Key = 256
)

// MouseButton is a mouse button. Values follow the GLFW button numbers.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)

// Frame is the motion accumulated since the previous Flush.
type Frame struct {
	// DX, DY is the cursor movement in pixels.
	DX, DY float32
	// Scroll is the vertical wheel movement, positive away from the user.
	Scroll float32
	// Pressed holds the keys that went down since the previous Flush.
	Pressed []Key
}

// State is the current input state. It is safe for concurrent use.
type State struct {
	mu *sync.Mutex

	keys    map[Key]bool
	buttons map[MouseButton]bool
	pressed []Key

	x, y   float32
	hasPos bool
	dx, dy float32
	scroll float32
}

// NewState creates an empty input state.
func NewState() *State {
	return &State{
		mu:      &sync.Mutex{},
		keys:    make(map[Key]bool),
		buttons: make(map[MouseButton]bool),
	}
}

// SetKey records a key press or release. Repeats of a held key are not reported as new presses.
//
// Parameters:
//   - k: the key
//   - down: true when pressed
func (s *State) SetKey(k Key, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if down && !s.keys[k] {
		s.pressed = append(s.pressed, k)
	}
	s.keys[k] = down
}

// SetButton records a mouse button press or release.
func (s *State) SetButton(b MouseButton, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[b] = down
}

// MoveCursor records the cursor position. The first position only sets the origin, so entering
// the window does not produce a jump.
//
// Parameters:
//   - x, y: the cursor position in pixels
func (s *State) MoveCursor(x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasPos {
		s.dx += x - s.x
		s.dy += y - s.y
	}
	s.x, s.y, s.hasPos = x, y, true
}

// AddScroll accumulates wheel movement.
func (s *State) AddScroll(delta float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll += delta
}

// KeyDown reports whether k is held.
func (s *State) KeyDown(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[k]
}

// ButtonDown reports whether b is held.
func (s *State) ButtonDown(b MouseButton) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons[b]
}

// Cursor returns the last cursor position.
func (s *State) Cursor() (float32, float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// Flush returns the motion accumulated since the previous call and resets it.
//
// Returns:
//   - Frame: the accumulated motion and new key presses
func (s *State) Flush() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Frame{DX: s.dx, DY: s.dy, Scroll: s.scroll, Pressed: s.pressed}
	s.dx, s.dy, s.scroll, s.pressed = 0, 0, 0, nil
	return f
}
