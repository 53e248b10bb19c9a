package crosshair

import "github.com/inamate/crosshair/internal/geometry"

// Hook names a point in the session lifecycle.
type Hook string

const (
	HookShow             Hook = "onShow"
	HookMove             Hook = "onMove"
	HookConfirm          Hook = "onConfirm"
	HookCancel           Hook = "onCancel"
	HookInvalidPlacement Hook = "onInvalidPlacement"
)

// Callback receives the state at the hook. reason is nil except for
// HookInvalidPlacement, where it is the *placement.Violation.
type Callback func(state State, reason error)

// Callbacks maps hooks to handlers, invoked synchronously in order.
type Callbacks map[Hook][]Callback

// On registers fn for h and returns the (possibly new) map.
func (c Callbacks) On(h Hook, fn Callback) Callbacks {
	if c == nil {
		c = make(Callbacks)
	}
	c[h] = append(c[h], fn)
	return c
}

func (c Callbacks) fire(h Hook, st State, reason error) {
	for _, fn := range c[h] {
		if fn != nil {
			fn(st, reason)
		}
	}
}

// Renderer draws the crosshair. It is called with every committed state.
type Renderer interface {
	Render(State)
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(State)

func (f RendererFunc) Render(st State) { f(st) }

// Target is an object a crosshair can be bound to, such as a token.
// The session never changes it beyond releasing and restoring control.
type Target interface {
	ID() string
	Position() geometry.Point
	Center() geometry.Point
	Controlled() bool
	Release()
	Control()
}
