package crosshair

// Event is an input delivered to a session by the host's event loop.
type Event interface {
	isEvent()
}

// Button numbers follow the DOM MouseEvent.button convention.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// Mod is a bitmask of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
)

// Key names understood by a session.
const (
	KeyEscape = "Escape"
	KeyEnter  = "Enter"
)

// PointerMove reports the pointer position in canvas pixels.
type PointerMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerDown confirms on the left button and cancels on the right.
type PointerDown struct {
	Button Button  `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Wheel rotates (Ctrl) or resizes (Shift) the crosshair.
type Wheel struct {
	Delta float64 `json:"delta"`
	Mods  Mod     `json:"mods"`
}

// Key is a key press; Escape cancels and Enter confirms.
type Key struct {
	Name string `json:"name"`
}

type confirmAction struct{}

type cancelAction struct{}

func (PointerMove) isEvent()   {}
func (PointerDown) isEvent()   {}
func (Wheel) isEvent()         {}
func (Key) isEvent()           {}
func (confirmAction) isEvent() {}
func (cancelAction) isEvent()  {}
