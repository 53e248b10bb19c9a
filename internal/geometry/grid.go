package geometry

import "math"

// Grid describes the scene's square grid and the conversion between scene
// distance units and pixels. It is passed explicitly wherever a distance has
// to be turned into pixels.
type Grid struct {
	Size      float64   `json:"size" yaml:"size"`         // pixels per grid space
	Distance  float64   `json:"distance" yaml:"distance"` // distance units per grid space
	Units     string    `json:"units,omitempty" yaml:"units,omitempty"`
	ConeStyle ConeStyle `json:"coneStyle,omitempty" yaml:"coneStyle,omitempty"`
}

// DefaultGrid is a 100px grid measuring 5 units per space.
func DefaultGrid() Grid {
	return Grid{Size: 100, Distance: 5, Units: "ft", ConeStyle: ConeRound}
}

// DistancePixels returns how many pixels one distance unit spans.
func (g Grid) DistancePixels() float64 {
	if g.Distance <= 0 {
		return g.Size
	}
	return g.Size / g.Distance
}

// ToPixels converts scene distance units to pixels.
func (g Grid) ToPixels(units float64) float64 {
	return units * g.DistancePixels()
}

// ToUnits converts pixels to scene distance units.
func (g Grid) ToUnits(px float64) float64 {
	ratio := g.DistancePixels()
	if ratio == 0 {
		return 0
	}
	return px / ratio
}

// SnapMode selects which grid point a position snaps to.
type SnapMode string

const (
	SnapNone   SnapMode = ""
	SnapCenter SnapMode = "center" // center of the grid space under the point
	SnapCorner SnapMode = "corner" // top-left corner of the grid space under the point
	SnapVertex SnapMode = "vertex" // nearest grid intersection
)

// Snap moves (x, y) onto the grid according to mode.
func (g Grid) Snap(x, y float64, mode SnapMode) (float64, float64) {
	s := g.Size
	if s <= 0 {
		return x, y
	}

	switch mode {
	case SnapCenter:
		return math.Floor(x/s)*s + s/2, math.Floor(y/s)*s + s/2
	case SnapCorner:
		return math.Floor(x/s) * s, math.Floor(y/s) * s
	case SnapVertex:
		return math.Round(x/s) * s, math.Round(y/s) * s
	default:
		return x, y
	}
}

// IsCellCenter reports whether (x, y) sits on the center of a grid space.
func (g Grid) IsCellCenter(x, y float64) bool {
	cx, cy := g.Snap(x, y, SnapCenter)
	const eps = 1e-6
	return math.Abs(cx-x) < eps && math.Abs(cy-y) < eps
}

// SnapStep rounds v to the nearest multiple of step. A non-positive step
// leaves v unchanged.
func SnapStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}
