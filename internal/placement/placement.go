// Package placement holds the rules that decide whether a crosshair may sit
// at a candidate position. Rules are ANDed: a candidate is valid only when
// every registered constraint accepts it.
package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/inamate/crosshair/internal/geometry"
)

// ErrInvalidPlacement is the sentinel wrapped by every Violation.
var ErrInvalidPlacement = errors.New("invalid placement")

// Context is what a constraint may look at besides the candidate itself.
type Context struct {
	Grid   geometry.Grid
	Region geometry.Region // region built from the candidate

	// Anchor is the bound target's center, if the crosshair has a target.
	Anchor *geometry.Point
	// Previous is the origin of the last committed state.
	Previous *geometry.Point

	Walls  []geometry.Segment
	Bounds geometry.Rect // scene area; empty means unbounded
}

// Constraint accepts or rejects a candidate shape.
type Constraint interface {
	Name() string
	Evaluate(candidate geometry.Shape, ctx Context) bool
}

// Violation names the first constraint that rejected a candidate.
type Violation struct {
	Constraint string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPlacement, v.Constraint)
}

func (v *Violation) Unwrap() error {
	return ErrInvalidPlacement
}

// Set is an ordered list of constraints.
type Set []Constraint

// Evaluate runs every constraint in registration order and returns a
// *Violation for the first one that rejects the candidate, or nil.
func (s Set) Evaluate(candidate geometry.Shape, ctx Context) error {
	for _, c := range s {
		if c == nil {
			continue
		}
		if !c.Evaluate(candidate, ctx) {
			return &Violation{Constraint: c.Name()}
		}
	}
	return nil
}

// Func adapts a plain function to a Constraint.
type Func struct {
	Label string
	Fn    func(candidate geometry.Shape, ctx Context) bool
}

// New returns a named Func constraint.
func New(name string, fn func(candidate geometry.Shape, ctx Context) bool) Func {
	return Func{Label: name, Fn: fn}
}

func (f Func) Name() string { return f.Label }

func (f Func) Evaluate(candidate geometry.Shape, ctx Context) bool {
	if f.Fn == nil {
		return true
	}
	return f.Fn(candidate, ctx)
}

// GridCenter requires the origin to sit on the center of a grid space.
type GridCenter struct{}

func (GridCenter) Name() string { return "grid_center" }

func (GridCenter) Evaluate(c geometry.Shape, ctx Context) bool {
	return ctx.Grid.IsCellCenter(c.X, c.Y)
}

// MaxRange limits how far, in scene distance units, the origin may be from
// the anchor. Without an anchor it always passes.
type MaxRange struct {
	Distance float64
}

func (MaxRange) Name() string { return "max_range" }

func (m MaxRange) Evaluate(c geometry.Shape, ctx Context) bool {
	if ctx.Anchor == nil || m.Distance <= 0 {
		return true
	}
	return anchorDistance(c, ctx) <= m.Distance
}

// MinRange keeps the origin at least Distance units away from the anchor.
type MinRange struct {
	Distance float64
}

func (MinRange) Name() string { return "min_range" }

func (m MinRange) Evaluate(c geometry.Shape, ctx Context) bool {
	if ctx.Anchor == nil || m.Distance <= 0 {
		return true
	}
	return anchorDistance(c, ctx) >= m.Distance
}

func anchorDistance(c geometry.Shape, ctx Context) float64 {
	px := math.Hypot(c.X-ctx.Anchor.X, c.Y-ctx.Anchor.Y)
	return ctx.Grid.ToUnits(px)
}

// WithinBounds keeps the origin inside the scene area.
type WithinBounds struct{}

func (WithinBounds) Name() string { return "within_bounds" }

func (WithinBounds) Evaluate(c geometry.Shape, ctx Context) bool {
	if ctx.Bounds.IsEmpty() {
		return true
	}
	return ctx.Bounds.Contains(c.X, c.Y)
}

// LineOfSight rejects origins hidden from the anchor by a wall.
type LineOfSight struct{}

func (LineOfSight) Name() string { return "line_of_sight" }

func (LineOfSight) Evaluate(c geometry.Shape, ctx Context) bool {
	if ctx.Anchor == nil {
		return true
	}
	return !crossesWall(geometry.Segment{A: *ctx.Anchor, B: c.Origin()}, ctx.Walls)
}

// NoCollision rejects moves whose path from the last committed origin
// crosses a wall.
type NoCollision struct{}

func (NoCollision) Name() string { return "no_collision" }

func (NoCollision) Evaluate(c geometry.Shape, ctx Context) bool {
	if ctx.Previous == nil {
		return true
	}
	return !crossesWall(geometry.Segment{A: *ctx.Previous, B: c.Origin()}, ctx.Walls)
}

func crossesWall(path geometry.Segment, walls []geometry.Segment) bool {
	if path.Length() == 0 {
		return false
	}
	for _, w := range walls {
		if path.Intersects(w) {
			return true
		}
	}
	return false
}
