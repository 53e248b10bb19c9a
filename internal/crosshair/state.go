package crosshair

import (
	"errors"
	"fmt"

	"github.com/inamate/crosshair/internal/geometry"
	"github.com/inamate/crosshair/internal/placement"
)

// ErrInvalidConfig is returned when merged crosshair settings are unusable.
var ErrInvalidConfig = errors.New("invalid crosshair config")

const (
	defaultColor      = "#000000"
	defaultConeAngle  = 53.13
	defaultRotateStep = 15.0
)

// State is the full parameter record of a crosshair: its shape plus the
// style a renderer needs to draw it.
type State struct {
	geometry.Shape
	BorderColor string `json:"borderColor"`
	FillColor   string `json:"fillColor"`
	Label       string `json:"label,omitempty"`
}

// WallBehavior decides how walls limit placement relative to a target.
type WallBehavior string

const (
	WallsAnywhere    WallBehavior = "anywhere"
	WallsLineOfSight WallBehavior = "line_of_sight"
	WallsNoCollision WallBehavior = "no_collision"
)

// Snap controls how input is rounded before it reaches the state.
type Snap struct {
	Position  geometry.SnapMode `json:"position,omitempty" yaml:"position,omitempty"`
	Direction float64           `json:"direction,omitempty" yaml:"direction,omitempty"` // degrees per wheel step and aim rounding
	Distance  float64           `json:"distance,omitempty" yaml:"distance,omitempty"`   // distance units per wheel step
}

// Location binds the crosshair to its target.
type Location struct {
	Track        bool         `json:"track,omitempty" yaml:"track,omitempty"`
	MinRange     float64      `json:"minRange,omitempty" yaml:"minRange,omitempty"`
	MaxRange     float64      `json:"maxRange,omitempty" yaml:"maxRange,omitempty"`
	WallBehavior WallBehavior `json:"wallBehavior,omitempty" yaml:"wallBehavior,omitempty"`
}

// constraints translates location rules into placement constraints.
func (l Location) constraints() placement.Set {
	var set placement.Set
	if l.MinRange > 0 {
		set = append(set, placement.MinRange{Distance: l.MinRange})
	}
	if l.MaxRange > 0 {
		set = append(set, placement.MaxRange{Distance: l.MaxRange})
	}
	switch l.WallBehavior {
	case WallsLineOfSight:
		set = append(set, placement.LineOfSight{})
	case WallsNoCollision:
		set = append(set, placement.NoCollision{})
	}
	return set
}

// Config holds caller overrides. Nil pointers and empty strings mean "use the
// default"; Merge layers one Config over another and State produces the final
// validated State.
type Config struct {
	Kind        geometry.Kind `json:"t,omitempty" yaml:"t,omitempty"`
	X           *float64      `json:"x,omitempty" yaml:"x,omitempty"`
	Y           *float64      `json:"y,omitempty" yaml:"y,omitempty"`
	Distance    *float64      `json:"distance,omitempty" yaml:"distance,omitempty"`
	Width       *float64      `json:"width,omitempty" yaml:"width,omitempty"`
	Height      *float64      `json:"height,omitempty" yaml:"height,omitempty"`
	Angle       *float64      `json:"angle,omitempty" yaml:"angle,omitempty"`
	Direction   *float64      `json:"direction,omitempty" yaml:"direction,omitempty"`
	BorderColor string        `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	FillColor   string        `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	Label       string        `json:"label,omitempty" yaml:"label,omitempty"`

	Snap         Snap     `json:"snap,omitempty" yaml:"snap,omitempty"`
	Location     Location `json:"location,omitempty" yaml:"location,omitempty"`
	LockDrag     *bool    `json:"lockDrag,omitempty" yaml:"lockDrag,omitempty"`
	LockRotation *bool    `json:"lockRotation,omitempty" yaml:"lockRotation,omitempty"`
	DistanceMin  float64  `json:"distanceMin,omitempty" yaml:"distanceMin,omitempty"`
	DistanceMax  float64  `json:"distanceMax,omitempty" yaml:"distanceMax,omitempty"`
}

// Float returns a pointer to v, for filling Config fields.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v, for the lock fields.
func Bool(v bool) *bool {
	return &v
}

func (c Config) dragLocked() bool     { return c.LockDrag != nil && *c.LockDrag }
func (c Config) rotationLocked() bool { return c.LockRotation != nil && *c.LockRotation }

// Merge returns c with every field set in over replacing c's value.
func (c Config) Merge(over Config) Config {
	if over.Kind != "" {
		c.Kind = over.Kind
	}
	for _, f := range []struct{ dst, src **float64 }{
		{&c.X, &over.X}, {&c.Y, &over.Y},
		{&c.Distance, &over.Distance}, {&c.Width, &over.Width}, {&c.Height, &over.Height},
		{&c.Angle, &over.Angle}, {&c.Direction, &over.Direction},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	if over.BorderColor != "" {
		c.BorderColor = over.BorderColor
	}
	if over.FillColor != "" {
		c.FillColor = over.FillColor
	}
	if over.Label != "" {
		c.Label = over.Label
	}
	if over.Snap.Position != "" {
		c.Snap.Position = over.Snap.Position
	}
	if over.Snap.Direction != 0 {
		c.Snap.Direction = over.Snap.Direction
	}
	if over.Snap.Distance != 0 {
		c.Snap.Distance = over.Snap.Distance
	}
	if over.Location != (Location{}) {
		c.Location = over.Location
	}
	if over.LockDrag != nil {
		c.LockDrag = over.LockDrag
	}
	if over.LockRotation != nil {
		c.LockRotation = over.LockRotation
	}
	if over.DistanceMin != 0 {
		c.DistanceMin = over.DistanceMin
	}
	if over.DistanceMax != 0 {
		c.DistanceMax = over.DistanceMax
	}
	return c
}

// State merges c onto the defaults for grid and validates the result.
// origin seeds the position when c has no X/Y of its own.
func (c Config) State(grid geometry.Grid, origin geometry.Point) (State, error) {
	kind := geometry.KindCircle
	if c.Kind != "" {
		k, err := geometry.ParseKind(string(c.Kind))
		if err != nil {
			return State{}, err
		}
		kind = k
	}

	st := State{
		Shape: geometry.Shape{
			Kind:      kind,
			X:         valueOr(c.X, origin.X),
			Y:         valueOr(c.Y, origin.Y),
			Distance:  valueOr(c.Distance, grid.Distance/2),
			Angle:     valueOr(c.Angle, defaultConeAngle),
			Direction: valueOr(c.Direction, 0),
		},
		BorderColor: stringOr(c.BorderColor, defaultColor),
		FillColor:   stringOr(c.FillColor, defaultColor),
		Label:       c.Label,
	}

	// Rectangles are sized in pixels, everything else in distance units.
	if kind == geometry.KindRectangle {
		st.Width = valueOr(c.Width, grid.Size)
	} else {
		st.Width = valueOr(c.Width, grid.Distance)
	}
	st.Height = valueOr(c.Height, st.Width)

	if pos := c.Snap.Position; pos != geometry.SnapNone && c.X == nil && c.Y == nil {
		st.X, st.Y = grid.Snap(st.X, st.Y, pos)
	}

	if err := c.validate(st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (c Config) validate(st State) error {
	switch {
	case st.Distance < 0:
		return fmt.Errorf("%w: negative distance %v", ErrInvalidConfig, st.Distance)
	case st.Width < 0 && st.Kind != geometry.KindRectangle:
		return fmt.Errorf("%w: negative width %v", ErrInvalidConfig, st.Width)
	case st.Angle < 0 || st.Angle > 360:
		return fmt.Errorf("%w: angle %v outside [0, 360]", ErrInvalidConfig, st.Angle)
	case st.Kind == geometry.KindCone && st.Angle == 0:
		return fmt.Errorf("%w: cone angle must be positive", ErrInvalidConfig)
	case c.DistanceMax > 0 && c.DistanceMin > c.DistanceMax:
		return fmt.Errorf("%w: distanceMin %v exceeds distanceMax %v", ErrInvalidConfig, c.DistanceMin, c.DistanceMax)
	}
	return nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
