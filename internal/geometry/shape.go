// Package geometry turns crosshair parameters into regions that answer
// point-containment queries. It has no dependencies on the rest of the module.
package geometry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedShapeKind is returned when a shape kind is not one of the
// four template kinds.
var ErrUnsupportedShapeKind = errors.New("unsupported shape kind")

// Kind selects which template shape a crosshair draws.
type Kind string

const (
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rect"
	KindCone      Kind = "cone"
	KindRay       Kind = "ray"
)

// ParseKind validates a kind name. "rectangle" is accepted as an alias of "rect".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCircle, KindRectangle, KindCone, KindRay:
		return k, nil
	case "rectangle":
		return KindRectangle, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedShapeKind, s)
	}
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// Shape is the geometric part of a crosshair.
//
// Which fields matter depends on Kind: circles use Distance; rectangles use
// Width and Height in pixels; cones use Distance, Angle and Direction; rays
// use Distance, Width and Direction. Distance (and ray Width) are in scene
// distance units. Angles are in degrees, clockwise from +x.
type Shape struct {
	Kind      Kind    `json:"t" yaml:"t"`
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Distance  float64 `json:"distance" yaml:"distance"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Angle     float64 `json:"angle" yaml:"angle"`
	Direction float64 `json:"direction" yaml:"direction"`
}

// Origin returns the anchor point of the shape.
func (s Shape) Origin() Point {
	return Point{X: s.X, Y: s.Y}
}

// BuildRegion converts shape parameters into a testable region.
func BuildRegion(s Shape, grid Grid) (Region, error) {
	ratio := grid.DistancePixels()

	switch s.Kind {
	case KindCircle:
		return Circle{X: s.X, Y: s.Y, Radius: s.Distance * ratio}, nil

	case KindRectangle:
		return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}, nil

	case KindCone:
		offsets := ConeShape(s.Distance*ratio, s.Direction, s.Angle, grid.ConeStyle)
		return translatePolygon(offsets, s.X, s.Y), nil

	case KindRay:
		offsets := RayShape(s.Distance*ratio, s.Direction, s.Width*ratio)
		return translatePolygon(offsets, s.X, s.Y), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShapeKind, s.Kind)
	}
}

// translatePolygon moves alternating x/y offsets to an origin.
func translatePolygon(offsets []float64, x, y float64) Polygon {
	points := make([]float64, len(offsets))
	for i, p := range offsets {
		if i%2 == 0 {
			points[i] = p + x
		} else {
			points[i] = p + y
		}
	}
	return Polygon{Points: points}
}

// ContainsPoint delegates to the region's own containment test.
func ContainsPoint(region Region, x, y float64) bool {
	if region == nil {
		return false
	}
	return region.Contains(x, y)
}

// Centered is anything with a center point, such as a token or tile.
type Centered interface {
	Center() Point
}

// ContainsCenter tests an object's center. A nil region means there is no
// active crosshair and is reported as not contained.
func ContainsCenter(region Region, obj Centered) bool {
	if region == nil || obj == nil {
		return false
	}
	c := obj.Center()
	return region.Contains(c.X, c.Y)
}
