package geometry

import "math"

// Point is a position in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an axis-aligned rectangle in canvas pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect. Edges count as inside.
func (r Rect) Contains(x, y float64) bool {
	r = r.normalize()
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Bounds returns the rect itself with negative sizes flipped.
func (r Rect) Bounds() Rect {
	return r.normalize()
}

// normalize flips negative widths/heights so the origin is the top-left corner.
// A rectangle dragged up or left from its origin has negative size.
func (r Rect) normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Segment is a line segment between two points, used for walls.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Intersects reports whether two segments share at least one point.
func (s Segment) Intersects(o Segment) bool {
	d1 := orientation(o.A, o.B, s.A)
	d2 := orientation(o.A, o.B, s.B)
	d3 := orientation(s.A, s.B, o.A)
	d4 := orientation(s.A, s.B, o.B)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(o.A, o.B, s.A):
		return true
	case d2 == 0 && onSegment(o.A, o.B, s.B):
		return true
	case d3 == 0 && onSegment(s.A, s.B, o.A):
		return true
	case d4 == 0 && onSegment(s.A, s.B, o.B):
		return true
	}
	return false
}

// Length returns the euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(s.B.X-s.A.X, s.B.Y-s.A.Y)
}

// orientation returns the cross product of (b-a) x (c-a).
func orientation(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// onSegment assumes c is collinear with a-b.
func onSegment(a, b, c Point) bool {
	return c.X >= min(a.X, b.X) && c.X <= max(a.X, b.X) &&
		c.Y >= min(a.Y, b.Y) && c.Y <= max(a.Y, b.Y)
}
