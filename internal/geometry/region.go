package geometry

import "math"

// Region is an immutable shape supporting point-containment queries.
// Implementations are Circle, Rect and Polygon.
type Region interface {
	Contains(x, y float64) bool
	Bounds() Rect
	Center() Point
}

// Circle is a disk in pixel space.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c Circle) Contains(x, y float64) bool {
	if c.Radius <= 0 {
		return false
	}
	dx := x - c.X
	dy := y - c.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// Bounds returns the square enclosing the circle.
func (c Circle) Bounds() Rect {
	return Rect{X: c.X - c.Radius, Y: c.Y - c.Radius, Width: 2 * c.Radius, Height: 2 * c.Radius}
}

// Center returns the circle's center.
func (c Circle) Center() Point {
	return Point{X: c.X, Y: c.Y}
}

// Polygon is a closed polygon stored as alternating x/y coordinates.
// The last point may repeat the first.
type Polygon struct {
	Points []float64 `json:"points"`
}

// vertices returns the distinct corner points, dropping a repeated closing point.
func (p Polygon) vertices() []Point {
	n := len(p.Points) / 2
	pts := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, Point{X: p.Points[2*i], Y: p.Points[2*i+1]})
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// Contains uses the even-odd rule. Points on an edge count as inside so the
// apex of a cone contains its own origin.
func (p Polygon) Contains(x, y float64) bool {
	pts := p.vertices()
	n := len(pts)
	if n < 3 {
		return false
	}

	pt := Point{X: x, Y: y}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pts[j], pts[i]
		if orientation(a, b, pt) == 0 && onSegment(a, b, pt) {
			return true
		}
		if (b.Y > y) != (a.Y > y) {
			xCross := (a.X-b.X)*(y-b.Y)/(a.Y-b.Y) + b.X
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() Rect {
	pts := p.vertices()
	if len(pts) == 0 {
		return Rect{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range pts {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Center returns the average of the polygon's vertices. Cone and ray
// templates are convex, so this always lies inside them.
func (p Polygon) Center() Point {
	pts := p.vertices()
	if len(pts) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, pt := range pts {
		sx += pt.X
		sy += pt.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}
