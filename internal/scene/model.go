package scene

import (
	"github.com/inamate/crosshair/internal/geometry"
)

// Document is the persisted form of a scene: its grid, its placeable
// objects grouped by collection name, and its walls.
type Document struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Version     int                     `json:"version"`
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
	Background  string                  `json:"background"`
	Grid        geometry.Grid           `json:"grid"`
	Collections map[ObjectType][]Object `json:"collections"`
	Walls       []Wall                  `json:"walls"`
	UpdatedAt   string                  `json:"updatedAt"`
}

// ObjectType names a collection of placeables.
type ObjectType string

const (
	TypeToken   ObjectType = "Token"
	TypeTile    ObjectType = "Tile"
	TypeDrawing ObjectType = "Drawing"
	TypeNote    ObjectType = "Note"
)

// Object is a placeable on the canvas. X/Y is the top-left corner in pixels.
type Object struct {
	ID     string     `json:"id"`
	Type   ObjectType `json:"type"`
	Name   string     `json:"name,omitempty"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Hidden bool       `json:"hidden,omitempty"`
}

// Bounds returns the object's footprint.
func (o Object) Bounds() geometry.Rect {
	return geometry.Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// Center returns the middle of the object's footprint.
func (o Object) Center() geometry.Point {
	return o.Bounds().Center()
}

// Wall blocks movement and sight between its two endpoints [x0, y0, x1, y1].
type Wall struct {
	ID string     `json:"id"`
	C  [4]float64 `json:"c"`
}

// Segment returns the wall as a geometry segment.
func (w Wall) Segment() geometry.Segment {
	return geometry.Segment{
		A: geometry.Point{X: w.C[0], Y: w.C[1]},
		B: geometry.Point{X: w.C[2], Y: w.C[3]},
	}
}

// Summary is the listing form of a document.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updatedAt"`
}

// Summary returns the listing form of d.
func (d *Document) Summary() Summary {
	return Summary{ID: d.ID, Name: d.Name, Version: d.Version, UpdatedAt: d.UpdatedAt}
}

// NewEmptyDocument creates an empty scene with the default grid.
func NewEmptyDocument(id, name string) *Document {
	return &Document{
		ID:          id,
		Name:        name,
		Version:     1,
		Width:       4000,
		Height:      3000,
		Background:  "#1a1a2e",
		Grid:        geometry.DefaultGrid(),
		Collections: map[ObjectType][]Object{},
		Walls:       []Wall{},
	}
}
