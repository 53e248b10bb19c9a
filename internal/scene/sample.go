package scene

import (
	"time"

	"github.com/inamate/crosshair/internal/typeid"
)

// NewSampleDocument builds a small encounter map: a party of tokens, a few
// tiles and an L-shaped wall.
func NewSampleDocument(id string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)
	if id == "" {
		id = typeid.NewSceneID()
	}

	token := func(name string, x, y float64) Object {
		return Object{ID: typeid.NewObjectID(), Type: TypeToken, Name: name, X: x, Y: y, Width: 100, Height: 100}
	}
	tile := func(name string, x, y, w, h float64) Object {
		return Object{ID: typeid.NewObjectID(), Type: TypeTile, Name: name, X: x, Y: y, Width: w, Height: h}
	}

	doc := NewEmptyDocument(id, "Sample Encounter")
	doc.UpdatedAt = now
	doc.Collections[TypeToken] = []Object{
		token("Fighter", 500, 500),
		token("Wizard", 300, 700),
		token("Goblin", 1200, 600),
		token("Goblin Archer", 1500, 400),
	}
	doc.Collections[TypeTile] = []Object{
		tile("Campfire", 1000, 1000, 100, 100),
		tile("Rubble", 1400, 800, 200, 200),
	}
	doc.Collections[TypeDrawing] = []Object{}
	doc.Collections[TypeNote] = []Object{}
	doc.Walls = []Wall{
		{ID: typeid.NewWallID(), C: [4]float64{900, 200, 900, 900}},
		{ID: typeid.NewWallID(), C: [4]float64{900, 900, 1300, 900}},
	}
	return doc
}
