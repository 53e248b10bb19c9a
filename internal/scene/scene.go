// Package scene is the canvas provider for crosshairs: grid dimensions,
// placeable collections, walls and the controlled (selected) set.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/inamate/crosshair/internal/geometry"
)

var (
	ErrNotFound       = errors.New("scene not found")
	ErrObjectNotFound = errors.New("object not found")
)

// Scene is a live, concurrency-safe view of a Document. The scene owns the
// controlled set; placeables only report and toggle their membership.
type Scene struct {
	mu         sync.RWMutex
	doc        *Document
	controlled map[string]bool
}

// New wraps doc. The scene takes ownership of doc.
func New(doc *Document) *Scene {
	if doc.Collections == nil {
		doc.Collections = map[ObjectType][]Object{}
	}
	return &Scene{
		doc:        doc,
		controlled: make(map[string]bool),
	}
}

// Load parses a JSON document into a scene.
func Load(data []byte) (*Scene, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return New(&doc), nil
}

// ID returns the scene id.
func (s *Scene) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ID
}

// Version returns the store version the live document is based on.
func (s *Scene) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Version
}

// SetVersion records the version a save assigned to the live document.
func (s *Scene) SetVersion(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Version = v
}

// Replace swaps in a newer document. Controlled ids that no longer name an
// object are dropped.
func (s *Scene) Replace(doc *Document) {
	if doc.Collections == nil {
		doc.Collections = map[ObjectType][]Object{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	for id := range s.controlled {
		if _, _, ok := s.find(id); !ok {
			delete(s.controlled, id)
		}
	}
}

// Grid returns the scene's grid and distance conversion.
func (s *Scene) Grid() geometry.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Grid
}

// Bounds returns the canvas area of the scene.
func (s *Scene) Bounds() geometry.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return geometry.Rect{Width: float64(s.doc.Width), Height: float64(s.doc.Height)}
}

// Collection returns a copy of the objects of one type, in document order.
func (s *Scene) Collection(typ ObjectType) []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Collections[typ])
}

// Walls returns every wall as a segment.
func (s *Scene) Walls() []geometry.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs := make([]geometry.Segment, len(s.doc.Walls))
	for i, w := range s.doc.Walls {
		segs[i] = w.Segment()
	}
	return segs
}

// Object looks up an object of any type by id.
func (s *Scene) Object(id string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, _, ok := s.find(id)
	return obj, ok
}

// find must be called with the lock held.
func (s *Scene) find(id string) (Object, int, bool) {
	for _, objs := range s.doc.Collections {
		for i, o := range objs {
			if o.ID == id {
				return o, i, true
			}
		}
	}
	return Object{}, -1, false
}

// MoveObject sets an object's top-left corner.
func (s *Scene) MoveObject(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, i, ok := s.find(id)
	if !ok {
		return fmt.Errorf("move %q: %w", id, ErrObjectNotFound)
	}
	obj.X, obj.Y = x, y
	s.doc.Collections[obj.Type][i] = obj
	return nil
}

// HitTest returns the id of the topmost visible token or tile at (x, y),
// or the empty string. Tokens sit above tiles; later objects above earlier ones.
func (s *Scene) HitTest(x, y float64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, typ := range []ObjectType{TypeToken, TypeTile} {
		objs := s.doc.Collections[typ]
		for i := len(objs) - 1; i >= 0; i-- {
			o := objs[i]
			if !o.Hidden && o.Bounds().Contains(x, y) {
				return o.ID
			}
		}
	}
	return ""
}

// SetSelection replaces the controlled set.
func (s *Scene) SetSelection(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controlled = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.controlled[id] = true
	}
}

// Selection returns the controlled ids, sorted.
func (s *Scene) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.controlled))
	for id := range s.controlled {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Scene) isControlled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controlled[id]
}

func (s *Scene) setControlled(id string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.controlled[id] = true
	} else {
		delete(s.controlled, id)
	}
}

// Snapshot returns a deep copy of the underlying document.
func (s *Scene) Snapshot() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := *s.doc
	doc.Collections = make(map[ObjectType][]Object, len(s.doc.Collections))
	for typ, objs := range s.doc.Collections {
		doc.Collections[typ] = slices.Clone(objs)
	}
	doc.Walls = slices.Clone(s.doc.Walls)
	return &doc
}

// Placeable returns a handle to an object that a crosshair can bind to.
func (s *Scene) Placeable(id string) (*Placeable, error) {
	if _, ok := s.Object(id); !ok {
		return nil, fmt.Errorf("placeable %q: %w", id, ErrObjectNotFound)
	}
	return &Placeable{scene: s, id: id}, nil
}

// Placeable is a live handle to one object. Position and center are read
// from the scene on every call, so a tracked crosshair follows a moving token.
type Placeable struct {
	scene *Scene
	id    string
}

func (p *Placeable) ID() string { return p.id }

func (p *Placeable) Position() geometry.Point {
	obj, _ := p.scene.Object(p.id)
	return geometry.Point{X: obj.X, Y: obj.Y}
}

func (p *Placeable) Center() geometry.Point {
	obj, _ := p.scene.Object(p.id)
	return obj.Center()
}

func (p *Placeable) Controlled() bool { return p.scene.isControlled(p.id) }
func (p *Placeable) Release()         { p.scene.setControlled(p.id, false) }
func (p *Placeable) Control()         { p.scene.setControlled(p.id, true) }
