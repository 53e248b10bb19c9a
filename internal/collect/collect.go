// Package collect resolves which placeables fall inside a crosshair's area.
package collect

import (
	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/geometry"
	"github.com/inamate/crosshair/internal/scene"
)

// Provider supplies the grid and the placeable collections of a canvas.
type Provider interface {
	Grid() geometry.Grid
	Collection(typ scene.ObjectType) []scene.Object
}

// Filter reports whether obj is collected. region is nil when the state's
// shape could not be built.
type Filter func(obj scene.Object, st crosshair.State, region geometry.Region) bool

// CenterInside is the default filter: the object's center lies in the region.
func CenterInside(obj scene.Object, _ crosshair.State, region geometry.Region) bool {
	return geometry.ContainsCenter(region, obj)
}

// Result maps each requested type to its matches, in request order.
type Result struct {
	keys    []scene.ObjectType
	matches map[scene.ObjectType][]scene.Object
}

// Keys returns the requested types in the order they were asked for.
func (r *Result) Keys() []scene.ObjectType {
	return append([]scene.ObjectType(nil), r.keys...)
}

// Get returns the matches for typ. The slice is empty, never nil, for
// requested types with no match.
func (r *Result) Get(typ scene.ObjectType) ([]scene.Object, bool) {
	objs, ok := r.matches[typ]
	return objs, ok
}

// Len returns the number of requested types.
func (r *Result) Len() int { return len(r.keys) }

// Collect returns the objects of one type accepted by filter, in the
// provider's order. A nil filter means CenterInside.
func Collect(p Provider, st crosshair.State, typ scene.ObjectType, filter Filter) []scene.Object {
	region := buildRegion(p, st)
	return collect(p, st, typ, filter, region)
}

// CollectTypes runs Collect for every type against a single region.
// Duplicate types are collapsed to their first occurrence.
func CollectTypes(p Provider, st crosshair.State, types []scene.ObjectType, filter Filter) *Result {
	region := buildRegion(p, st)
	res := &Result{matches: make(map[scene.ObjectType][]scene.Object, len(types))}
	for _, typ := range types {
		if _, seen := res.matches[typ]; seen {
			continue
		}
		res.keys = append(res.keys, typ)
		res.matches[typ] = collect(p, st, typ, filter, region)
	}
	return res
}

func collect(p Provider, st crosshair.State, typ scene.ObjectType, filter Filter, region geometry.Region) []scene.Object {
	if filter == nil {
		filter = CenterInside
	}
	out := []scene.Object{}
	for _, obj := range p.Collection(typ) {
		if filter(obj, st, region) {
			out = append(out, obj)
		}
	}
	return out
}

func buildRegion(p Provider, st crosshair.State) geometry.Region {
	region, err := geometry.BuildRegion(st.Shape, p.Grid())
	if err != nil {
		return nil
	}
	return region
}
