package scene

import (
	"context"
	"errors"
	"testing"
)

func testScene() *Scene {
	doc := NewEmptyDocument("scene_test", "Test")
	doc.Collections[TypeToken] = []Object{
		{ID: "obj_a", Type: TypeToken, X: 0, Y: 0, Width: 100, Height: 100},
		{ID: "obj_b", Type: TypeToken, X: 50, Y: 50, Width: 100, Height: 100},
		{ID: "obj_hidden", Type: TypeToken, X: 50, Y: 50, Width: 100, Height: 100, Hidden: true},
	}
	doc.Collections[TypeTile] = []Object{
		{ID: "tile_a", Type: TypeTile, X: 400, Y: 400, Width: 200, Height: 200},
	}
	doc.Walls = []Wall{{ID: "wall_a", C: [4]float64{0, 0, 10, 10}}}
	return New(doc)
}

func TestHitTestTopmostVisible(t *testing.T) {
	s := testScene()

	tests := []struct {
		x, y float64
		want string
	}{
		{10, 10, "obj_a"},
		{75, 75, "obj_b"},
		{500, 500, "tile_a"},
		{3000, 3000, ""},
	}
	for _, tt := range tests {
		if got := s.HitTest(tt.x, tt.y); got != tt.want {
			t.Errorf("HitTest(%v, %v) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestCollectionReturnsCopy(t *testing.T) {
	s := testScene()

	objs := s.Collection(TypeToken)
	objs[0].X = 999
	if obj, _ := s.Object("obj_a"); obj.X != 0 {
		t.Fatalf("scene modified through collection copy: x = %v", obj.X)
	}
	if got := s.Collection(TypeNote); len(got) != 0 {
		t.Fatalf("missing collection = %v, want empty", got)
	}
}

func TestPlaceableFollowsScene(t *testing.T) {
	s := testScene()
	s.SetSelection([]string{"obj_a"})

	p, err := s.Placeable("obj_a")
	if err != nil {
		t.Fatalf("Placeable: %v", err)
	}
	if c := p.Center(); c.X != 50 || c.Y != 50 {
		t.Fatalf("center = %+v, want 50,50", c)
	}

	if err := s.MoveObject("obj_a", 100, 200); err != nil {
		t.Fatalf("MoveObject: %v", err)
	}
	if c := p.Center(); c.X != 150 || c.Y != 250 {
		t.Fatalf("center after move = %+v, want 150,250", c)
	}

	if !p.Controlled() {
		t.Fatal("expected placeable to be controlled")
	}
	p.Release()
	if p.Controlled() || len(s.Selection()) != 0 {
		t.Fatalf("selection after release = %v", s.Selection())
	}
	p.Control()
	if sel := s.Selection(); len(sel) != 1 || sel[0] != "obj_a" {
		t.Fatalf("selection after control = %v", sel)
	}
}

func TestPlaceableUnknown(t *testing.T) {
	s := testScene()
	if _, err := s.Placeable("obj_missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
	if err := s.MoveObject("obj_missing", 0, 0); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestWallsAsSegments(t *testing.T) {
	segs := testScene().Walls()
	if len(segs) != 1 || segs[0].B.X != 10 || segs[0].B.Y != 10 {
		t.Fatalf("walls = %+v", segs)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := testScene()
	snap := s.Snapshot()
	snap.Collections[TypeToken][0].X = 999
	snap.Walls[0].C[0] = 999

	if obj, _ := s.Object("obj_a"); obj.X != 0 {
		t.Fatal("snapshot shares token storage with scene")
	}
	if s.Walls()[0].A.X != 0 {
		t.Fatal("snapshot shares wall storage with scene")
	}
}

func TestReplaceSwapsDocument(t *testing.T) {
	s := testScene()
	s.SetSelection([]string{"obj_a", "obj_b"})

	doc := NewEmptyDocument("scene_test", "Renamed")
	doc.Version = 4
	doc.Collections[TypeToken] = []Object{{ID: "obj_a", Type: TypeToken, Width: 100, Height: 100}}
	s.Replace(doc)

	if s.Version() != 4 || len(s.Walls()) != 0 {
		t.Fatalf("version = %d walls = %d, want 4 and 0", s.Version(), len(s.Walls()))
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != "obj_a" {
		t.Fatalf("selection = %v, want [obj_a]", sel)
	}

	s.SetVersion(5)
	if s.Snapshot().Version != 5 {
		t.Fatal("SetVersion not reflected in snapshot")
	}
}

func TestSampleDocumentHasCollections(t *testing.T) {
	doc := NewSampleDocument("")
	if doc.ID == "" {
		t.Fatal("expected generated scene id")
	}
	if len(doc.Collections[TypeToken]) == 0 || len(doc.Collections[TypeTile]) == 0 {
		t.Fatalf("collections = %+v", doc.Collections)
	}
	if len(doc.Walls) == 0 {
		t.Fatal("expected walls")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	if _, err := store.Get(ctx, "scene_x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	doc := NewEmptyDocument("scene_x", "First")
	v, err := store.Put(ctx, doc)
	if err != nil || v != 1 {
		t.Fatalf("Put = %d, %v; want 1, nil", v, err)
	}
	doc.Name = "Second"
	if v, _ = store.Put(ctx, doc); v != 2 {
		t.Fatalf("second Put version = %d, want 2", v)
	}

	got, err := store.Get(ctx, "scene_x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Second" || got.Version != 2 || got.UpdatedAt == "" {
		t.Fatalf("got = %+v", got.Summary())
	}

	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].ID != "scene_x" {
		t.Fatalf("list = %+v", list)
	}

	if _, err := store.Put(ctx, &Document{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
