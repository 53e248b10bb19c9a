package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/inamate/crosshair/internal/scene"
)

// openTestStore connects to TEST_DATABASE_URL, skipping when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewPoolRejectsBadURL(t *testing.T) {
	if _, err := NewPool(context.Background(), "://not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPutGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	doc := scene.NewSampleDocument("")
	first, err := store.Put(ctx, doc)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, doc)
	if err != nil {
		t.Fatalf("put again: %v", err)
	}
	if second != first+1 {
		t.Fatalf("versions = %d then %d", first, second)
	}

	got, err := store.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != second || len(got.Walls) != len(doc.Walls) {
		t.Fatalf("got = %+v", got.Summary())
	}

	if _, err := store.Get(ctx, "scene_missing"); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("err = %v, want scene.ErrNotFound", err)
	}
}
