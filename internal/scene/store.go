package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Store persists scene documents. Put replaces a document and assigns it the
// next version (1 for a new scene); Get returns ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (*Document, error)
	Put(ctx context.Context, doc *Document) (int, error)
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

// MemoryStore keeps documents in process, encoded as JSON so callers never
// share memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	meta map[string]Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		meta: make(map[string]Summary),
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene %q: %w", id, err)
	}
	return &doc, nil
}

func (m *MemoryStore) Put(ctx context.Context, doc *Document) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("put scene: empty id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *doc
	stored.Version = m.meta[doc.ID].Version + 1
	stored.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("encode scene %q: %w", doc.ID, err)
	}
	m.docs[doc.ID] = data
	m.meta[doc.ID] = stored.Summary()
	return stored.Version, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.meta))
	for _, s := range m.meta {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
