package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in a map. It is used for dry runs and tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]Entry

	// FailWith, when set, makes every read and write fail with this error.
	FailWith error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]Entry)}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LoadAll implements Backend.
func (b *MemoryBackend) LoadAll(_ context.Context) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.FailWith != nil {
		return nil, b.FailWith
	}

	entries := make([]Entry, 0, len(b.items))
	for _, e := range b.items {
		entries = append(entries, e.clone())
	}
	return entries, nil
}

// Upsert implements Backend.
func (b *MemoryBackend) Upsert(_ context.Context, e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWith != nil {
		return b.FailWith
	}
	b.items[e.ID] = e.clone()
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWith != nil {
		return b.FailWith
	}
	for _, id := range ids {
		delete(b.items, id)
	}
	return nil
}

// Len returns the number of persisted entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Get returns the persisted copy of an entry.
func (b *MemoryBackend) Get(id string) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.items[id]
	return e.clone(), ok
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	return nil
}
