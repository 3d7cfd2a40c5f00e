package cache

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	entry    Entry
	deadline time.Time
}

// MemoryBackend is a process-local Backend.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[Key]memItem
	now   func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: map[Key]memItem{}, now: time.Now}
}

func (m *MemoryBackend) Get(_ context.Context, key Key) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return Entry{}, ErrMiss
	}
	if !it.deadline.IsZero() && !m.now().Before(it.deadline) {
		delete(m.items, key)
		return Entry{}, ErrMiss
	}
	return it.entry, nil
}

func (m *MemoryBackend) Set(_ context.Context, key Key, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memItem{entry: e}
	if ttl > 0 {
		it.deadline = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context, kind string) ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Key
	for k := range m.items {
		if k.Kind == kind {
			out = append(out, k)
		}
	}
	return out, nil
}
