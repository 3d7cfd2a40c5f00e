package watchlist

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) List(_ context.Context, kind Kind) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterKind(s.records, kind), nil
}

func (s *MemoryStore) Add(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.records, rec.ID) >= 0 {
		return ErrDuplicate
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.records, rec.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.records[i] = rec
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.records, id)
	if i < 0 {
		return ErrNotFound
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, kind Kind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Record
	n := 0
	for _, r := range s.records {
		if r.Kind == kind {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func filterKind(records []Record, kind Kind) []Record {
	out := []Record{}
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
