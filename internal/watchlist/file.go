package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every record in one JSON file, rewritten on each change.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

type fileDoc struct {
	Records []Record `json:"records"`
}

func (s *FileStore) load() ([]Record, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc.Records, nil
}

// save writes to a temp file first so a crash never leaves a torn file.
func (s *FileStore) save(records []Record) error {
	b, err := json.MarshalIndent(fileDoc{Records: records}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) List(_ context.Context, kind Kind) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	return filterKind(recs, kind), nil
}

func (s *FileStore) Add(_ context.Context, rec Record) error {
	return s.modify(func(recs []Record) ([]Record, error) {
		if indexOf(recs, rec.ID) >= 0 {
			return nil, ErrDuplicate
		}
		return append(recs, rec), nil
	})
}

func (s *FileStore) Update(_ context.Context, rec Record) error {
	return s.modify(func(recs []Record) ([]Record, error) {
		i := indexOf(recs, rec.ID)
		if i < 0 {
			return nil, ErrNotFound
		}
		recs[i] = rec
		return recs, nil
	})
}

func (s *FileStore) Remove(_ context.Context, id string) error {
	return s.modify(func(recs []Record) ([]Record, error) {
		i := indexOf(recs, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(recs[:i], recs[i+1:]...), nil
	})
}

func (s *FileStore) Clear(_ context.Context, kind Kind) (int, error) {
	n := 0
	err := s.modify(func(recs []Record) ([]Record, error) {
		kept := recs[:0]
		for _, r := range recs {
			if r.Kind == kind {
				n++
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	return n, err
}

func (s *FileStore) modify(fn func([]Record) ([]Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	recs, err = fn(recs)
	if err != nil {
		return err
	}
	return s.save(recs)
}
