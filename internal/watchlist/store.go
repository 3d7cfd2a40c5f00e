package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
)

type Kind string

const (
	KindFavorite Kind = "favorite"
	KindPlan     Kind = "plan"
)

var (
	ErrDuplicate        = errors.New("already in the list")
	ErrNotFound         = errors.New("record not found")
	ErrPlannedElsewhere = errors.New("product is planned at another store")
)

// Record is one saved product. StoreName is only set for plan records.
type Record struct {
	ID        string                 `json:"id"`
	Kind      Kind                   `json:"kind"`
	StoreName string                 `json:"store_name,omitempty"`
	Product   catalog.WatchedProduct `json:"product"`
	AddedAt   time.Time              `json:"added_at"`
}

// Store persists records. Add rejects a record whose ID exists with
// ErrDuplicate; Update and Remove return ErrNotFound for unknown IDs. Product
// level de-duplication is done by Service, not by stores.
type Store interface {
	List(ctx context.Context, kind Kind) ([]Record, error)
	Add(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context, kind Kind) (int, error)
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend string
	Path    string  // file backend
	DB      *sql.DB // postgres backend
}

// Open returns the store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file backend needs a path")
		}
		return NewFileStore(opts.Path), nil
	case BackendPostgres:
		if opts.DB == nil {
			return nil, fmt.Errorf("postgres backend needs a database")
		}
		return NewPostgresStore(opts.DB), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
