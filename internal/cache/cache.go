package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrMiss = errors.New("cache: miss")

// Key identifies a cached entity.
type Key struct {
	Kind string
	ID   string
}

func (k Key) String() string { return k.Kind + ":" + k.ID }

type Entry struct {
	Payload    []byte    `json:"payload"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Backend stores entries. Get returns ErrMiss for absent or expired keys.
type Backend interface {
	Get(ctx context.Context, key Key) (Entry, error)
	Set(ctx context.Context, key Key, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
	Keys(ctx context.Context, kind string) ([]Key, error)
}

type Loader func(ctx context.Context) ([]byte, error)

type Cache struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group
}

func New(backend Backend, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, logger: logger, now: time.Now}
}

// GetOrRefresh returns the cached payload if it is younger than ttl, otherwise
// runs loader and stores its result. Concurrent refreshes of one key share a
// single loader call. Backend failures degrade to calling loader. fresh is true
// when the payload came from loader.
func (c *Cache) GetOrRefresh(ctx context.Context, key Key, ttl time.Duration, loader Loader) (payload []byte, fresh bool, err error) {
	e, err := c.backend.Get(ctx, key)
	switch {
	case err == nil && c.now().Sub(e.InsertedAt) < ttl:
		return e.Payload, false, nil
	case err != nil && !errors.Is(err, ErrMiss):
		c.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		p, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Set(ctx, key, Entry{Payload: p, InsertedAt: c.now()}, ttl); err != nil {
			c.logger.Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), true, nil
}

func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.backend.Delete(ctx, key)
}

type ItemStat struct {
	Key        string    `json:"key"`
	InsertedAt time.Time `json:"inserted_at"`
	Size       int       `json:"size"`
}

type Stats struct {
	Kind      string     `json:"kind"`
	Count     int        `json:"count"`
	TotalSize int        `json:"total_size"`
	Items     []ItemStat `json:"items"`
}

func (c *Cache) Stats(ctx context.Context, kind string) (Stats, error) {
	keys, err := c.backend.Keys(ctx, kind)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Kind: kind, Items: []ItemStat{}}
	for _, k := range keys {
		e, err := c.backend.Get(ctx, k)
		if errors.Is(err, ErrMiss) {
			continue
		}
		if err != nil {
			return Stats{}, err
		}
		st.Items = append(st.Items, ItemStat{Key: k.String(), InsertedAt: e.InsertedAt, Size: len(e.Payload)})
		st.TotalSize += len(e.Payload)
	}
	sort.Slice(st.Items, func(i, j int) bool { return st.Items[i].Key < st.Items[j].Key })
	st.Count = len(st.Items)
	return st, nil
}

// Clear drops every entry of kind and returns how many were removed.
func (c *Cache) Clear(ctx context.Context, kind string) (int, error) {
	keys, err := c.backend.Keys(ctx, kind)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := c.backend.Delete(ctx, k); err != nil {
			return 0, fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return len(keys), nil
}

// GetOrRefreshJSON is GetOrRefresh for JSON-encoded values.
func GetOrRefreshJSON[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var out T
	p, fresh, err := c.GetOrRefresh(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(p, &out); err != nil {
		return out, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, fresh, nil
}
