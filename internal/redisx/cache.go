package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Cache is a cache.Backend stored in Redis; expiry is the Redis TTL.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func cacheKey(k cache.Key) string { return fmt.Sprintf(KeyCache, k.Kind, k.ID) }

func (c *Cache) Get(ctx context.Context, key cache.Key) (cache.Entry, error) {
	b, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, cache.ErrMiss
	}
	if err != nil {
		return cache.Entry{}, err
	}
	var e cache.Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, nil
}

func (c *Cache) Set(ctx context.Context, key cache.Key, e cache.Entry, ttl time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(key), b, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key cache.Key) error {
	return c.rdb.Del(ctx, cacheKey(key)).Err()
}

func (c *Cache) Keys(ctx context.Context, kind string) ([]cache.Key, error) {
	prefix := fmt.Sprintf(KeyCache, kind, "")
	raw, err := scanKeys(ctx, c.rdb, prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]cache.Key, 0, len(raw))
	for _, k := range raw {
		out = append(out, cache.Key{Kind: kind, ID: strings.TrimPrefix(k, prefix)})
	}
	return out, nil
}
