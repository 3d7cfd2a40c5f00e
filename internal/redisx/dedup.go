package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup records event IDs a consumer has already handled.
type Dedup struct {
	rdb      *redis.Client
	consumer string
}

func NewDedup(rdb *redis.Client, consumer string) *Dedup {
	return &Dedup{rdb: rdb, consumer: consumer}
}

// FirstSeen marks eventID and reports whether this was its first delivery.
func (d *Dedup) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID), "1", TTLDedup).Result()
}
