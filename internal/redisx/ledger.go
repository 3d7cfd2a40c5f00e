package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageLedger remembers once-only discount rules that were already redeemed.
type UsageLedger struct {
	rdb *redis.Client
}

func NewUsageLedger(rdb *redis.Client) *UsageLedger { return &UsageLedger{rdb: rdb} }

func (l *UsageLedger) Used(ctx context.Context, merchant, rule string) (bool, error) {
	return Exists(ctx, l.rdb, fmt.Sprintf(KeyRuleUsage, merchant, rule))
}

// MarkUsed records the first use; later calls keep the original timestamp.
func (l *UsageLedger) MarkUsed(ctx context.Context, merchant, rule string) error {
	key := fmt.Sprintf(KeyRuleUsage, merchant, rule)
	return l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), 0).Err()
}
