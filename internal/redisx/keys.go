package redisx

import "time"

const (
	// Cache entry: cache:{kind}:{id} -> {"payload": ..., "inserted_at": ...}
	KeyCache = "cache:%s:%s"

	// Once-only discount usage: usage:rule:{merchant}:{rule} -> first-use timestamp
	KeyRuleUsage = "usage:rule:%s:%s"

	// Consumed events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLInventorySnapshot = 5 * time.Minute
	TTLExchangeRate      = 30 * time.Minute
	TTLProduct           = 30 * time.Minute
	TTLDedup             = 24 * time.Hour
)
