package stock

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// Source is one upstream store-lookup endpoint, queried per SKU.
type Source interface {
	Lookup(ctx context.Context, sku string) ([]Entry, error)
}

type SourceFunc func(ctx context.Context, sku string) ([]Entry, error)

func (f SourceFunc) Lookup(ctx context.Context, sku string) ([]Entry, error) { return f(ctx, sku) }

type Entry struct {
	StoreName string   `json:"store_name"`
	Stock     RawStock `json:"usable_stock"`
}

// RawStock is the upstream stock value, number or string.
type RawStock string

func (r *RawStock) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RawStock(s)
		return nil
	}
	*r = RawStock(b)
	return nil
}

func (r RawStock) MarshalJSON() ([]byte, error) {
	if n, ok := r.Count(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	if r == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// Count reports false for anything but a non-negative decimal integer.
func (r RawStock) Count() (int, bool) {
	s := string(r)
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func Count(n int) RawStock { return RawStock(strconv.Itoa(n)) }
