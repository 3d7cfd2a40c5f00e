package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
)

// Gender filters a product search; Backpack disables the filter.
type Gender string

const (
	GenderMale     Gender = "MALE"
	GenderFemale   Gender = "FEMALE"
	GenderBackpack Gender = "BACKPACK"
)

// Source supplies already-structured product facts. HTML parsing lives behind it.
type Source interface {
	SearchProductIDs(ctx context.Context, model string, gender Gender) ([]string, error)
}

func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case "", GenderMale, GenderFemale, GenderBackpack:
		return g, nil
	}
	return "", &ValidationError{Field: "gender", Reason: "must be MALE, FEMALE or BACKPACK"}
}

const (
	SearchCacheKind  = "product"
	DefaultSearchTTL = 30 * time.Minute
)

// Searcher caches product searches per normalized model and gender.
type Searcher struct {
	Source Source
	Cache  *cache.Cache
	TTL    time.Duration
}

// Search returns product IDs for model. cached is true when no upstream
// request was made.
func (s *Searcher) Search(ctx context.Context, model string, gender Gender) (ids []string, cached bool, err error) {
	norm := NormalizeModel(model)
	if norm == "" {
		return nil, false, &ValidationError{Field: "model", Reason: "empty"}
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	key := cache.Key{Kind: SearchCacheKind, ID: string(gender) + ":" + norm}
	ids, fresh, err := cache.GetOrRefreshJSON(ctx, s.Cache, key, ttl, func(ctx context.Context) ([]string, error) {
		ids, err := s.Source.SearchProductIDs(ctx, strings.TrimSpace(model), gender)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	})
	if err != nil {
		return nil, false, err
	}
	return ids, !fresh, nil
}
