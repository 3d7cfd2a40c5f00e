package watchlist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service applies the list rules on top of a Store: one entry per product
// identity in favorites, and each product planned at no more than one store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	// mu serialises check-then-add sequences.
	mu sync.Mutex
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) newRecord(kind Kind, store string, p catalog.WatchedProduct) Record {
	rec := Record{ID: uuid.NewString(), Kind: kind, StoreName: store, Product: p, AddedAt: s.now().UTC()}
	rec.Product.ID = rec.ID
	rec.Product.AddedAt = rec.AddedAt
	return rec
}

func validateProduct(p catalog.WatchedProduct) error {
	if strings.TrimSpace(p.ProductModel) == "" {
		return &catalog.ValidationError{Field: "product_model", Reason: "empty"}
	}
	if p.SKU != "" {
		if err := catalog.ValidateSKU(p.SKU); err != nil {
			return err
		}
	}
	return nil
}

// ---- favorites ----

func (s *Service) FavoriteRecords(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx, KindFavorite)
}

func (s *Service) Favorites(ctx context.Context) ([]catalog.WatchedProduct, error) {
	recs, err := s.store.List(ctx, KindFavorite)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.WatchedProduct, 0, len(recs))
	for _, r := range recs {
		p := r.Product
		p.ID, p.AddedAt = r.ID, r.AddedAt
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) AddFavorite(ctx context.Context, p catalog.WatchedProduct) (Record, error) {
	if err := validateProduct(p); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.List(ctx, KindFavorite)
	if err != nil {
		return Record{}, err
	}
	for _, r := range existing {
		if catalog.SameIdentity(r.Product, p) {
			return Record{}, ErrDuplicate
		}
	}
	rec := s.newRecord(KindFavorite, "", p)
	if err := s.store.Add(ctx, rec); err != nil {
		return Record{}, err
	}
	s.logger.Info("favorite added", zap.String("id", rec.ID), zap.String("product", p.ProductKey()))
	return rec, nil
}

func (s *Service) RemoveFavorite(ctx context.Context, id string) error {
	if _, err := s.find(ctx, KindFavorite, id); err != nil {
		return err
	}
	return s.store.Remove(ctx, id)
}

func (s *Service) ClearFavorites(ctx context.Context) (int, error) {
	return s.store.Clear(ctx, KindFavorite)
}

// AnnotateDomesticPrice sets or, with an empty price, clears the domestic
// price of a favorite. It is the only change allowed after a product is saved.
func (s *Service) AnnotateDomesticPrice(ctx context.Context, id string, price catalog.RawPrice) (Record, error) {
	if !price.IsZero() {
		v, err := pricing.ParsePrice(price)
		if err != nil || !v.IsPositive() {
			return Record{}, &catalog.ValidationError{Field: "domestic_price", Reason: "must be a positive number"}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(ctx, KindFavorite, id)
	if err != nil {
		return Record{}, err
	}
	rec.Product.DomesticPrice = price
	if err := s.store.Update(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) find(ctx context.Context, kind Kind, id string) (Record, error) {
	recs, err := s.store.List(ctx, kind)
	if err != nil {
		return Record{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// ---- purchase plans ----

// AddToPlan adds p to the plan of store. A product already planned at another
// store yields ErrPlannedElsewhere; one already in this store's plan yields
// ErrDuplicate.
func (s *Service) AddToPlan(ctx context.Context, store string, p catalog.WatchedProduct) (Record, error) {
	store = strings.TrimSpace(store)
	if store == "" {
		return Record{}, &catalog.ValidationError{Field: "store_name", Reason: "empty"}
	}
	if err := validateProduct(p); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.store.List(ctx, KindPlan)
	if err != nil {
		return Record{}, err
	}
	for _, r := range plans {
		if !catalog.SameIdentity(r.Product, p) {
			continue
		}
		if r.StoreName != store {
			return Record{}, fmt.Errorf("%w: %s", ErrPlannedElsewhere, r.StoreName)
		}
		return Record{}, ErrDuplicate
	}
	rec := s.newRecord(KindPlan, store, p)
	if err := s.store.Add(ctx, rec); err != nil {
		return Record{}, err
	}
	s.logger.Info("plan item added", zap.String("store", store), zap.String("product", p.ProductKey()))
	return rec, nil
}

func (s *Service) PlanFor(ctx context.Context, store string) ([]Record, error) {
	plans, err := s.store.List(ctx, KindPlan)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range plans {
		if r.StoreName == store {
			out = append(out, r)
		}
	}
	return out, nil
}

type StorePlan struct {
	StoreName string   `json:"store_name"`
	Items     []Record `json:"items"`
}

// PlansByStore groups plan items by store, stores ordered by first addition.
func (s *Service) PlansByStore(ctx context.Context) ([]StorePlan, error) {
	plans, err := s.store.List(ctx, KindPlan)
	if err != nil {
		return nil, err
	}
	out := []StorePlan{}
	idx := map[string]int{}
	for _, r := range plans {
		i, ok := idx[r.StoreName]
		if !ok {
			i = len(out)
			idx[r.StoreName] = i
			out = append(out, StorePlan{StoreName: r.StoreName})
		}
		out[i].Items = append(out[i].Items, r)
	}
	return out, nil
}

func (s *Service) RemovePlanItem(ctx context.Context, id string) error {
	if _, err := s.find(ctx, KindPlan, id); err != nil {
		return err
	}
	return s.store.Remove(ctx, id)
}

// ClearPlan removes every item planned at store and returns how many there were.
func (s *Service) ClearPlan(ctx context.Context, store string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.PlanFor(ctx, store)
	if err != nil {
		return 0, err
	}
	for i, r := range items {
		if err := s.store.Remove(ctx, r.ID); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

// FindPlan reports which store p is planned at, if any.
func (s *Service) FindPlan(ctx context.Context, p catalog.WatchedProduct) (string, bool, error) {
	plans, err := s.store.List(ctx, KindPlan)
	if err != nil {
		return "", false, err
	}
	for _, r := range plans {
		if catalog.SameIdentity(r.Product, p) {
			return r.StoreName, true, nil
		}
	}
	return "", false, nil
}

type PlanTotals struct {
	StoreName string `json:"store_name"`
	Items     int    `json:"items"`
	// TotalKRW leaves out items listed in Excluded.
	TotalKRW          decimal.Decimal     `json:"total_krw"`
	Excluded          []pricing.Exclusion `json:"excluded,omitempty"`
	DomesticCNY       decimal.Decimal     `json:"domestic_cny"`
	HasAllDomestic    bool                `json:"has_all_domestic"`
	DomesticAvailable int                 `json:"domestic_available"`
}

func (s *Service) PlanTotals(ctx context.Context, store string) (PlanTotals, error) {
	items, err := s.PlanFor(ctx, store)
	if err != nil {
		return PlanTotals{}, err
	}
	products := make([]catalog.WatchedProduct, len(items))
	for i, r := range items {
		products[i] = r.Product
	}
	t := PlanTotals{StoreName: store, Items: len(items), DomesticCNY: decimal.Zero}
	t.TotalKRW, t.Excluded = pricing.Sum(products)
	for _, p := range products {
		v, err := pricing.ParsePrice(p.DomesticPrice)
		if err != nil || !v.IsPositive() {
			continue
		}
		t.DomesticCNY = t.DomesticCNY.Add(v)
		t.DomesticAvailable++
	}
	t.HasAllDomestic = len(products) > 0 && t.DomesticAvailable == len(products)
	return t, nil
}
