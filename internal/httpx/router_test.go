package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/exchange"
	"github.com/ariefcatur/krstock/internal/inventory"
	"github.com/ariefcatur/krstock/internal/pricing"
	"github.com/ariefcatur/krstock/internal/region"
	"github.com/ariefcatur/krstock/internal/stock"
	"github.com/ariefcatur/krstock/internal/watchlist"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRate struct{ err error }

func (fixedRate) Name() string { return exchange.SourceAccurate }
func (s fixedRate) Fetch(context.Context) (exchange.Rate, error) {
	if s.err != nil {
		return exchange.Rate{}, s.err
	}
	return exchange.Rate{PerTenThousand: decimal.RequireFromString("50"), Source: exchange.SourceAccurate, AsOf: time.Now()}, nil
}

type searchSource struct{ calls atomic.Int32 }

func (s *searchSource) SearchProductIDs(_ context.Context, model string, _ catalog.Gender) ([]string, error) {
	s.calls.Add(1)
	return []string{"P-" + model}, nil
}

type harness struct {
	router  *chi.Mux
	lookups *atomic.Int32
	search  *searchSource
}

func newHarness(t *testing.T, rates ...exchange.Source) *harness {
	t.Helper()
	var lookups atomic.Int32
	src := stock.SourceFunc(func(_ context.Context, sku string) ([]stock.Entry, error) {
		lookups.Add(1)
		return []stock.Entry{
			{StoreName: "아크테릭스 부산점", Stock: stock.Count(2)},
			{StoreName: "아크테릭스 종로점", Stock: stock.Count(0)},
		}, nil
	})
	dir := region.Default()
	c := cache.New(cache.NewMemoryBackend(), nil)
	fetcher := stock.NewFetcher(src, stock.Options{Timeout: time.Second}, nil)
	wl := watchlist.NewService(watchlist.NewMemoryStore(), nil)
	provider := exchange.NewProvider(c, time.Minute, nil, rates...)
	search := &searchSource{}

	r := NewRouter(10 * time.Second)
	(&WatchlistHandler{Service: wl}).Register(r)
	(&InventoryHandler{
		Service: &inventory.Service{
			Watch:     wl,
			Builder:   inventory.NewBuilder(fetcher, dir, 0, nil),
			Cache:     c,
			Directory: dir,
		},
		Fetcher:  fetcher,
		Products: &catalog.Searcher{Source: search, Cache: c},
	}).Register(r)
	(&PricingHandler{
		Service: &pricing.Service{
			Catalog:    pricing.DefaultCatalog(),
			Calculator: pricing.NewCalculator(pricing.Policy{}),
			Ledger:     pricing.NewMemoryLedger(),
			Rates: pricing.RateSourceFunc(func(ctx context.Context) pricing.Converter {
				return provider.Converter(ctx)
			}),
		},
		Exchange: provider,
	}).Register(r)
	(&CacheHandler{Cache: c}).Register(r)
	return &harness{router: r, lookups: &lookups, search: search}
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func beta() catalog.WatchedProduct {
	return catalog.WatchedProduct{ProductModel: "Beta SL", Color: "Black", Size: "M", SKU: "1001", Price: "1000000"}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestFavoritesRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/favorites", beta())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[catalog.WatchedProduct](t, rec)
	assert.NotEmpty(t, added.ID)

	rec = h.do(t, http.MethodPost, "/favorites", beta())
	assert.Equal(t, http.StatusConflict, rec.Code)

	bad := beta()
	bad.ProductModel, bad.SKU = "Gamma", "12x"
	rec = h.do(t, http.MethodPost, "/favorites", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, "/favorites/"+added.ID+"/domestic-price", map[string]string{"domestic_price": "4500"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.RawPrice("4500"), decode[catalog.WatchedProduct](t, rec).DomesticPrice)

	rec = h.do(t, http.MethodPatch, "/favorites/missing/domestic-price", map[string]string{"domestic_price": "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/favorites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.WatchedProduct](t, rec), 1)

	rec = h.do(t, http.MethodDelete, "/favorites/"+added.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, "/favorites/"+added.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanRoutes(t *testing.T) {
	h := newHarness(t)
	busan := "/plans/" + url.PathEscape("始祖鸟釜山店")

	rec := h.do(t, http.MethodPost, busan, beta())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[watchlist.Record](t, rec)
	assert.Equal(t, "始祖鸟釜山店", item.StoreName)

	rec = h.do(t, http.MethodPost, "/plans/"+url.PathEscape("始祖鸟钟路店"), beta())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "始祖鸟釜山店")

	rec = h.do(t, http.MethodGet, busan+"/totals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[watchlist.PlanTotals](t, rec)
	assert.Equal(t, 1, totals.Items)
	assert.Equal(t, "1000000", totals.TotalKRW.String())

	rec = h.do(t, http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]watchlist.StorePlan](t, rec), 1)

	rec = h.do(t, http.MethodDelete, "/plans/items/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, busan, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[map[string]int](t, rec)["removed"])
}

func TestInventoryRoutes(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/favorites", beta()).Code)

	rec := h.do(t, http.MethodGet, "/inventory?stock=has-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first struct {
		Cached bool              `json:"cached"`
		Stores int               `json:"stores"`
		Matrix *inventory.Matrix `json:"matrix"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.False(t, first.Cached)
	assert.Equal(t, 1, first.Stores)
	n, ok := first.Matrix.Get("始祖鸟釜山店", "Beta SL Black M")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	rec = h.do(t, http.MethodGet, "/inventory/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), h.lookups.Load(), "snapshot reused across views")

	rec = h.do(t, http.MethodGet, "/inventory/key-stores", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "low_stock")

	rec = h.do(t, http.MethodGet, "/inventory/depth?refresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), h.lookups.Load())

	rec = h.do(t, http.MethodGet, "/inventory?sort=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodGet, "/inventory?region=Mars", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/cache/stats?kind="+inventory.CacheKind, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[cache.Stats](t, rec).Count)
	rec = h.do(t, http.MethodDelete, "/cache/"+inventory.CacheKind, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed":1`)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/cache/stats", nil).Code)
}

func TestStockAndSearchRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/stock/12x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/stock/1001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "始祖鸟釜山店")

	for i := 0; i < 2; i++ {
		rec = h.do(t, http.MethodGet, "/products/search?model=Beta%20SL&gender=male", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Contains(t, rec.Body.String(), `"cached":true`)
	assert.Equal(t, int32(1), h.search.calls.Load())

	rec = h.do(t, http.MethodGet, "/products/search?model=Beta&gender=kids", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodGet, "/products/search?model=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingRoutes(t *testing.T) {
	h := newHarness(t, fixedRate{})

	rec := h.do(t, http.MethodGet, "/merchants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]pricing.Merchant](t, rec), 5)

	req := pricing.Request{Merchant: "现代百货", Rules: []string{"7%积分赠送"}, Products: []catalog.WatchedProduct{beta()}}
	rec = h.do(t, http.MethodPost, "/calculate", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[pricing.Quotation](t, rec)
	assert.Equal(t, "896000", q.FinalPayment.String())
	assert.True(t, q.Converted.Available)
	assert.Equal(t, "4480", q.Converted.FinalPayment.String())

	rec = h.do(t, http.MethodPost, "/calculate", pricing.Request{Merchant: "nowhere", Rules: []string{"x"}, Products: []catalog.WatchedProduct{beta()}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodPost, "/calculate", pricing.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/calculate/confirm", req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/quote", map[string]any{"products": []catalog.WatchedProduct{beta()}})
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decode[pricing.Quote](t, rec)
	assert.Equal(t, "945000", quote.AfterTax.String())

	rec = h.do(t, http.MethodGet, "/exchange-rate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10000韩元=50人民币")
}

func TestExchangeRateUnavailable(t *testing.T) {
	h := newHarness(t, fixedRate{err: assert.AnError})
	rec := h.do(t, http.MethodGet, "/exchange-rate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req := pricing.Request{Products: []catalog.WatchedProduct{beta()}}
	rec = h.do(t, http.MethodPost, "/calculate", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[pricing.Quotation](t, rec).Converted.Available)
}
