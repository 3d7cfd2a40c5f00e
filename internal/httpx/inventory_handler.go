package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/events"
	"github.com/ariefcatur/krstock/internal/inventory"
	"github.com/ariefcatur/krstock/internal/region"
	"github.com/ariefcatur/krstock/internal/stock"
	"github.com/go-chi/chi/v5"
)

// InventoryHandler serves the stock matrix and what is derived from it.
// Snapshot builds fan out to the upstream API and get a longer deadline.
type InventoryHandler struct {
	Service      *inventory.Service
	Fetcher      *stock.Fetcher
	Products     *catalog.Searcher
	BuildTimeout time.Duration
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Get("/inventory", h.matrix)
	r.Get("/inventory/stats", h.stats)
	r.Get("/inventory/depth", h.depth)
	r.Get("/inventory/key-stores", h.keyStores)
	r.Get("/stock/{sku}", h.stockBySKU)
	r.Get("/products/search", h.search)
}

type matrixResp struct {
	SnapshotID string                `json:"snapshot_id"`
	BuiltAt    time.Time             `json:"built_at"`
	Cached     bool                  `json:"cached"`
	Filter     inventory.Filter      `json:"filter"`
	Stores     int                   `json:"stores"`
	Matrix     *inventory.Matrix     `json:"matrix"`
	Report     inventory.BuildReport `json:"report"`
}

type keyStoresResp struct {
	Views    []inventory.KeyStoreView `json:"views"`
	LowStock []events.LowStockAlert   `json:"low_stock"`
}

type stockLine struct {
	StoreName string         `json:"store_name"`
	Stock     stock.RawStock `json:"stock"`
}

func (h *InventoryHandler) snapshot(w http.ResponseWriter, r *http.Request) (inventory.Snapshot, bool) {
	timeout := h.BuildTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	snap, err := h.Service.Snapshot(ctx, refresh)
	if err != nil {
		writeError(w, err)
		return inventory.Snapshot{}, false
	}
	return snap, true
}

func (h *InventoryHandler) directory() *region.Directory {
	if h.Service.Directory == nil {
		return region.Default()
	}
	return h.Service.Directory
}

func (h *InventoryHandler) matrix(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f inventory.Filter
	var err error
	if f.Stock, err = inventory.ParseStockFilter(q.Get("stock")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if f.Region, err = region.ParseRegion(q.Get("region")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if f.Sort, err = inventory.ParseSortOption(q.Get("sort")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	m := inventory.FilterAndSort(snap.Matrix, h.directory(), f)
	writeJSON(w, http.StatusOK, matrixResp{
		SnapshotID: snap.ID,
		BuiltAt:    snap.BuiltAt,
		Cached:     snap.Cached,
		Filter:     f,
		Stores:     m.Len(),
		Matrix:     m,
		Report:     snap.Report,
	})
}

func (h *InventoryHandler) stats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inventory.ComputeEnhancedStats(snap.Matrix, h.directory()))
}

func (h *InventoryHandler) depth(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inventory.ComputeProductDepth(snap.Products, snap.Matrix, h.directory()))
}

func (h *InventoryHandler) keyStores(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	keys := h.directory().KeyStores()
	low := inventory.LowStock(snap.Products, snap.Matrix, keys)
	if low == nil {
		low = []events.LowStockAlert{}
	}
	writeJSON(w, http.StatusOK, keyStoresResp{
		Views:    inventory.ComputeKeyStoreView(snap.Products, snap.Matrix, keys),
		LowStock: low,
	})
}

func (h *InventoryHandler) stockBySKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if err := catalog.ValidateSKU(sku); err != nil {
		writeError(w, err)
		return
	}
	entries := h.Fetcher.FetchStock(r.Context(), sku)
	dir := h.directory()
	out := make([]stockLine, 0, len(entries))
	for _, e := range entries {
		if e.StoreName == "" {
			continue
		}
		out = append(out, stockLine{StoreName: dir.Translate(e.StoreName), Stock: e.Stock})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sku": sku, "stores": out})
}

func (h *InventoryHandler) search(w http.ResponseWriter, r *http.Request) {
	gender, err := catalog.ParseGender(r.URL.Query().Get("gender"))
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	ids, cached, err := h.Products.Search(ctx, r.URL.Query().Get("model"), gender)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_ids": ids, "cached": cached})
}
