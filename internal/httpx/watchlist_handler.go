package httpx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/watchlist"
	"github.com/go-chi/chi/v5"
)

type WatchlistHandler struct {
	Service *watchlist.Service
}

func (h *WatchlistHandler) Register(r *chi.Mux) {
	r.Get("/favorites", h.listFavorites)
	r.Post("/favorites", h.addFavorite)
	r.Delete("/favorites", h.clearFavorites)
	r.Delete("/favorites/{id}", h.removeFavorite)
	r.Patch("/favorites/{id}/domestic-price", h.annotate)

	r.Get("/plans", h.listPlans)
	r.Delete("/plans/items/{id}", h.removePlanItem)
	r.Get("/plans/{store}", h.getPlan)
	r.Post("/plans/{store}", h.addToPlan)
	r.Delete("/plans/{store}", h.clearPlan)
	r.Get("/plans/{store}/totals", h.planTotals)
}

type domesticPriceReq struct {
	DomesticPrice catalog.RawPrice `json:"domestic_price"`
}

func (h *WatchlistHandler) listFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Service.Favorites(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *WatchlistHandler) addFavorite(w http.ResponseWriter, r *http.Request) {
	var p catalog.WatchedProduct
	if !decodeJSON(w, r, &p) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rec, err := h.Service.AddFavorite(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec.Product)
}

func (h *WatchlistHandler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Service.RemoveFavorite(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) clearFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Service.ClearFavorites(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *WatchlistHandler) annotate(w http.ResponseWriter, r *http.Request) {
	var req domesticPriceReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rec, err := h.Service.AnnotateDomesticPrice(ctx, chi.URLParam(r, "id"), req.DomesticPrice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Product)
}

func (h *WatchlistHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	plans, err := h.Service.PlansByStore(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *WatchlistHandler) getPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	store := storeParam(r)
	items, err := h.Service.PlanFor(ctx, store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, watchlist.StorePlan{StoreName: store, Items: items})
}

func (h *WatchlistHandler) addToPlan(w http.ResponseWriter, r *http.Request) {
	var p catalog.WatchedProduct
	if !decodeJSON(w, r, &p) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rec, err := h.Service.AddToPlan(ctx, storeParam(r), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *WatchlistHandler) clearPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Service.ClearPlan(ctx, storeParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *WatchlistHandler) removePlanItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Service.RemovePlanItem(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) planTotals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Service.PlanTotals(ctx, storeParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// storeParam returns the store segment decoded; store names are usually
// non-ASCII.
func storeParam(r *http.Request) string {
	raw := chi.URLParam(r, "store")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}
