package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/go-chi/chi/v5"
)

type CacheHandler struct {
	Cache *cache.Cache
}

func (h *CacheHandler) Register(r *chi.Mux) {
	r.Get("/cache/stats", h.stats)
	r.Delete("/cache/{kind}", h.clear)
}

func (h *CacheHandler) stats(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing kind"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st, err := h.Cache.Stats(ctx, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *CacheHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	kind := chi.URLParam(r, "kind")
	n, err := h.Cache.Clear(ctx, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "removed": n})
}
