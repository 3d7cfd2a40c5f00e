package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/exchange"
	"github.com/ariefcatur/krstock/internal/pricing"
	"github.com/ariefcatur/krstock/internal/watchlist"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(timeout time.Duration) *chi.Mux {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	var verr *catalog.ValidationError
	var uerr *pricing.UnknownError
	switch {
	case errors.As(err, &verr), errors.As(err, &uerr), errors.Is(err, pricing.ErrNoProducts):
		return http.StatusBadRequest
	case errors.Is(err, watchlist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, watchlist.ErrDuplicate), errors.Is(err, watchlist.ErrPlannedElsewhere):
		return http.StatusConflict
	case errors.Is(err, exchange.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}
