package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/exchange"
	"github.com/ariefcatur/krstock/internal/pricing"
	"github.com/go-chi/chi/v5"
)

type PricingHandler struct {
	Service  *pricing.Service
	Exchange *exchange.Provider
}

func (h *PricingHandler) Register(r *chi.Mux) {
	r.Get("/merchants", h.merchants)
	r.Post("/calculate", h.calculate)
	r.Post("/calculate/confirm", h.confirm)
	r.Post("/quote", h.quote)
	r.Get("/exchange-rate", h.exchangeRate)
}

type quoteReq struct {
	Products []catalog.WatchedProduct `json:"products"`
}

type rateResp struct {
	exchange.Rate
	Text string `json:"text"`
}

func (h *PricingHandler) merchants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Catalog.Merchants())
}

func (h *PricingHandler) calculate(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	// a cold exchange rate may take both upstream sources
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	q, err := h.Service.Calculate(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *PricingHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	q, err := h.Service.ConfirmPurchase(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *PricingHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	q, err := h.Service.Quote(ctx, req.Products)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *PricingHandler) exchangeRate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	rate, err := h.Exchange.Current(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResp{Rate: rate, Text: rate.DisplayText()})
}
