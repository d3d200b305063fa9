package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	EmergencyPause     bool `json:"emergency_pause"`
	MintingLocked      bool `json:"minting_locked"`
	PriceChangesLocked bool `json:"price_changes_locked"`
	CatalogLocked      bool `json:"catalog_locked"`
}

// Status handles GET /v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	flags, err := h.control.Flags(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		EmergencyPause:     flags.EmergencyPause,
		MintingLocked:      flags.MintingLocked,
		PriceChangesLocked: flags.PriceChangesLocked,
		CatalogLocked:      flags.CatalogLocked,
	})
}

type priceResponse struct {
	Price int64 `json:"price"`
}

// PackPrice handles GET /v1/prices/pack.
func (h *Handler) PackPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.store.PackPrice(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Price: price})
}

// DeckPrice handles GET /v1/prices/decks/{name}.
func (h *Handler) DeckPrice(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.Deck(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Price: deck.Price})
}

type supplyResponse struct {
	TotalMinted uint64 `json:"total_minted"`
	EmissionCap uint64 `json:"emission_cap"`
}

// Supply handles GET /v1/supply.
func (h *Handler) Supply(w http.ResponseWriter, r *http.Request) {
	counter, err := h.store.EmissionCounter(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplyResponse{TotalMinted: counter.TotalMinted, EmissionCap: counter.Cap})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
