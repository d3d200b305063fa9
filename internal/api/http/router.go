package http

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router for all API principals.
func NewRouter(handler *Handler, auth *Auth, hub *EventHub) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Get("/healthz", handler.Healthz)

	r.Route("/v1", func(r chi.Router) {
		// Read-only surfaces.
		r.Get("/status", handler.Status)
		r.Get("/prices/pack", handler.PackPrice)
		r.Get("/prices/decks/{name}", handler.DeckPrice)
		r.Get("/supply", handler.Supply)
		r.Get("/events/stream", hub.Handler())

		// Caller surfaces.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCaller)
			r.Post("/packs/open", handler.OpenPack)
			r.Post("/decks/{name}/open", handler.OpenDeck)
			r.Post("/requests/{id}/reclaim", handler.Reclaim)
			r.Post("/withdraw", handler.Withdraw)
			r.Get("/credits", handler.Credits)
		})

		// Oracle surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireOracle)
			r.Post("/oracle/fulfill", handler.Fulfill)
		})

		// Admin surfaces.
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/pause", handler.Pause)
			r.Post("/unpause", handler.Unpause)
			r.Post("/lock-minting", handler.LockMinting)
			r.Post("/lock-prices", handler.LockPrices)
			r.Put("/pack-price", handler.SetPackPrice)
			r.Put("/decks/{name}/price", handler.SetDeckPrice)
			r.Post("/cards", handler.AddCard)
			r.Post("/decks", handler.AddDeck)
			r.Post("/catalog/lock", handler.LockCatalog)
			r.Get("/events", handler.ListEvents)
			r.Get("/events/export", handler.ExportEvents)
		})
	})

	return r
}
