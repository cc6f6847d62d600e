package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleGetStocks)             // Risk table, most volatile first
		r.Get("/summary", h.HandleGetSummary)     // Universe statistics
		r.Get("/extremes", h.HandleGetExtremes)   // Top/bottom by volatility
		r.Get("/landscape", h.HandleGetLandscape) // Risk/return scatter
		r.Get("/histogram", h.HandleGetHistogram) // Volatility distribution
		r.Get("/{ticker}", h.HandleGetStock)      // Single stock profile
	})
}
