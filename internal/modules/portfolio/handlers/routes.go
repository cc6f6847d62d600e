package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/overview", h.HandleGetOverview)         // Headline metrics
		r.Get("/allocation", h.HandleGetAllocation)     // Holdings by weight
		r.Get("/correlation", h.HandleGetCorrelation)   // Heatmap + diagnostics
		r.Get("/volatility", h.HandleGetVolatility)     // Trend with SMA overlay
		r.Get("/contribution", h.HandleGetContribution) // Risk attribution
		r.Get("/stress", h.HandleGetStress)             // Scenario simulation
	})
}
