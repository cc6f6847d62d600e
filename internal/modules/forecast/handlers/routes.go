package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecast routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecasts", func(r chi.Router) {
		r.Get("/", h.HandleGetRanking)                // By predicted volatility
		r.Get("/uncertainty", h.HandleGetUncertainty) // Widest 68% bands
		r.Get("/map", h.HandleGetRiskMap)             // Volatility vs error
		r.Get("/accuracy", h.HandleGetAccuracy)       // RMSE distribution
		r.Get("/{ticker}", h.HandleGetForecast)
	})
}
