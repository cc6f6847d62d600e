package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the regime routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/regime", h.HandleGetRegime) // Timeline, thresholds, attribution
}
