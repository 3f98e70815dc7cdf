package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios/{id}/risk", h.HandleAnalyze)
	r.Post("/portfolios/{id}/stress", h.HandleStress)
}
