package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios/{id}/optimize", h.HandleOptimize)
	r.Post("/portfolios/{id}/frontier", h.HandleFrontier)
	r.Post("/risk-parity", h.HandleRiskParity)
}
