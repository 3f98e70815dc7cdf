// Package handlers provides HTTP handlers for optimization operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/optimization"
)

// Handler handles optimization HTTP requests
type Handler struct {
	service *optimization.Service
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service *optimization.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest selects an objective and optional constraints.
type OptimizeRequest struct {
	Objective   optimization.Objective    `json:"objective"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
}

// FrontierRequest configures a frontier sweep.
type FrontierRequest struct {
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
	PointCount  int                       `json:"point_count,omitempty"`
}

// RiskParityRequest carries a caller-supplied covariance matrix.
type RiskParityRequest struct {
	Symbols     []string                  `json:"symbols,omitempty"`
	Covariance  [][]float64               `json:"covariance"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
}

// HandleOptimize handles POST /api/portfolios/{id}/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Objective.Valid() {
		http.Error(w, "Unknown objective", http.StatusBadRequest)
		return
	}

	constraints := optimization.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	result, err := h.service.OptimizePortfolio(r.Context(), portfolioID, req.Objective, constraints)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleFrontier handles POST /api/portfolios/{id}/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	var req FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	constraints := optimization.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	points, err := h.service.BuildFrontier(r.Context(), portfolioID, constraints, req.PointCount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
		"count":  len(points),
	})
}

// HandleRiskParity handles POST /api/risk-parity
func (h *Handler) HandleRiskParity(w http.ResponseWriter, r *http.Request) {
	var req RiskParityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Covariance) == 0 {
		http.Error(w, "covariance matrix is required", http.StatusBadRequest)
		return
	}

	constraints := optimization.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	result, err := h.service.RiskParityFromCovariance(req.Symbols, req.Covariance, constraints)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// writeError maps engine error kinds to HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInfeasibleConstraints),
		errors.Is(err, domain.ErrInvalidCovarianceMatrix):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Optimization request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
