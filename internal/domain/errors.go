package domain

import "errors"

// Typed failure kinds surfaced by the engine. Callers discriminate with
// errors.Is; every path that raises one wraps it with fmt.Errorf("...: %w")
// so the context chain stays intact.
var (
	// ErrInsufficientData indicates an empty symbol set, empty holdings, or
	// fewer usable observations than a calculation needs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidCovarianceMatrix indicates a non-square, asymmetric (beyond
	// 1e-10), non-positive-diagonal, or unrecoverably singular matrix.
	ErrInvalidCovarianceMatrix = errors.New("invalid covariance matrix")

	// ErrInfeasibleConstraints indicates box constraints that cannot be
	// satisfied by any weight vector summing to 1.
	ErrInfeasibleConstraints = errors.New("infeasible constraints")

	// ErrInvalidAllocationTargets indicates rebalance target weights that do
	// not sum to ~100%.
	ErrInvalidAllocationTargets = errors.New("invalid allocation targets")
)
