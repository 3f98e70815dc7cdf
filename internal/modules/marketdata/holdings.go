package marketdata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/database"
	"github.com/quantfolio/engine/internal/domain"
)

// HoldingsRepository reads portfolio positions from the main database.
// It implements domain.HoldingsProvider.
type HoldingsRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHoldingsRepository creates a new holdings repository
func NewHoldingsRepository(db *database.DB, log zerolog.Logger) *HoldingsRepository {
	return &HoldingsRepository{
		db:  db,
		log: log.With().Str("component", "holdings_repo").Logger(),
	}
}

// GetHoldings returns the positions of a portfolio and its total value
// (market value of positions plus cash).
func (r *HoldingsRepository) GetHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, float64, error) {
	var cash float64
	err := r.db.QueryRow(`SELECT cash FROM portfolios WHERE id = ?`, portfolioID).Scan(&cash)
	if err != nil {
		return nil, 0, fmt.Errorf("portfolio %s: %w", portfolioID, err)
	}

	rows, err := r.db.Query(`
		SELECT symbol, sector, quantity, average_cost, current_price
		FROM holdings
		WHERE portfolio_id = ?
		ORDER BY symbol
	`, portfolioID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	total := cash
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Sector, &h.Quantity, &h.AverageCost, &h.CurrentPrice); err != nil {
			return nil, 0, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
		total += h.MarketValue()
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, total, nil
}

// ListPortfolios returns the IDs of all stored portfolios.
func (r *HoldingsRepository) ListPortfolios(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM portfolios ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return ids, nil
}
