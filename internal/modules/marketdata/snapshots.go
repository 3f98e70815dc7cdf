package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/database"
	"github.com/quantfolio/engine/internal/domain"
)

// SnapshotRepository persists batch-job results per portfolio.
type SnapshotRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("component", "snapshot_repo").Logger(),
	}
}

// Save stores a snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, s domain.PortfolioSnapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO snapshots (id, portfolio_id, taken_at, total_value, payload)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.PortfolioID, s.TakenAt.Unix(), s.TotalValue, s.Payload)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a portfolio.
func (r *SnapshotRepository) Latest(ctx context.Context, portfolioID string) (*domain.PortfolioSnapshot, error) {
	row := r.db.QueryRow(`
		SELECT id, portfolio_id, taken_at, total_value, payload
		FROM snapshots
		WHERE portfolio_id = ?
		ORDER BY taken_at DESC
		LIMIT 1
	`, portfolioID)

	var s domain.PortfolioSnapshot
	var takenAt int64
	if err := row.Scan(&s.ID, &s.PortfolioID, &takenAt, &s.TotalValue, &s.Payload); err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	s.TakenAt = time.Unix(takenAt, 0).UTC()
	return &s, nil
}

// PruneBefore deletes snapshots taken before the cutoff, returning the
// number removed.
func (r *SnapshotRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("Pruned old snapshots")
	}
	return n, nil
}
