package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/marketdata"
	"github.com/quantfolio/engine/internal/modules/optimization"
	"github.com/quantfolio/engine/internal/modules/risk"
)

// snapshotTimeout bounds one full batch run.
const snapshotTimeout = 10 * time.Minute

// Archiver ships snapshots to external storage and rotates old archives.
type Archiver interface {
	Archive(ctx context.Context, snapshot domain.PortfolioSnapshot) error
	RotateOldArchives(ctx context.Context, retentionDays int) error
}

// RetentionPolicy bounds how long snapshot data is kept. Zero values keep
// everything.
type RetentionPolicy struct {
	SnapshotDays int // local database rows
	ArchiveDays  int // remote archive objects
}

// snapshotPayload is the persisted body of one snapshot.
type snapshotPayload struct {
	Risk         *risk.Assessment     `json:"risk"`
	Optimization *optimization.Result `json:"optimization"`
}

// SnapshotJob recomputes a risk assessment and a minimum-risk allocation for
// every stored portfolio and persists the results. Portfolios are
// independent, so the batch fans out across a bounded worker pool.
type SnapshotJob struct {
	holdings  domain.HoldingsProvider
	risk      *risk.Service
	optimizer *optimization.Service
	snapshots *marketdata.SnapshotRepository
	archiver  Archiver // nil disables archiving
	retention RetentionPolicy
	workers   int
	log       zerolog.Logger
}

// NewSnapshotJob creates the snapshot batch job.
func NewSnapshotJob(holdings domain.HoldingsProvider, riskSvc *risk.Service, optimizer *optimization.Service, snapshots *marketdata.SnapshotRepository, archiver Archiver, retention RetentionPolicy, workers int, log zerolog.Logger) *SnapshotJob {
	if workers <= 0 {
		workers = 4
	}
	return &SnapshotJob{
		holdings:  holdings,
		risk:      riskSvc,
		optimizer: optimizer,
		snapshots: snapshots,
		archiver:  archiver,
		retention: retention,
		workers:   workers,
		log:       log.With().Str("component", "snapshot_job").Logger(),
	}
}

// Name implements Job.
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshots"
}

// Run implements Job.
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	portfolios, err := j.holdings.ListPortfolios(ctx)
	if err != nil {
		return fmt.Errorf("list portfolios: %w", err)
	}
	if len(portfolios) == 0 {
		j.log.Debug().Msg("No portfolios to snapshot")
		return nil
	}

	sem := make(chan struct{}, j.workers)
	var wg sync.WaitGroup
	errs := make([]error, len(portfolios))

	for i, id := range portfolios {
		wg.Add(1)
		go func(idx int, portfolioID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := j.snapshotOne(ctx, portfolioID); err != nil {
				j.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Snapshot failed")
				errs[idx] = fmt.Errorf("portfolio %s: %w", portfolioID, err)
			}
		}(i, id)
	}
	wg.Wait()

	j.cleanup(ctx)

	j.log.Info().Int("portfolios", len(portfolios)).Msg("Snapshot batch complete")
	return errors.Join(errs...)
}

// cleanup prunes local snapshots and rotates remote archives past their
// retention horizons. Failures are logged, not fatal to the batch.
func (j *SnapshotJob) cleanup(ctx context.Context) {
	if j.retention.SnapshotDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -j.retention.SnapshotDays)
		if _, err := j.snapshots.PruneBefore(ctx, cutoff); err != nil {
			j.log.Error().Err(err).Msg("Snapshot prune failed")
		}
	}
	if j.archiver != nil && j.retention.ArchiveDays > 0 {
		if err := j.archiver.RotateOldArchives(ctx, j.retention.ArchiveDays); err != nil {
			j.log.Error().Err(err).Msg("Archive rotation failed")
		}
	}
}

func (j *SnapshotJob) snapshotOne(ctx context.Context, portfolioID string) error {
	assessment, err := j.risk.AnalyzeRisk(ctx, portfolioID, "")
	if err != nil {
		return fmt.Errorf("risk assessment: %w", err)
	}

	result, err := j.optimizer.OptimizePortfolio(ctx, portfolioID, optimization.ObjectiveMinRisk, optimization.DefaultConstraints())
	if err != nil {
		return fmt.Errorf("optimization: %w", err)
	}

	_, totalValue, err := j.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("holdings: %w", err)
	}

	payload, err := json.Marshal(snapshotPayload{Risk: assessment, Optimization: result})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	snapshot := domain.PortfolioSnapshot{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		TakenAt:     time.Now().UTC(),
		TotalValue:  totalValue,
		Payload:     payload,
	}
	if err := j.snapshots.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if j.archiver != nil {
		if err := j.archiver.Archive(ctx, snapshot); err != nil {
			// Archive failures must not fail the local snapshot.
			j.log.Warn().Err(err).Str("portfolio", portfolioID).Msg("Archive upload failed")
		}
	}

	return nil
}
