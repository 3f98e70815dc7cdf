package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantfolio/engine/internal/cache"
	"github.com/quantfolio/engine/internal/config"
	"github.com/quantfolio/engine/internal/database"
	"github.com/quantfolio/engine/internal/modules/marketdata"
	"github.com/quantfolio/engine/internal/modules/optimization"
	optimizationhandlers "github.com/quantfolio/engine/internal/modules/optimization/handlers"
	"github.com/quantfolio/engine/internal/modules/rebalancing"
	rebalancinghandlers "github.com/quantfolio/engine/internal/modules/rebalancing/handlers"
	"github.com/quantfolio/engine/internal/modules/risk"
	riskhandlers "github.com/quantfolio/engine/internal/modules/risk/handlers"
	"github.com/quantfolio/engine/internal/modules/statistics"
	"github.com/quantfolio/engine/internal/reliability"
	"github.com/quantfolio/engine/internal/scheduler"
	"github.com/quantfolio/engine/internal/server"
	"github.com/quantfolio/engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting quantfolio engine")

	// Main database: portfolios, holdings, snapshots
	db, err := database.New(cfg.MainDBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open main database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Price history database
	historyDB, historyConn, err := marketdata.OpenHistoryDB(cfg.HistoryDBPath(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyConn.Close()

	// Data providers
	holdingsRepo := marketdata.NewHoldingsRepository(db, log)
	benchmarkRepo := marketdata.NewBenchmarkRepository(historyDB, log)
	snapshotRepo := marketdata.NewSnapshotRepository(db, log)
	fetcher := marketdata.NewFetcher(historyDB, cfg.AllowSynthetic, cfg.FetchConcurrency, log)

	// Engine services
	calcCache := cache.New()
	statsBuilder := statistics.NewBuilder(fetcher, calcCache, log)
	optimizer := optimization.NewOptimizer(log)
	frontier := optimization.NewFrontierBuilder(optimizer, log)
	planner := rebalancing.NewPlanner(rebalancing.CostModel{
		FixedCost:        cfg.FixedTradeCost,
		VariableRate:     cfg.VariableCostRate,
		MarketImpactRate: cfg.MarketImpactRate,
	}, rebalancing.DefaultThreshold, log)
	optimizationSvc := optimization.NewService(statsBuilder, holdingsRepo, optimizer, frontier, planner, cfg.LookbackDays, log)
	riskSvc := risk.NewService(statsBuilder, holdingsRepo, benchmarkRepo, cfg.RiskFreeRate, log)
	rebalancingSvc := rebalancing.NewService(holdingsRepo, planner, log)

	// Optional snapshot archiver
	var archiver scheduler.Archiver
	if cfg.ArchiveEnabled {
		store, err := reliability.NewObjectStore(context.Background(), reliability.ObjectStoreConfig{
			Endpoint:  cfg.ArchiveEndpoint,
			Region:    cfg.ArchiveRegion,
			Bucket:    cfg.ArchiveBucket,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize snapshot archive")
		}
		archiver = reliability.NewArchiveService(store, cfg.ArchiveKeepMin, log)
	}

	// Background jobs
	sched := scheduler.New(log)
	if cfg.SnapshotSchedule != "" {
		retention := scheduler.RetentionPolicy{
			SnapshotDays: cfg.SnapshotRetentionDays,
			ArchiveDays:  cfg.ArchiveRetentionDays,
		}
		job := scheduler.NewSnapshotJob(holdingsRepo, riskSvc, optimizationSvc, snapshotRepo, archiver, retention, cfg.SnapshotWorkers, log)
		if err := sched.AddJob(cfg.SnapshotSchedule, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register snapshot job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:                  log,
		Port:                 cfg.Port,
		DevMode:              cfg.DevMode,
		OptimizationHandlers: optimizationhandlers.NewHandler(optimizationSvc, log),
		RiskHandlers:         riskhandlers.NewHandler(riskSvc, log),
		RebalancingHandlers:  rebalancinghandlers.NewHandler(rebalancingSvc, log),
		SystemHandlers:       server.NewSystemHandlers(log, cfg.DataDir),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
