// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration.
type Config struct {
	// Server
	Port    int
	DataDir string

	// Logging
	LogLevel string
	DevMode  bool

	// Market data
	AllowSynthetic   bool // permit synthetic price series for symbols with no history
	FetchConcurrency int  // parallel price history fetches
	LookbackDays     int  // default statistics window in trading days

	// Risk
	RiskFreeRate float64 // annual risk-free rate

	// Rebalancing cost model
	FixedTradeCost   float64
	VariableCostRate float64
	MarketImpactRate float64

	// Snapshot batch job
	SnapshotSchedule      string // cron expression, empty disables the job
	SnapshotWorkers       int
	SnapshotRetentionDays int // local snapshots pruned past this age, 0 keeps all

	// Snapshot archive (S3-compatible, optional)
	ArchiveEnabled       bool
	ArchiveEndpoint      string
	ArchiveRegion        string
	ArchiveBucket        string
	ArchiveAccessKey     string
	ArchiveSecretKey     string
	ArchiveKeepMin       int // archives never rotated below this count
	ArchiveRetentionDays int // archives rotated past this age, 0 keeps all
}

// Load reads configuration from the environment, with a .env file as a
// convenience for development. Missing values fall back to defaults.
func Load() (*Config, error) {
	// .env is optional; real deployments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnvAsInt("QUANT_PORT", 8090),
		DataDir: getEnv("QUANT_DATA_DIR", "./data"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		AllowSynthetic:   getEnvAsBool("QUANT_ALLOW_SYNTHETIC", false),
		FetchConcurrency: getEnvAsInt("QUANT_FETCH_CONCURRENCY", 8),
		LookbackDays:     getEnvAsInt("QUANT_LOOKBACK_DAYS", 60),

		RiskFreeRate: getEnvAsFloat("QUANT_RISK_FREE_RATE", 0.02),

		FixedTradeCost:   getEnvAsFloat("QUANT_FIXED_TRADE_COST", 1.0),
		VariableCostRate: getEnvAsFloat("QUANT_VARIABLE_COST_RATE", 0.001),
		MarketImpactRate: getEnvAsFloat("QUANT_MARKET_IMPACT_RATE", 0.0005),

		SnapshotSchedule:      getEnv("QUANT_SNAPSHOT_SCHEDULE", "0 30 18 * * *"),
		SnapshotWorkers:       getEnvAsInt("QUANT_SNAPSHOT_WORKERS", 4),
		SnapshotRetentionDays: getEnvAsInt("QUANT_SNAPSHOT_RETENTION_DAYS", 365),

		ArchiveEnabled:       getEnvAsBool("QUANT_ARCHIVE_ENABLED", false),
		ArchiveEndpoint:      getEnv("QUANT_ARCHIVE_ENDPOINT", ""),
		ArchiveRegion:        getEnv("QUANT_ARCHIVE_REGION", "auto"),
		ArchiveBucket:        getEnv("QUANT_ARCHIVE_BUCKET", ""),
		ArchiveAccessKey:     getEnv("QUANT_ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey:     getEnv("QUANT_ARCHIVE_SECRET_KEY", ""),
		ArchiveKeepMin:       getEnvAsInt("QUANT_ARCHIVE_KEEP_MIN", 3),
		ArchiveRetentionDays: getEnvAsInt("QUANT_ARCHIVE_RETENTION_DAYS", 90),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MainDBPath returns the path of the holdings/results database.
func (c *Config) MainDBPath() string {
	return filepath.Join(c.DataDir, "engine.db")
}

// HistoryDBPath returns the path of the price history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
