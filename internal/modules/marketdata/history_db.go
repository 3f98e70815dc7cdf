// Package marketdata provides the engine's input side: stored price history,
// portfolio holdings, benchmark series and bounded parallel fetching.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// HistoryDB provides access to historical price data.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// OpenHistoryDB opens the history database file with WAL enabled and creates
// the schema if needed.
func OpenHistoryDB(path string, log zerolog.Logger) (*HistoryDB, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	h := NewHistoryDB(db, log)
	if err := h.InitSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return h, db, nil
}

// InitSchema creates the daily_prices table if it does not exist.
// Dates are stored as Unix timestamps at UTC midnight.
func (h *HistoryDB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_prices (
		symbol TEXT NOT NULL,
		date INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER,
		PRIMARY KEY (symbol, date)
	);
	CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date
		ON daily_prices(symbol, date);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init history schema: %w", err)
	}
	return nil
}

// GetDailyPrices fetches up to lookbackDays daily bars for a symbol,
// ordered oldest first.
func (h *HistoryDB) GetDailyPrices(ctx context.Context, symbol string, lookbackDays int) ([]domain.PricePoint, error) {
	if lookbackDays <= 0 {
		return []domain.PricePoint{}, nil
	}

	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, symbol, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var volume sql.NullInt64
		var dateUnix int64

		if err := rows.Scan(&dateUnix, &p.Open, &p.High, &p.Low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		p.Date = time.Unix(dateUnix, 0).UTC()
		if volume.Valid {
			p.Volume = &volume.Int64
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Query returns newest first; callers expect chronological order.
	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}

	return prices, nil
}

// UpsertDailyPrices inserts or replaces a batch of daily bars for a symbol.
func (h *HistoryDB) UpsertDailyPrices(ctx context.Context, symbol string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		var volume interface{}
		if p.Volume != nil {
			volume = *p.Volume
		}
		dateUnix := time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), 0, 0, 0, 0, time.UTC).Unix()
		if _, err := stmt.ExecContext(ctx, symbol, dateUnix, p.Open, p.High, p.Low, p.Close, volume); err != nil {
			return fmt.Errorf("failed to upsert daily price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("points", len(points)).Msg("Upserted daily prices")
	return nil
}

// CountBars returns the number of stored bars for a symbol.
func (h *HistoryDB) CountBars(ctx context.Context, symbol string) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return n, nil
}
