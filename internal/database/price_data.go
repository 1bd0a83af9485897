package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// SavePriceBars upserts daily bars for a symbol in a single transaction
func (db *DB) SavePriceBars(ctx context.Context, symbol string, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_prices (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, b := range bars {
		date := b.Date.UTC().Format("2006-01-02")
		if _, err := stmt.ExecContext(ctx, symbol, date, b.Open, b.High, b.Low, b.Close, b.Volume, now); err != nil {
			return fmt.Errorf("failed to upsert price bar %s %s: %w", symbol, date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceBars returns up to limit bars for a symbol, newest first
func (db *DB) GetPriceBars(ctx context.Context, symbol string, limit int) ([]models.PriceBar, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		// lib/pq hands DATE back in a zero-offset zone that is not time.UTC
		b.Date = time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price bars: %w", err)
	}
	return bars, nil
}

// CountPriceBars returns the number of stored bars for a symbol
func (db *DB) CountPriceBars(ctx context.Context, symbol string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_prices WHERE symbol = $1`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count price bars: %w", err)
	}
	return n, nil
}

// DeletePriceBarsOlderThan removes bars dated before the cutoff, except the
// newest keep bars of each symbol. The price store is read before any live
// fetch, so a symbol must never be pruned below the history a screen needs.
func (db *DB) DeletePriceBarsOlderThan(ctx context.Context, cutoff time.Time, keep int) (int64, error) {
	query := `
		DELETE FROM daily_prices
		WHERE date < $1
		  AND id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY date DESC) AS rn
				FROM daily_prices
			) ranked
			WHERE rn <= $2
		  )
	`
	result, err := db.conn.ExecContext(ctx, query, cutoff.UTC().Format("2006-01-02"), max(keep, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price bars: %w", err)
	}
	return result.RowsAffected()
}
