package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// SaveScreeningHistory appends one row per screened symbol of a report
func (db *DB) SaveScreeningHistory(ctx context.Context, report *models.ScreeningReport) error {
	if report == nil || report.Total == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO screening_history (
			run_id, symbol, trend, current_price, macd_hist,
			senkou_span_b, intraday_strength_pct, screened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	screenedAt := report.Timestamp
	if screenedAt.IsZero() {
		screenedAt = time.Now()
	}
	for _, bucket := range [][]*models.ScreeningResult{report.Bullish, report.Bearish, report.Neutral} {
		for _, r := range bucket {
			_, err := stmt.ExecContext(ctx,
				report.RunID, r.Symbol, string(r.Trend), r.CurrentPrice, r.MACDHist,
				r.SenkouSpanB, r.IntradayStrengthPct, screenedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert screening history for %s: %w", r.Symbol, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetScreeningHistory returns the most recent entries for a symbol, newest first
func (db *DB) GetScreeningHistory(ctx context.Context, symbol string, limit int) ([]models.ScreeningHistory, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, run_id, symbol, trend, current_price, macd_hist,
		       senkou_span_b, intraday_strength_pct, screened_at
		FROM screening_history
		WHERE symbol = $1
		ORDER BY screened_at DESC, id DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screening history: %w", err)
	}
	defer rows.Close()

	var history []models.ScreeningHistory
	for rows.Next() {
		var h models.ScreeningHistory
		var trend string
		err := rows.Scan(&h.ID, &h.RunID, &h.Symbol, &trend, &h.CurrentPrice, &h.MACDHist,
			&h.SenkouSpanB, &h.IntradayStrengthPct, &h.ScreenedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screening history: %w", err)
		}
		h.Trend = models.Trend(trend)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate screening history: %w", err)
	}
	return history, nil
}

// DeleteScreeningHistoryOlderThan removes entries screened before the cutoff
func (db *DB) DeleteScreeningHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM screening_history WHERE screened_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old screening history: %w", err)
	}
	return result.RowsAffected()
}
