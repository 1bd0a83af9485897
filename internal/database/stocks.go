package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// UpsertStocks inserts or updates universe members by symbol
func (db *DB) UpsertStocks(ctx context.Context, stocks []models.Stock) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stocks (symbol, name, isin, has_options, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			isin = COALESCE(EXCLUDED.isin, stocks.isin),
			has_options = EXCLUDED.has_options,
			last_updated = EXCLUDED.last_updated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range stocks {
		var isin sql.NullString
		if s.ISIN != "" {
			isin = sql.NullString{String: s.ISIN, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, s.Symbol, s.Name, isin, s.HasOptions, now); err != nil {
			return fmt.Errorf("failed to upsert stock %s: %w", s.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListStocks returns every universe member ordered by symbol
func (db *DB) ListStocks(ctx context.Context) ([]models.Stock, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, name, isin, has_options, last_updated
		FROM stocks
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stocks: %w", err)
	}
	return stocks, nil
}

// GetStock returns one universe member or ErrNotFound
func (db *DB) GetStock(ctx context.Context, symbol string) (models.Stock, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT symbol, name, isin, has_options, last_updated
		FROM stocks
		WHERE symbol = $1
	`, symbol)
	s, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Stock{}, fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStock(row scanner) (models.Stock, error) {
	var s models.Stock
	var isin sql.NullString
	if err := row.Scan(&s.Symbol, &s.Name, &isin, &s.HasOptions, &s.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("failed to scan stock: %w", err)
	}
	s.ISIN = isin.String
	return s, nil
}
