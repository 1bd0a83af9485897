package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-screener/internal/models"
)

const tradeDecisionColumns = `
	id, run_id, symbol, trend, current_price, status, option_type, expiry_date,
	strike_price, trading_symbol, instrument_key, lot_size, option_ltp,
	buy_limit_price, sell_target_price, error, created_at
`

// SaveTradeDecisions appends the decisions of one strategy run
func (db *DB) SaveTradeDecisions(ctx context.Context, decisions []*models.TradeDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_decisions (
			run_id, symbol, trend, current_price, status, option_type, expiry_date,
			strike_price, trading_symbol, instrument_key, lot_size, option_ltp,
			buy_limit_price, sell_target_price, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, d := range decisions {
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		err := stmt.QueryRowContext(ctx,
			d.RunID, d.Symbol, string(d.Trend), d.CurrentPrice, d.Status,
			nullString(d.OptionType), nullString(d.Expiry),
			nullDecimal(d.StrikePrice), nullString(d.TradingSymbol), nullString(d.InstrumentKey),
			nullInt(d.LotSize), nullDecimal(d.OptionLTP),
			nullDecimal(d.BuyLimitPrice), nullDecimal(d.SellTargetPrice),
			nullString(d.Error), d.CreatedAt,
		).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("failed to insert trade decision for %s: %w", d.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTradeDecisionsByRun returns the decisions of one run in insertion order
func (db *DB) GetTradeDecisionsByRun(ctx context.Context, runID string) ([]*models.TradeDecision, error) {
	query := `SELECT ` + tradeDecisionColumns + `
		FROM trade_decisions
		WHERE run_id = $1
		ORDER BY id
	`
	return db.queryTradeDecisions(ctx, query, runID)
}

// GetRecentTradeDecisions returns the newest decisions across runs
func (db *DB) GetRecentTradeDecisions(ctx context.Context, limit int) ([]*models.TradeDecision, error) {
	query := `SELECT ` + tradeDecisionColumns + `
		FROM trade_decisions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return db.queryTradeDecisions(ctx, query, limit)
}

func (db *DB) queryTradeDecisions(ctx context.Context, query string, args ...any) ([]*models.TradeDecision, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.TradeDecision
	for rows.Next() {
		d, err := scanTradeDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade decisions: %w", err)
	}
	return decisions, nil
}

func scanTradeDecision(row scanner) (*models.TradeDecision, error) {
	var d models.TradeDecision
	var trend string
	var optionType, tradingSymbol, instrumentKey, errMsg sql.NullString
	var strike, optionLTP, buyLimit, sellTarget sql.NullString
	var expiry sql.NullTime
	var lotSize sql.NullInt64

	err := row.Scan(
		&d.ID, &d.RunID, &d.Symbol, &trend, &d.CurrentPrice, &d.Status, &optionType, &expiry,
		&strike, &tradingSymbol, &instrumentKey, &lotSize, &optionLTP,
		&buyLimit, &sellTarget, &errMsg, &d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trade decision: %w", err)
	}

	d.Trend = models.Trend(trend)
	d.OptionType = optionType.String
	d.TradingSymbol = tradingSymbol.String
	d.InstrumentKey = instrumentKey.String
	d.Error = errMsg.String
	d.LotSize = int(lotSize.Int64)
	if expiry.Valid {
		d.Expiry = expiry.Time.Format("2006-01-02")
	}

	for _, f := range []struct {
		src sql.NullString
		dst *decimal.Decimal
	}{
		{strike, &d.StrikePrice},
		{optionLTP, &d.OptionLTP},
		{buyLimit, &d.BuyLimitPrice},
		{sellTarget, &d.SellTargetPrice},
	} {
		if !f.src.Valid {
			continue
		}
		v, err := decimal.NewFromString(f.src.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse decimal %q: %w", f.src.String, err)
		}
		*f.dst = v
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

func nullDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
