package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Option type constants
const (
	OptionTypeCall = "CE"
	OptionTypePut  = "PE"
)

// Trade decision status constants
const (
	DecisionPending   = "pending"
	DecisionSkipped   = "skipped"
	DecisionFailed    = "failed"
	DecisionSuccess   = "success"
	DecisionException = "exception"
)

// TradeCandidate is a screened symbol submitted to the option strategy
type TradeCandidate struct {
	Symbol       string  `json:"symbol"`
	Trend        Trend   `json:"trend"`
	CurrentPrice float64 `json:"current_price"`
}

// TradeDecision is the per-symbol outcome of one strategy run
type TradeDecision struct {
	ID              int             `json:"id,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
	Symbol          string          `json:"symbol"`
	Trend           Trend           `json:"trend"`
	CurrentPrice    float64         `json:"current_price"`
	Status          string          `json:"status"`
	OptionType      string          `json:"option_type,omitempty"`
	Expiry          string          `json:"expiry_date,omitempty"`
	StrikePrice     decimal.Decimal `json:"strike_price,omitempty"`
	TradingSymbol   string          `json:"trading_symbol,omitempty"`
	InstrumentKey   string          `json:"instrument_key,omitempty"`
	LotSize         int             `json:"lot_size,omitempty"`
	OptionLTP       decimal.Decimal `json:"option_ltp,omitempty"`
	BuyLimitPrice   decimal.Decimal `json:"buy_limit_price,omitempty"`
	SellTargetPrice decimal.Decimal `json:"sell_target_price,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderRequest describes an order to place upstream
type OrderRequest struct {
	InstrumentKey   string  `json:"instrument_key"`
	Quantity        int     `json:"quantity"`
	TransactionType string  `json:"transaction_type"`
	OrderType       string  `json:"order_type"`
	Price           float64 `json:"price,omitempty"`
	TriggerPrice    float64 `json:"trigger_price,omitempty"`
	Product         string  `json:"product"`
}
