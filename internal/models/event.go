package models

import "time"

// Event type constants
const (
	EventScreeningCompleted = "SCREENING_COMPLETED"
	EventTradeDecision      = "TRADE_DECISION"
	EventScreenRequested    = "SCREEN_REQUESTED"
)

// ScreeningEvent is published after a screening run completes
type ScreeningEvent struct {
	EventType      string    `json:"event_type"`
	RunID          string    `json:"run_id"`
	Total          int       `json:"total"`
	BullishCount   int       `json:"bullish_count"`
	BearishCount   int       `json:"bearish_count"`
	NeutralCount   int       `json:"neutral_count"`
	BullishSymbols []string  `json:"bullish_symbols"`
	BearishSymbols []string  `json:"bearish_symbols"`
	Timestamp      time.Time `json:"timestamp"`
}

// TradeDecisionEvent is published for every decision of a strategy run
type TradeDecisionEvent struct {
	EventType string         `json:"event_type"`
	Decision  *TradeDecision `json:"decision"`
	Symbol    string         `json:"symbol"`
	Timestamp time.Time      `json:"timestamp"`
}

// ScreenRequest is a command asking the service to run a screen
type ScreenRequest struct {
	EventType        string    `json:"event_type"`
	RequestID        string    `json:"request_id"`
	UseLiveData      bool      `json:"use_live_data"`
	UseMock          bool      `json:"use_mock"`
	IntradayInterval int       `json:"intraday_interval"`
	Timestamp        time.Time `json:"timestamp"`
}
