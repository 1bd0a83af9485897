package models

import "time"

// Trend is the classification assigned to a screened symbol
type Trend string

// Trend constants
const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral/Mixed"
)

// Color returns the display color associated with the trend
func (t Trend) Color() string {
	switch t {
	case TrendBullish:
		return "green"
	case TrendBearish:
		return "red"
	default:
		return "gray"
	}
}

// MACDHistSnapshot is one of the recent histogram/close pairs shown with a result
type MACDHistSnapshot struct {
	Day      int       `json:"day"`
	Date     time.Time `json:"date"`
	MACDHist float64   `json:"macd_hist"`
	Close    float64   `json:"close"`
}

// ScreeningResult is the immutable per-symbol outcome of one screening run
type ScreeningResult struct {
	Symbol              string             `json:"symbol"`
	Name                string             `json:"name"`
	CurrentPrice        float64            `json:"current_price"`
	HighPrice           float64            `json:"high_price"`
	LowPrice            float64            `json:"low_price"`
	OpenPrice           float64            `json:"open_price"`
	SenkouSpanB         float64            `json:"senkou_span_b"`
	MACDHist            float64            `json:"macd_hist"`
	PrevMACDHist        float64            `json:"prev_macd_hist"`
	Trend               Trend              `json:"trend"`
	Color               string             `json:"color"`
	MACDDiffs5d         []float64          `json:"macd_diffs_5d"`
	MACDHistValues      []MACDHistSnapshot `json:"macd_hist_values"`
	IntradayStrengthPct float64            `json:"intraday_strength_pct"`
	Indicators          []IndicatorPoint   `json:"indicators"`
	RawData             []PriceBar         `json:"raw_data"`
	LastUpdated         time.Time          `json:"last_updated"`
}

// ScreeningReport is the bucketed outcome of screening the whole universe
type ScreeningReport struct {
	RunID     string             `json:"run_id"`
	Bullish   []*ScreeningResult `json:"bullish"`
	Bearish   []*ScreeningResult `json:"bearish"`
	Neutral   []*ScreeningResult `json:"neutral"`
	Total     int                `json:"total"`
	Timestamp time.Time          `json:"timestamp"`
}

// EmptyReport returns a report with no results
func EmptyReport() *ScreeningReport {
	return &ScreeningReport{
		Bullish: []*ScreeningResult{},
		Bearish: []*ScreeningResult{},
		Neutral: []*ScreeningResult{},
	}
}

// ScreeningHistory is a persisted per-symbol summary of a past run
type ScreeningHistory struct {
	ID                  int       `json:"id"`
	RunID               string    `json:"run_id"`
	Symbol              string    `json:"symbol"`
	Trend               Trend     `json:"trend"`
	CurrentPrice        float64   `json:"current_price"`
	MACDHist            float64   `json:"macd_hist"`
	SenkouSpanB         float64   `json:"senkou_span_b"`
	IntradayStrengthPct float64   `json:"intraday_strength_pct"`
	ScreenedAt          time.Time `json:"screened_at"`
}
