// Package trend classifies a symbol as Bullish, Bearish or Neutral from its
// MACD and Ichimoku indicator series.
package trend

import (
	"errors"

	"github.com/trogers1052/stock-screener/internal/models"
)

const (
	// MinPoints is the minimum descending indicator series length Classify accepts
	MinPoints = 6

	// LagOffset is how many bars back the cloud and chikou confirmation looks
	LagOffset = 26

	diffWindow     = 5
	snapshotWindow = 6
)

var (
	// ErrInsufficientData is returned for a series shorter than MinPoints
	ErrInsufficientData = errors.New("insufficient indicator history")

	// ErrMissingIndicator is returned when senkou span B or either of the two
	// most recent histogram values is undefined
	ErrMissingIndicator = errors.New("required indicator value is undefined")
)

// Quote is the current day's price picture used to judge the latest bar
type Quote struct {
	Price float64
	Open  float64
	High  float64
	Low   float64
}

// Gates records the individual conditions evaluated for a classification
type Gates struct {
	CloudBullish        bool `json:"cloud_bullish"`
	CloudBearish        bool `json:"cloud_bearish"`
	HistIncreasing      bool `json:"hist_increasing"`
	HistDecreasing      bool `json:"hist_decreasing"`
	MACDPositive        bool `json:"macd_positive"`
	MACDNegative        bool `json:"macd_negative"`
	BullishConfirmation bool `json:"bullish_confirmation"`
	BearishConfirmation bool `json:"bearish_confirmation"`
	BullishCandle       bool `json:"bullish_candle"`
	BearishCandle       bool `json:"bearish_candle"`
}

// Classification is the classifier output for one symbol
type Classification struct {
	Trend               models.Trend
	Gates               Gates
	SenkouSpanB         float64
	MACDHist            float64
	PrevMACDHist        float64
	MACDDiffs           []float64
	Snapshots           []models.MACDHistSnapshot
	IntradayStrengthPct float64
}

// Classify evaluates the trend gates over a newest-first indicator series.
func Classify(series []models.IndicatorPoint, q Quote) (*Classification, error) {
	if len(series) < MinPoints {
		return nil, ErrInsufficientData
	}
	latest, previous := series[0], series[1]
	if latest.SenkouSpanB == nil || latest.MACDHist == nil || previous.MACDHist == nil {
		return nil, ErrMissingIndicator
	}

	spanB := *latest.SenkouSpanB
	hist := *latest.MACDHist
	prevHist := *previous.MACDHist

	g := Gates{
		CloudBullish:   q.Price > spanB,
		CloudBearish:   q.Price < spanB,
		HistIncreasing: hist > prevHist,
		HistDecreasing: hist < prevHist,
		MACDPositive:   hist > 0 && latest.MACDSignal != nil && *latest.MACDSignal > 0,
		MACDNegative:   hist < 0 && latest.MACDSignal != nil && *latest.MACDSignal < 0,
		BullishCandle:  latest.Close > latest.Open,
		BearishCandle:  latest.Close < latest.Open,
	}
	g.BullishConfirmation, g.BearishConfirmation = lagConfirmation(series, q.Price)

	t := models.TrendNeutral
	switch {
	case g.CloudBullish && g.MACDPositive && g.HistIncreasing && g.BullishConfirmation && g.BullishCandle:
		t = models.TrendBullish
	case g.CloudBearish && g.MACDNegative && g.HistDecreasing && g.BearishConfirmation && g.BearishCandle:
		t = models.TrendBearish
	}

	return &Classification{
		Trend:               t,
		Gates:               g,
		SenkouSpanB:         spanB,
		MACDHist:            hist,
		PrevMACDHist:        prevHist,
		MACDDiffs:           HistogramDiffs(series),
		Snapshots:           HistogramSnapshots(series),
		IntradayStrengthPct: IntradayStrength(q),
	}, nil
}

// lagConfirmation checks cloud color, price position against the cloud and
// chikou against the close LagOffset bars back. Both are false when the series
// is not long enough or a needed value is undefined.
func lagConfirmation(series []models.IndicatorPoint, price float64) (bullish, bearish bool) {
	if len(series) <= LagOffset {
		return false, false
	}
	lagged := series[LagOffset]
	chikou := series[0].ChikouSpan
	if lagged.SenkouSpanA == nil || lagged.SenkouSpanB == nil || chikou == nil {
		return false, false
	}
	a, b := *lagged.SenkouSpanA, *lagged.SenkouSpanB
	close26 := lagged.Close

	bullish = a > b && price > a && price > b && *chikou > close26
	bearish = b > a && price < a && price < b && *chikou < close26
	return bullish, bearish
}
