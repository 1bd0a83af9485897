package indicators

import (
	"errors"

	"github.com/trogers1052/stock-screener/internal/models"
)

// MinBars is the minimum ascending series length Compute accepts
const MinBars = 60

// ErrInsufficientData is returned when a series is too short for the indicator windows
var ErrInsufficientData = errors.New("insufficient data")

// Compute runs MACD and Ichimoku over an ascending series and returns the
// combined points newest first.
func Compute(bars []models.PriceBar) ([]models.IndicatorPoint, error) {
	if len(bars) < MinBars {
		return nil, ErrInsufficientData
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	macdLine, signalLine, hist := MACD(closes, DefaultFastPeriod, DefaultSlowPeriod, DefaultSignalPeriod)
	cloud := Ichimoku(bars, DefaultTenkanPeriod, DefaultKijunPeriod, DefaultSenkouBPeriod)

	n := len(bars)
	points := make([]models.IndicatorPoint, n)
	for i, b := range bars {
		points[n-1-i] = models.IndicatorPoint{
			PriceBar:    b,
			MACD:        macdLine[i],
			MACDSignal:  signalLine[i],
			MACDHist:    hist[i],
			TenkanSen:   cloud[i].TenkanSen,
			KijunSen:    cloud[i].KijunSen,
			SenkouSpanA: cloud[i].SenkouSpanA,
			SenkouSpanB: cloud[i].SenkouSpanB,
			ChikouSpan:  cloud[i].ChikouSpan,
		}
	}
	return points, nil
}
