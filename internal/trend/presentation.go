package trend

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-screener/internal/models"
)

// HistogramDiffs returns the day-over-day histogram changes for the five most
// recent days, rounded to 4 places. A missing value on either side counts as 0.
func HistogramDiffs(series []models.IndicatorPoint) []float64 {
	diffs := make([]float64, diffWindow)
	for i := 0; i < diffWindow; i++ {
		if i+1 >= len(series) {
			continue
		}
		curr, prev := series[i].MACDHist, series[i+1].MACDHist
		if curr == nil || prev == nil {
			continue
		}
		diffs[i] = Round(*curr-*prev, 4)
	}
	return diffs
}

// HistogramSnapshots returns the histogram and close of the six most recent
// days, skipping days without a histogram value.
func HistogramSnapshots(series []models.IndicatorPoint) []models.MACDHistSnapshot {
	snaps := make([]models.MACDHistSnapshot, 0, snapshotWindow)
	for i := 0; i < snapshotWindow && i < len(series); i++ {
		if series[i].MACDHist == nil {
			continue
		}
		snaps = append(snaps, models.MACDHistSnapshot{
			Day:      i,
			Date:     series[i].Date,
			MACDHist: Round(*series[i].MACDHist, 4),
			Close:    Round(series[i].Close, 2),
		})
	}
	return snaps
}

// IntradayStrength measures how much of the day's favorable range has been
// given back, as a percentage of the price.
func IntradayStrength(q Quote) float64 {
	if q.Price <= 0 {
		return 0
	}
	if q.Price > q.Open {
		return (q.High - q.Price) / q.Price * 100
	}
	return (q.Price - q.Low) / q.Price * 100
}

// Round rounds v half away from zero to the given number of places
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
