package indicators

import "github.com/trogers1052/stock-screener/internal/models"

// Default Ichimoku windows
const (
	DefaultTenkanPeriod  = 9
	DefaultKijunPeriod   = 26
	DefaultSenkouBPeriod = 52
)

// IchimokuPoint holds the Ichimoku lines at one index
type IchimokuPoint struct {
	TenkanSen   *float64
	KijunSen    *float64
	SenkouSpanA *float64
	SenkouSpanB *float64
	ChikouSpan  *float64
}

// Ichimoku computes the Ichimoku lines for each bar of an ascending series.
//
// Chikou span is the close at the same index, without the conventional
// backward shift; the trend classifier compares it against the close 26 bars back.
func Ichimoku(bars []models.PriceBar, tenkan, kijun, senkouB int) []IchimokuPoint {
	out := make([]IchimokuPoint, len(bars))
	for i := range bars {
		p := IchimokuPoint{
			TenkanSen:   midpoint(bars, i, tenkan),
			KijunSen:    midpoint(bars, i, kijun),
			SenkouSpanB: midpoint(bars, i, senkouB),
			ChikouSpan:  ptr(bars[i].Close),
		}
		p.SenkouSpanA = mean(p.TenkanSen, p.KijunSen)
		out[i] = p
	}
	return out
}

// midpoint returns the mid of the highest high and lowest low over the window
// ending at i, or nil when the window does not fit
func midpoint(bars []models.PriceBar, i, window int) *float64 {
	if window <= 0 || i < window-1 {
		return nil
	}
	high := bars[i-window+1].High
	low := bars[i-window+1].Low
	for j := i - window + 2; j <= i; j++ {
		if bars[j].High > high {
			high = bars[j].High
		}
		if bars[j].Low < low {
			low = bars[j].Low
		}
	}
	return ptr((high + low) / 2)
}
