package indicators

// Default MACD periods
const (
	DefaultFastPeriod   = 12
	DefaultSlowPeriod   = 26
	DefaultSignalPeriod = 9
)

// MACD computes the MACD line, its signal line and the histogram over prices.
// All three slices have len(prices) entries. With fewer than slow+signal prices
// all three are entirely nil.
func MACD(prices []float64, fast, slow, signal int) (macdLine, signalLine, histogram []*float64) {
	n := len(prices)
	macdLine = make([]*float64, n)
	signalLine = make([]*float64, n)
	histogram = make([]*float64, n)
	if n < slow+signal {
		return macdLine, signalLine, histogram
	}

	fastEMA := MovingAverage(prices, fast)
	slowEMA := MovingAverage(prices, slow)
	for i := range prices {
		macdLine[i] = sub(fastEMA[i], slowEMA[i])
	}

	// the signal line is smoothed over the defined MACD values only and then
	// right-aligned back onto the full series
	compact := make([]float64, 0, n)
	for _, m := range macdLine {
		if m != nil {
			compact = append(compact, *m)
		}
	}
	if len(compact) < signal {
		return macdLine, signalLine, histogram
	}

	smoothed := MovingAverage(compact, signal)
	offset := n - len(smoothed)
	copy(signalLine[offset:], smoothed)

	for i := range prices {
		histogram[i] = sub(macdLine[i], signalLine[i])
	}
	return macdLine, signalLine, histogram
}
