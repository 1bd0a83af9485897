// Package indicators computes the MACD and Ichimoku indicator set over a daily price series.
package indicators

// MovingAverage returns the exponential moving average of prices. The output has
// the same length as prices; the first period-1 entries are nil and the seed at
// index period-1 is the simple mean of the first period prices. When there are
// fewer than period prices every entry is nil.
func MovingAverage(prices []float64, period int) []*float64 {
	out := make([]*float64, len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	sum := 0.0
	for _, p := range prices[:period] {
		sum += p
	}
	prev := sum / float64(period)
	out[period-1] = ptr(prev)

	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		prev = prices[i]*k + prev*(1-k)
		out[i] = ptr(prev)
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}

// sub returns a-b, or nil when either operand is nil
func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a - *b)
}

// mean returns (a+b)/2, or nil when either operand is nil
func mean(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr((*a + *b) / 2)
}
