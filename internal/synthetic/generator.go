// Package synthetic produces random-walk daily bars for symbols that have no
// stored or live history. The series depends only on the symbol and the
// anchor date, so repeated calls on the same day agree.
package synthetic

import (
	"hash/fnv"
	"math/rand"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/trend"
)

// DefaultDays is the history length the pipeline asks for.
const DefaultDays = 200

// Generator builds deterministic synthetic daily series.
type Generator struct {
	clock clock.Clock
}

func New(c clock.Clock) *Generator {
	return &Generator{clock: c}
}

// Generate returns days bars ending on the clock's current date, newest first.
func (g *Generator) Generate(symbol string, days int) []models.PriceBar {
	if days <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed(symbol)))
	end := clock.Today(g.clock)

	price := uniform(rng, 100, 5000)
	volatility := uniform(rng, 0.01, 0.03)

	bars := make([]models.PriceBar, days)
	for i := 0; i < days; i++ {
		price *= 1 + 0.0002 + rng.NormFloat64()*volatility
		dailyRange := price * uniform(rng, 0.01, 0.03)
		open := price + uniform(rng, -dailyRange/2, dailyRange/2)
		high := max(open, price) + uniform(rng, 0, dailyRange/2)
		low := min(open, price) - uniform(rng, 0, dailyRange/2)

		// newest first: the last generated bar lands at index 0
		bars[days-1-i] = models.PriceBar{
			Date:   end.AddDate(0, 0, -(days - 1 - i)),
			Open:   trend.Round(open, 2),
			High:   trend.Round(high, 2),
			Low:    trend.Round(low, 2),
			Close:  trend.Round(price, 2),
			Volume: int64(uniform(rng, 100000, 10000000)),
		}
	}
	return bars
}

func seed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
