// Package screener runs the per-symbol screening pipeline across the
// universe under a fixed concurrency budget and buckets the outcome by trend.
package screener

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/indicators"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/trend"
)

// Loader resolves the daily history of a stock
type Loader interface {
	Load(ctx context.Context, stock models.Stock, opts datasource.Options) ([]models.PriceBar, datasource.Source)
}

// Result is the outcome of one symbol's pipeline. Exactly one of Value and
// Err is set.
type Result struct {
	Symbol string
	Value  *models.ScreeningResult
	Err    error
}

// Runner screens a single stock
type Runner interface {
	Run(ctx context.Context, stock models.Stock, opts datasource.Options) Result
}

// Pipeline is data source, indicator engine and trend classifier for one symbol
type Pipeline struct {
	loader Loader
	clock  clock.Clock
	log    zerolog.Logger
}

// NewPipeline creates a new per-symbol pipeline
func NewPipeline(loader Loader, c clock.Clock, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader: loader,
		clock:  c,
		log:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run screens one stock. Faults, panics included, come back as Result.Err.
func (p *Pipeline) Run(ctx context.Context, stock models.Stock, opts datasource.Options) (res Result) {
	res.Symbol = stock.Symbol
	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = fmt.Errorf("pipeline panic: %v", r)
		}
		if res.Err != nil {
			p.log.Debug().Err(res.Err).Str("symbol", stock.Symbol).Msg("symbol omitted")
		}
	}()

	res.Value, res.Err = p.screen(ctx, stock, opts)
	return res
}

func (p *Pipeline) screen(ctx context.Context, stock models.Stock, opts datasource.Options) (*models.ScreeningResult, error) {
	bars, src := p.loader.Load(ctx, stock, opts)
	if len(bars) < indicators.MinBars {
		return nil, fmt.Errorf("%s history has %d bars: %w", src, len(bars), indicators.ErrInsufficientData)
	}

	latest := bars[0]
	q := trend.Quote{Price: latest.Close, Open: latest.Open, High: latest.High, Low: latest.Low}

	series, err := indicators.Compute(models.ReverseBars(bars))
	if err != nil {
		return nil, fmt.Errorf("failed to compute indicators: %w", err)
	}

	c, err := trend.Classify(series, q)
	if err != nil {
		return nil, fmt.Errorf("failed to classify: %w", err)
	}

	return &models.ScreeningResult{
		Symbol:              stock.Symbol,
		Name:                stock.Name,
		CurrentPrice:        trend.Round(q.Price, 2),
		HighPrice:           trend.Round(q.High, 2),
		LowPrice:            trend.Round(q.Low, 2),
		OpenPrice:           trend.Round(q.Open, 2),
		SenkouSpanB:         trend.Round(c.SenkouSpanB, 2),
		MACDHist:            trend.Round(c.MACDHist, 4),
		PrevMACDHist:        trend.Round(c.PrevMACDHist, 4),
		Trend:               c.Trend,
		Color:               c.Trend.Color(),
		MACDDiffs5d:         c.MACDDiffs,
		MACDHistValues:      c.Snapshots,
		IntradayStrengthPct: trend.Round(c.IntradayStrengthPct, 4),
		Indicators:          series,
		RawData:             bars,
		LastUpdated:         p.clock.Now(),
	}, nil
}
