// Package datasource resolves the daily price history for a symbol through
// the store, live and synthetic fallback chain, and optionally folds today's
// intraday candles into it.
package datasource

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/models"
)

// PriceStore is the persisted daily price history
type PriceStore interface {
	// GetPriceBars returns up to limit bars, newest first
	GetPriceBars(ctx context.Context, symbol string, limit int) ([]models.PriceBar, error)
	// SavePriceBars upserts bars by (symbol, date)
	SavePriceBars(ctx context.Context, symbol string, bars []models.PriceBar) error
}

// MarketClient is the live upstream market data source
type MarketClient interface {
	HistoricalDaily(ctx context.Context, instrumentKey string, from, to time.Time) ([]models.PriceBar, error)
	Intraday(ctx context.Context, instrumentKey string, intervalMinutes int) ([]models.IntradayBar, error)
}

// Generator produces a deterministic synthetic series
type Generator interface {
	Generate(symbol string, days int) []models.PriceBar
}

// Source names the link of the chain that produced a series
type Source string

const (
	SourceStore     Source = "store"
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// Options selects how a series is resolved
type Options struct {
	// Live folds today's intraday candles into the series
	Live bool
	// Mock skips the store and upstream entirely
	Mock bool
	// IntradayInterval is the intraday granularity in minutes
	IntradayInterval int
}

// Chain resolves daily history store first, then live, then synthetic
type Chain struct {
	store     PriceStore
	market    MarketClient
	generator Generator
	clock     clock.Clock
	days      int
	log       zerolog.Logger
}

// NewChain creates a new fallback chain fetching days bars per symbol
func NewChain(store PriceStore, market MarketClient, generator Generator, c clock.Clock, days int, logger zerolog.Logger) *Chain {
	return &Chain{
		store:     store,
		market:    market,
		generator: generator,
		clock:     c,
		days:      days,
		log:       logger.With().Str("component", "datasource").Logger(),
	}
}

// Load resolves the daily series for stock, newest first, and applies live
// augmentation when asked for. It always returns a series.
func (c *Chain) Load(ctx context.Context, stock models.Stock, opts Options) ([]models.PriceBar, Source) {
	var (
		bars []models.PriceBar
		src  Source
	)
	if opts.Mock {
		bars, src = c.generator.Generate(stock.Symbol, c.days), SourceSynthetic
	} else {
		bars, src = c.Daily(ctx, stock)
	}

	if opts.Live && !opts.Mock {
		bars = c.Augment(ctx, stock, bars, opts.IntradayInterval)
	}
	return bars, src
}

// Daily walks the fallback chain without augmentation
func (c *Chain) Daily(ctx context.Context, stock models.Stock) ([]models.PriceBar, Source) {
	logger := c.log.With().Str("symbol", stock.Symbol).Logger()

	if c.store != nil {
		bars, err := c.store.GetPriceBars(ctx, stock.Symbol, c.days)
		if err != nil {
			logger.Warn().Err(err).Msg("price store read failed")
		} else if len(bars) > 0 {
			return bars, SourceStore
		}
	}

	if bars := c.fetchLive(ctx, stock, logger); len(bars) > 0 {
		if c.store != nil {
			if err := c.store.SavePriceBars(ctx, stock.Symbol, bars); err != nil {
				logger.Warn().Err(err).Msg("failed to persist fetched history")
			}
		}
		return bars, SourceLive
	}

	logger.Debug().Msg("no stored or live history, using synthetic series")
	return c.generator.Generate(stock.Symbol, c.days), SourceSynthetic
}

func (c *Chain) fetchLive(ctx context.Context, stock models.Stock, logger zerolog.Logger) []models.PriceBar {
	key := stock.InstrumentKey()
	if c.market == nil || key == "" {
		return nil
	}
	to := clock.Today(c.clock)
	from := to.AddDate(0, 0, -c.days)

	bars, err := c.market.HistoricalDaily(ctx, key, from, to)
	if err != nil {
		logger.Debug().Err(err).Msg("live history unavailable")
		return nil
	}
	return bars
}

// Augment replaces or adds today's bar using intraday candles and returns the
// series re-sorted newest first. Any failure returns bars unchanged.
func (c *Chain) Augment(ctx context.Context, stock models.Stock, bars []models.PriceBar, intervalMinutes int) []models.PriceBar {
	key := stock.InstrumentKey()
	if c.market == nil || key == "" {
		return bars
	}

	intraday, err := c.market.Intraday(ctx, key, intervalMinutes)
	if err != nil || len(intraday) == 0 {
		c.log.Debug().Err(err).Str("symbol", stock.Symbol).Msg("skipping live augmentation")
		return bars
	}

	today := SummarizeIntraday(intraday, clock.Today(c.clock))
	return MergeBar(bars, today)
}

// SummarizeIntraday collapses intraday candles into one daily bar: open of
// the earliest candle, close of the latest, extrema for high and low.
func SummarizeIntraday(candles []models.IntradayBar, date time.Time) models.PriceBar {
	first, last := candles[0], candles[0]
	bar := models.PriceBar{Date: date, High: candles[0].High, Low: candles[0].Low}
	for _, k := range candles {
		if k.Time.Before(first.Time) {
			first = k
		}
		if k.Time.After(last.Time) {
			last = k
		}
		bar.High = max(bar.High, k.High)
		bar.Low = min(bar.Low, k.Low)
		bar.Volume += k.Volume
	}
	bar.Open = first.Open
	bar.Close = last.Close
	return bar
}

// MergeBar replaces the bar with the same date or adds it, returning a new
// slice sorted newest first
func MergeBar(bars []models.PriceBar, bar models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars)+1)
	for _, b := range bars {
		if b.Date.Equal(bar.Date) {
			continue
		}
		out = append(out, b)
	}
	out = append(out, bar)
	models.SortBarsDescending(out)
	return out
}
