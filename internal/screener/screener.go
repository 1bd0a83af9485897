package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

// DefaultConcurrency caps in-flight pipelines
const DefaultConcurrency = 50

// ErrNotFound is returned by ScreenOne when the symbol is unknown or its
// pipeline produced no result
var ErrNotFound = errors.New("stock not found")

// Screener fans the pipeline out over a set of stocks
type Screener struct {
	runner      Runner
	concurrency int
	clock       clock.Clock
	log         zerolog.Logger
}

// New creates a new orchestrator; concurrency <= 0 uses DefaultConcurrency
func New(runner Runner, concurrency int, c clock.Clock, logger zerolog.Logger) *Screener {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Screener{
		runner:      runner,
		concurrency: concurrency,
		clock:       c,
		log:         logger.With().Str("component", "screener").Logger(),
	}
}

// ScreenUniverse screens every stock and returns the bucketed report. Symbols
// whose pipeline failed are left out.
func (s *Screener) ScreenUniverse(ctx context.Context, stocks []models.Stock, opts datasource.Options) *models.ScreeningReport {
	runID := uuid.NewString()
	start := time.Now()

	results := make([]Result, len(stocks))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, stock := range stocks {
		i, stock := i, stock
		g.Go(func() error {
			results[i] = s.runner.Run(ctx, stock, opts)
			return nil
		})
	}
	_ = g.Wait()

	report := Bucket(results)
	report.RunID = runID
	report.Timestamp = s.clock.Now()

	s.log.Info().
		Str("run_id", runID).
		Int("requested", len(stocks)).
		Int("total", report.Total).
		Int("bullish", len(report.Bullish)).
		Int("bearish", len(report.Bearish)).
		Dur("duration", time.Since(start)).
		Msg("screening run complete")
	return report
}

// ScreenOne screens a single stock from stocks by symbol
func (s *Screener) ScreenOne(ctx context.Context, stocks []models.Stock, symbol string, opts datasource.Options) (*models.ScreeningResult, error) {
	for _, stock := range stocks {
		if !strings.EqualFold(stock.Symbol, symbol) {
			continue
		}
		res := s.runner.Run(ctx, stock, opts)
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, stock.Symbol, res.Err)
		}
		return res.Value, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
}

// Bucket keeps successful results, splits them by trend and sorts each
// bucket by ascending intraday strength
func Bucket(results []Result) *models.ScreeningReport {
	report := models.EmptyReport()
	for _, r := range results {
		if r.Err != nil || r.Value == nil {
			continue
		}
		switch r.Value.Trend {
		case models.TrendBullish:
			report.Bullish = append(report.Bullish, r.Value)
		case models.TrendBearish:
			report.Bearish = append(report.Bearish, r.Value)
		default:
			report.Neutral = append(report.Neutral, r.Value)
		}
	}
	for _, bucket := range [][]*models.ScreeningResult{report.Bullish, report.Bearish, report.Neutral} {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].IntradayStrengthPct < bucket[j].IntradayStrengthPct
		})
	}
	report.Total = len(report.Bullish) + len(report.Bearish) + len(report.Neutral)
	return report
}
