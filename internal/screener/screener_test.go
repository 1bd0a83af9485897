package screener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/indicators"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/synthetic"
)

var fixed = clock.Fixed{At: time.Date(2024, 6, 3, 11, 0, 0, 0, clock.IST)}

type stubLoader struct {
	gen *synthetic.Generator
}

func (l stubLoader) Load(_ context.Context, stock models.Stock, _ datasource.Options) ([]models.PriceBar, datasource.Source) {
	switch stock.Symbol {
	case "PANIC":
		panic("boom")
	case "SHORT":
		return l.gen.Generate(stock.Symbol, 59), datasource.SourceSynthetic
	}
	return l.gen.Generate(stock.Symbol, synthetic.DefaultDays), datasource.SourceSynthetic
}

func newPipeline() *Pipeline {
	return NewPipeline(stubLoader{gen: synthetic.New(fixed)}, fixed, zerolog.Nop())
}

func TestPipelineRun(t *testing.T) {
	t.Run("produces a rounded result", func(t *testing.T) {
		res := newPipeline().Run(context.Background(), models.Stock{Symbol: "RELIANCE", Name: "Reliance Industries"}, datasource.Options{})
		require.NoError(t, res.Err)
		require.NotNil(t, res.Value)

		v := res.Value
		assert.Equal(t, "RELIANCE", v.Symbol)
		assert.Equal(t, "Reliance Industries", v.Name)
		assert.Equal(t, v.Trend.Color(), v.Color)
		assert.Len(t, v.MACDDiffs5d, 5)
		assert.Len(t, v.Indicators, synthetic.DefaultDays)
		assert.Equal(t, v.RawData[0].Close, v.CurrentPrice)
		assert.Equal(t, fixed.Now(), v.LastUpdated)
		assert.GreaterOrEqual(t, v.IntradayStrengthPct, 0.0)
	})

	t.Run("short history is insufficient", func(t *testing.T) {
		res := newPipeline().Run(context.Background(), models.Stock{Symbol: "SHORT"}, datasource.Options{})
		assert.Nil(t, res.Value)
		assert.ErrorIs(t, res.Err, indicators.ErrInsufficientData)
	})

	t.Run("panic is contained", func(t *testing.T) {
		res := newPipeline().Run(context.Background(), models.Stock{Symbol: "PANIC"}, datasource.Options{})
		assert.Nil(t, res.Value)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "boom")
		assert.Equal(t, "PANIC", res.Symbol)
	})
}

// trackingRunner records the peak number of concurrent Run calls
type trackingRunner struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     string
	strength map[string]float64
	trends   map[string]models.Trend
}

func (r *trackingRunner) Run(_ context.Context, stock models.Stock, _ datasource.Options) Result {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if stock.Symbol == r.fail {
		return Result{Symbol: stock.Symbol, Err: errors.New("upstream exploded")}
	}
	tr := models.TrendNeutral
	if t, ok := r.trends[stock.Symbol]; ok {
		tr = t
	}
	return Result{Symbol: stock.Symbol, Value: &models.ScreeningResult{
		Symbol:              stock.Symbol,
		Trend:               tr,
		IntradayStrengthPct: r.strength[stock.Symbol],
	}}
}

func universe(n int) []models.Stock {
	stocks := make([]models.Stock, n)
	for i := range stocks {
		stocks[i] = models.Stock{Symbol: fmt.Sprintf("SYM%03d", i)}
	}
	return stocks
}

func TestScreenUniverse(t *testing.T) {
	t.Run("faulting symbol is omitted", func(t *testing.T) {
		runner := &trackingRunner{fail: "SYM003"}
		s := New(runner, 4, fixed, zerolog.Nop())

		report := s.ScreenUniverse(context.Background(), universe(10), datasource.Options{})

		assert.Equal(t, 9, report.Total)
		assert.Len(t, report.Neutral, 9)
		for _, r := range report.Neutral {
			assert.NotEqual(t, "SYM003", r.Symbol)
		}
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, fixed.Now(), report.Timestamp)
	})

	t.Run("in-flight pipelines never exceed the cap", func(t *testing.T) {
		runner := &trackingRunner{}
		s := New(runner, 3, fixed, zerolog.Nop())

		s.ScreenUniverse(context.Background(), universe(30), datasource.Options{})

		assert.LessOrEqual(t, runner.peak.Load(), int32(3))
		assert.Greater(t, runner.peak.Load(), int32(1))
	})

	t.Run("default cap", func(t *testing.T) {
		s := New(&trackingRunner{}, 0, fixed, zerolog.Nop())
		assert.Equal(t, DefaultConcurrency, s.concurrency)
	})
}

func TestBucket(t *testing.T) {
	res := func(sym string, tr models.Trend, strength float64) Result {
		return Result{Symbol: sym, Value: &models.ScreeningResult{Symbol: sym, Trend: tr, IntradayStrengthPct: strength}}
	}
	report := Bucket([]Result{
		res("A", models.TrendBullish, 1.5),
		res("B", models.TrendBearish, 0.2),
		res("C", models.TrendBullish, 0.3),
		{Symbol: "D", Err: errors.New("no data")},
		res("E", models.TrendNeutral, 2),
		res("F", models.TrendBullish, 0.3),
		res("G", models.TrendNeutral, 0.1),
	})

	assert.Equal(t, 6, report.Total)
	require.Len(t, report.Bullish, 3)
	assert.Equal(t, "C", report.Bullish[0].Symbol)
	assert.Equal(t, "F", report.Bullish[1].Symbol)
	assert.Equal(t, "A", report.Bullish[2].Symbol)
	require.Len(t, report.Bearish, 1)
	require.Len(t, report.Neutral, 2)
	assert.Equal(t, "G", report.Neutral[0].Symbol)

	empty := Bucket(nil)
	assert.NotNil(t, empty.Bullish)
	assert.Zero(t, empty.Total)
}

func TestScreenOne(t *testing.T) {
	s := New(&trackingRunner{fail: "SYM001"}, 2, fixed, zerolog.Nop())
	stocks := universe(3)

	got, err := s.ScreenOne(context.Background(), stocks, "sym000", datasource.Options{})
	require.NoError(t, err)
	assert.Equal(t, "SYM000", got.Symbol)

	_, err = s.ScreenOne(context.Background(), stocks, "SYM001", datasource.Options{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ScreenOne(context.Background(), stocks, "NOPE", datasource.Options{})
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeUniverse struct {
	stocks []models.Stock
	err    error
}

func (u fakeUniverse) List(context.Context) ([]models.Stock, error) { return u.stocks, u.err }

type fakeCache struct {
	mu     sync.Mutex
	report *models.ScreeningReport
}

func (c *fakeCache) Store(_ context.Context, r *models.ScreeningReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = r
	return nil
}

func (c *fakeCache) Latest(context.Context) (*models.ScreeningReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report, nil
}

type fakeHistory struct{ runs []string }

func (h *fakeHistory) SaveScreeningHistory(_ context.Context, r *models.ScreeningReport) error {
	h.runs = append(h.runs, r.RunID)
	return errors.New("history table missing")
}

type fakePublisher struct{ events int }

func (p *fakePublisher) PublishScreeningCompleted(context.Context, *models.ScreeningReport) error {
	p.events++
	return nil
}

func TestService(t *testing.T) {
	cache := &fakeCache{}
	history := &fakeHistory{}
	pub := &fakePublisher{}
	runner := &trackingRunner{trends: map[string]models.Trend{"SYM000": models.TrendBullish}}
	svc := NewService(New(runner, 2, fixed, zerolog.Nop()), fakeUniverse{stocks: universe(4)}, cache, history, pub, zerolog.Nop())

	assert.Zero(t, svc.Latest(context.Background()).Total)

	report, err := svc.Run(context.Background(), datasource.Options{})
	require.NoError(t, err, "history failure does not fail the run")
	assert.Equal(t, 4, report.Total)
	assert.Len(t, report.Bullish, 1)
	assert.Same(t, report, svc.Latest(context.Background()))
	assert.Equal(t, []string{report.RunID}, history.runs)
	assert.Equal(t, 1, pub.events)

	t.Run("universe failure", func(t *testing.T) {
		svc := NewService(New(runner, 2, fixed, zerolog.Nop()), fakeUniverse{err: errors.New("db down")}, &fakeCache{}, nil, nil, zerolog.Nop())
		_, err := svc.Run(context.Background(), datasource.Options{})
		assert.Error(t, err)
	})
}
