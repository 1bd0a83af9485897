package strategy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/models"
)

const (
	DefaultBuyBufferPct    = 0.2
	DefaultProfitTargetPct = 2.5
	DefaultConcurrency     = 5
)

// OptionsClient is the upstream option data the executor needs
type OptionsClient interface {
	OptionContracts(ctx context.Context, instrumentKey, expiry string) ([]models.OptionContract, error)
	LTP(ctx context.Context, instrumentKey string) (float64, error)
}

// StockLookup resolves a symbol to its universe entry
type StockLookup interface {
	Lookup(ctx context.Context, symbol string) (models.Stock, error)
}

// DecisionStore appends the decisions of a strategy run
type DecisionStore interface {
	SaveTradeDecisions(ctx context.Context, decisions []*models.TradeDecision) error
}

// DecisionPublisher announces individual decisions
type DecisionPublisher interface {
	PublishTradeDecision(ctx context.Context, d *models.TradeDecision) error
}

// Config holds strategy settings. A nil BuyBufferPct uses
// DefaultBuyBufferPct; zero is a valid buffer.
type Config struct {
	BuyBufferPct *float64
	Concurrency  int
}

// Executor prices option trades for flagged symbols. No order is placed;
// decisions are returned, stored and published for the caller to act on.
type Executor struct {
	client       OptionsClient
	stocks       StockLookup
	store        DecisionStore
	publisher    DecisionPublisher
	clock        clock.Clock
	buyBufferPct float64
	concurrency  int
	log          zerolog.Logger
}

// NewExecutor creates a new strategy executor. store and publisher may be nil.
func NewExecutor(client OptionsClient, stocks StockLookup, store DecisionStore, publisher DecisionPublisher, c clock.Clock, cfg Config, logger zerolog.Logger) *Executor {
	buffer := DefaultBuyBufferPct
	if cfg.BuyBufferPct != nil && *cfg.BuyBufferPct >= 0 {
		buffer = *cfg.BuyBufferPct
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Executor{
		client:       client,
		stocks:       stocks,
		store:        store,
		publisher:    publisher,
		clock:        c,
		buyBufferPct: buffer,
		concurrency:  cfg.Concurrency,
		log:          logger.With().Str("component", "strategy").Logger(),
	}
}

// Execute decides every candidate independently and returns the decisions
// in input order. A negative profitTargetPct uses DefaultProfitTargetPct.
func (e *Executor) Execute(ctx context.Context, candidates []models.TradeCandidate, profitTargetPct float64) []*models.TradeDecision {
	if profitTargetPct < 0 {
		profitTargetPct = DefaultProfitTargetPct
	}
	runID := uuid.NewString()

	decisions := make([]*models.TradeDecision, len(candidates))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			d := e.decide(ctx, c, profitTargetPct)
			d.RunID = runID
			decisions[i] = d
			return nil
		})
	}
	_ = g.Wait()

	if e.store != nil && len(decisions) > 0 {
		if err := e.store.SaveTradeDecisions(ctx, decisions); err != nil {
			e.log.Error().Err(err).Str("run_id", runID).Msg("failed to save trade decisions")
		}
	}
	if e.publisher != nil {
		for _, d := range decisions {
			if err := e.publisher.PublishTradeDecision(ctx, d); err != nil {
				e.log.Error().Err(err).Str("symbol", d.Symbol).Msg("failed to publish trade decision")
			}
		}
	}
	return decisions
}

// decide runs the pending -> skipped|failed|success|exception transition
func (e *Executor) decide(ctx context.Context, c models.TradeCandidate, profitTargetPct float64) (d *models.TradeDecision) {
	d = &models.TradeDecision{
		Symbol:       c.Symbol,
		Trend:        c.Trend,
		CurrentPrice: c.CurrentPrice,
		Status:       models.DecisionPending,
		CreatedAt:    e.clock.Now(),
	}
	logger := e.log.With().Str("symbol", c.Symbol).Logger()

	defer func() {
		if r := recover(); r != nil {
			d.Status = models.DecisionException
			d.Error = fmt.Sprint(r)
		}
		logger.Debug().Str("status", d.Status).Str("error", d.Error).Msg("trade decision")
	}()

	fail := func(format string, args ...any) *models.TradeDecision {
		d.Status = models.DecisionFailed
		d.Error = fmt.Sprintf(format, args...)
		return d
	}

	optionType, ok := OptionTypeFor(c.Trend)
	if !ok {
		d.Status = models.DecisionSkipped
		d.Error = "Stock is not Bullish or Bearish"
		return d
	}
	d.OptionType = optionType

	stock, err := e.stocks.Lookup(ctx, c.Symbol)
	if err != nil || stock.InstrumentKey() == "" {
		return fail("Could not find ISIN for %s", c.Symbol)
	}

	contracts, err := e.client.OptionContracts(ctx, stock.InstrumentKey(), "")
	if err != nil {
		return fail("Could not get expiry: %v", err)
	}
	expiry, ok := NearestExpiry(contracts)
	if !ok {
		return fail("Could not get expiry: no expiry dates found")
	}
	d.Expiry = expiry

	contract, err := FindClosestITM(forExpiry(contracts, expiry), optionType, c.CurrentPrice)
	if err != nil {
		return fail("Could not find ITM option: %v", err)
	}
	d.StrikePrice = decimal.NewFromFloat(contract.StrikePrice)
	d.TradingSymbol = contract.TradingSymbol
	d.LotSize = contract.LotSize
	if d.LotSize == 0 {
		d.LotSize = 1
	}

	if contract.InstrumentKey == "" {
		return fail("No instrument key in contract")
	}
	d.InstrumentKey = contract.InstrumentKey

	ltp, err := e.client.LTP(ctx, contract.InstrumentKey)
	if err != nil {
		return fail("Could not get option LTP: %v", err)
	}
	if ltp == 0 {
		return fail("Could not get option LTP: empty price")
	}
	d.OptionLTP = decimal.NewFromFloat(ltp)
	d.BuyLimitPrice, d.SellTargetPrice = SizeTrade(ltp, e.buyBufferPct, profitTargetPct)

	d.Status = models.DecisionSuccess
	return d
}

func forExpiry(contracts []models.OptionContract, expiry string) []models.OptionContract {
	out := make([]models.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if c.Expiry == expiry {
			out = append(out, c)
		}
	}
	return out
}
