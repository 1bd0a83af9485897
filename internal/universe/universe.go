// Package universe is the fixed list of NSE equities the screener covers. It
// is seeded from a YAML file into the stocks table.
package universe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/trogers1052/stock-screener/internal/models"
)

// ErrUnknownSymbol is returned by Lookup for a symbol outside the universe
var ErrUnknownSymbol = errors.New("symbol not in universe")

// Store persists universe members
type Store interface {
	UpsertStocks(ctx context.Context, stocks []models.Stock) error
	ListStocks(ctx context.Context) ([]models.Stock, error)
}

type seedFile struct {
	Stocks []models.Stock `yaml:"stocks"`
}

// LoadFile reads a universe seed file
func LoadFile(path string) ([]models.Stock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a universe seed document, normalizing symbols to upper case
// and rejecting duplicates
func Parse(data []byte) ([]models.Stock, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}

	seen := make(map[string]bool, len(f.Stocks))
	stocks := make([]models.Stock, 0, len(f.Stocks))
	for i, s := range f.Stocks {
		s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
		if s.Symbol == "" {
			return nil, fmt.Errorf("universe entry %d has no symbol", i)
		}
		if seen[s.Symbol] {
			return nil, fmt.Errorf("duplicate universe symbol %s", s.Symbol)
		}
		seen[s.Symbol] = true
		stocks = append(stocks, s)
	}
	return stocks, nil
}

// Universe serves the stock list from the store, falling back to the seed
type Universe struct {
	store Store
	log   zerolog.Logger

	mu   sync.RWMutex
	seed []models.Stock
}

// New creates a new universe over seed; store may be nil
func New(seed []models.Stock, store Store, logger zerolog.Logger) *Universe {
	return &Universe{
		store: store,
		seed:  seed,
		log:   logger.With().Str("component", "universe").Logger(),
	}
}

// Sync upserts the seed into the store and returns how many stocks it wrote
func (u *Universe) Sync(ctx context.Context) (int, error) {
	seed := u.Seed()
	if u.store == nil || len(seed) == 0 {
		return 0, nil
	}
	if err := u.store.UpsertStocks(ctx, seed); err != nil {
		return 0, fmt.Errorf("failed to sync universe: %w", err)
	}
	u.log.Info().Int("stocks", len(seed)).Msg("universe synced")
	return len(seed), nil
}

// Reload re-reads the seed file and syncs it
func (u *Universe) Reload(ctx context.Context, path string) (int, error) {
	stocks, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	u.mu.Lock()
	u.seed = stocks
	u.mu.Unlock()
	return u.Sync(ctx)
}

// Seed returns a copy of the seed list
func (u *Universe) Seed() []models.Stock {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]models.Stock, len(u.seed))
	copy(out, u.seed)
	return out
}

// List returns the universe from the store, filling missing ISINs from the
// seed. The seed itself is returned when the store is empty or unreachable.
func (u *Universe) List(ctx context.Context) ([]models.Stock, error) {
	seed := u.Seed()
	if u.store == nil {
		return seed, nil
	}

	stocks, err := u.store.ListStocks(ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("failed to list stocks, using seed")
		return seed, nil
	}
	if len(stocks) == 0 {
		return seed, nil
	}

	isins := make(map[string]string, len(seed))
	for _, s := range seed {
		isins[s.Symbol] = s.ISIN
	}
	for i := range stocks {
		if stocks[i].ISIN == "" {
			stocks[i].ISIN = isins[stocks[i].Symbol]
		}
	}
	return stocks, nil
}

// Lookup returns the universe entry for symbol, case-insensitively
func (u *Universe) Lookup(ctx context.Context, symbol string) (models.Stock, error) {
	stocks, err := u.List(ctx)
	if err != nil {
		return models.Stock{}, err
	}
	for _, s := range stocks {
		if strings.EqualFold(s.Symbol, symbol) {
			return s, nil
		}
	}
	return models.Stock{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
}
