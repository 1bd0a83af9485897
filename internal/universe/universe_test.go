package universe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-screener/internal/models"
)

const seedYAML = `
stocks:
  - symbol: reliance
    name: Reliance Industries
    isin: INE002A01018
    has_options: true
  - symbol: TCS
    name: Tata Consultancy Services
    isin: INE467B01029
    has_options: true
`

type memStore struct {
	stocks  []models.Stock
	listErr error
	upserts int
}

func (m *memStore) UpsertStocks(_ context.Context, stocks []models.Stock) error {
	m.upserts++
	m.stocks = stocks
	return nil
}

func (m *memStore) ListStocks(context.Context) ([]models.Stock, error) {
	return m.stocks, m.listErr
}

func TestParse(t *testing.T) {
	stocks, err := Parse([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "RELIANCE", stocks[0].Symbol)
	assert.True(t, stocks[0].HasOptions)
	assert.Equal(t, "NSE_EQ|INE467B01029", stocks[1].InstrumentKey())

	_, err = Parse([]byte("stocks:\n  - symbol: A\n  - symbol: a\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte("stocks:\n  - name: nameless\n"))
	assert.ErrorContains(t, err, "no symbol")
}

func TestBundledSeedFile(t *testing.T) {
	stocks, err := LoadFile(filepath.Join("..", "..", "config", "universe.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, stocks)
	for _, s := range stocks {
		assert.Len(t, s.ISIN, 12, s.Symbol)
	}
}

func TestList(t *testing.T) {
	seed, err := Parse([]byte(seedYAML))
	require.NoError(t, err)

	t.Run("store rows win and missing isin is filled", func(t *testing.T) {
		store := &memStore{stocks: []models.Stock{{Symbol: "RELIANCE", Name: "RIL"}}}
		got, err := New(seed, store, zerolog.Nop()).List(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "RIL", got[0].Name)
		assert.Equal(t, "INE002A01018", got[0].ISIN)
	})

	t.Run("empty store falls back to seed", func(t *testing.T) {
		got, err := New(seed, &memStore{}, zerolog.Nop()).List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, seed, got)
	})

	t.Run("store failure falls back to seed", func(t *testing.T) {
		got, err := New(seed, &memStore{listErr: errors.New("down")}, zerolog.Nop()).List(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestLookup(t *testing.T) {
	seed, err := Parse([]byte(seedYAML))
	require.NoError(t, err)
	u := New(seed, nil, zerolog.Nop())

	got, err := u.Lookup(context.Background(), "tcs")
	require.NoError(t, err)
	assert.Equal(t, "TCS", got.Symbol)

	_, err = u.Lookup(context.Background(), "WIPRO")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestSyncAndReload(t *testing.T) {
	store := &memStore{}
	u := New(nil, store, zerolog.Nop())

	n, err := u.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.upserts)

	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	n, err = u.Reload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.upserts)
	assert.Len(t, u.Seed(), 2)

	_, err = u.Reload(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
