package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-screener/internal/models"
)

func TestStockRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("UpsertStocks and ListStocks", func(t *testing.T) {
		testDB.TruncateAll(t)

		err := testDB.UpsertStocks(ctx, []models.Stock{
			{Symbol: "TCS", Name: "Tata Consultancy Services", ISIN: "INE467B01029", HasOptions: true},
			{Symbol: "INFY", Name: "Infosys", ISIN: "INE009A01021", HasOptions: true},
		})
		require.NoError(t, err)

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		require.Len(t, stocks, 2)
		assert.Equal(t, "INFY", stocks[0].Symbol)
		assert.Equal(t, "TCS", stocks[1].Symbol)
		assert.Equal(t, "INE467B01029", stocks[1].ISIN)
		assert.True(t, stocks[1].HasOptions)
		assert.False(t, stocks[1].LastUpdated.IsZero())
	})

	t.Run("UpsertStocks keeps a known ISIN when the update has none", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertStocks(ctx, []models.Stock{{Symbol: "TCS", Name: "TCS", ISIN: "INE467B01029"}}))
		require.NoError(t, testDB.UpsertStocks(ctx, []models.Stock{{Symbol: "TCS", Name: "Tata Consultancy", HasOptions: true}}))

		s, err := testDB.GetStock(ctx, "TCS")
		require.NoError(t, err)
		assert.Equal(t, "Tata Consultancy", s.Name)
		assert.Equal(t, "INE467B01029", s.ISIN)
		assert.True(t, s.HasOptions)
	})

	t.Run("GetStock returns ErrNotFound", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetStock(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stock without ISIN lists with empty ISIN", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertStocks(ctx, []models.Stock{{Symbol: "NEWCO", Name: "New Co"}}))

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		require.Len(t, stocks, 1)
		assert.Empty(t, stocks[0].ISIN)
		assert.Empty(t, stocks[0].InstrumentKey())
	})
}
