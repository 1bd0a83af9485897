package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

type mockRunner struct {
	calls []datasource.Options
	err   error
}

func (m *mockRunner) Run(_ context.Context, opts datasource.Options) (*models.ScreeningReport, error) {
	m.calls = append(m.calls, opts)
	if m.err != nil {
		return nil, m.err
	}
	return models.EmptyReport(), nil
}

type mockStore struct {
	priceKeep     int
	priceCutoff   time.Time
	historyCutoff time.Time
	priceErr      error
}

func (m *mockStore) DeletePriceBarsOlderThan(_ context.Context, cutoff time.Time, keep int) (int64, error) {
	m.priceCutoff = cutoff
	m.priceKeep = keep
	return 3, m.priceErr
}

func (m *mockStore) DeleteScreeningHistoryOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.historyCutoff = cutoff
	return 1, nil
}

func at(hour, min int) clock.Fixed {
	return clock.Fixed{At: time.Date(2024, 1, 15, hour, min, 0, 0, clock.IST)}
}

func TestRunRescreen(t *testing.T) {
	t.Run("runs live while the market is open", func(t *testing.T) {
		runner := &mockRunner{}
		s := New(context.Background(), runner, nil, at(11, 0), Config{IntradayInterval: 30}, zerolog.Nop())

		s.RunRescreen()
		require.Len(t, runner.calls, 1)
		assert.Equal(t, datasource.Options{Live: true, IntradayInterval: 30}, runner.calls[0])
	})

	t.Run("skips outside market hours", func(t *testing.T) {
		runner := &mockRunner{}
		s := New(context.Background(), runner, nil, at(16, 0), Config{}, zerolog.Nop())

		s.RunRescreen()
		assert.Empty(t, runner.calls)
	})

	t.Run("runner failure does not panic", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("boom")}
		s := New(context.Background(), runner, nil, at(10, 0), Config{}, zerolog.Nop())

		assert.NotPanics(t, s.RunRescreen)
		assert.Len(t, runner.calls, 1)
	})
}

func TestRunRetention(t *testing.T) {
	t.Run("prunes with a cutoff relative to today", func(t *testing.T) {
		store := &mockStore{}
		s := New(context.Background(), nil, store, at(2, 0), Config{RetentionDays: 400, HistoryDays: 200}, zerolog.Nop())

		s.RunRetention()
		assert.Equal(t, 200, store.priceKeep)
		want := time.Date(2022, 12, 11, 0, 0, 0, 0, time.UTC)
		assert.True(t, want.Equal(store.priceCutoff), "got %s", store.priceCutoff)
		assert.True(t, want.Equal(store.historyCutoff))
	})

	t.Run("history is pruned even when price pruning fails", func(t *testing.T) {
		store := &mockStore{priceErr: errors.New("db down")}
		s := New(context.Background(), nil, store, at(2, 0), Config{RetentionDays: 30}, zerolog.Nop())

		s.RunRetention()
		assert.False(t, store.historyCutoff.IsZero())
	})
}

func TestRegisterAll(t *testing.T) {
	t.Run("registers both jobs", func(t *testing.T) {
		s := New(context.Background(), &mockRunner{}, &mockStore{}, at(10, 0),
			Config{RescreenCron: "0 */15 * * * 1-5", RetentionDays: 30}, zerolog.Nop())
		require.NoError(t, s.RegisterAll())
		assert.Equal(t, 2, s.Entries())
	})

	t.Run("skips disabled jobs", func(t *testing.T) {
		s := New(context.Background(), &mockRunner{}, nil, at(10, 0), Config{}, zerolog.Nop())
		require.NoError(t, s.RegisterAll())
		assert.Equal(t, 0, s.Entries())
	})

	t.Run("rejects an invalid expression", func(t *testing.T) {
		s := New(context.Background(), &mockRunner{}, nil, at(10, 0), Config{RescreenCron: "not a cron"}, zerolog.Nop())
		assert.Error(t, s.RegisterAll())
	})

	t.Run("start and stop", func(t *testing.T) {
		s := New(context.Background(), &mockRunner{}, nil, at(10, 0), Config{}, zerolog.Nop())
		s.Start()
		s.Stop()
	})
}
