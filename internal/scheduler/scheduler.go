// Package scheduler runs the periodic re-screen and the nightly retention job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

// DefaultRetentionCron runs retention at 02:00 IST every day
const DefaultRetentionCron = "0 0 2 * * *"

// ScreenRunner runs a screen over the universe
type ScreenRunner interface {
	Run(ctx context.Context, opts datasource.Options) (*models.ScreeningReport, error)
}

// RetentionStore prunes persisted data older than a cutoff
type RetentionStore interface {
	DeletePriceBarsOlderThan(ctx context.Context, cutoff time.Time, keep int) (int64, error)
	DeleteScreeningHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the schedules and the retention window
type Config struct {
	// RescreenCron uses the six-field form with seconds
	RescreenCron     string
	RetentionCron    string
	RetentionDays    int
	IntradayInterval int
	// HistoryDays bars per symbol survive retention regardless of age
	HistoryDays      int
}

// Scheduler manages the cron jobs
type Scheduler struct {
	cron   *cron.Cron
	runner ScreenRunner
	store  RetentionStore
	clock  clock.Clock
	cfg    Config
	ctx    context.Context
	log    zerolog.Logger
}

// New creates a scheduler whose jobs run with ctx
func New(ctx context.Context, runner ScreenRunner, store RetentionStore, c clock.Clock, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.RetentionCron == "" {
		cfg.RetentionCron = DefaultRetentionCron
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(clock.IST)),
		runner: runner,
		store:  store,
		clock:  c,
		cfg:    cfg,
		ctx:    ctx,
		log:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the re-screen job when configured and the retention
// job when a store is available.
func (s *Scheduler) RegisterAll() error {
	if s.cfg.RescreenCron != "" && s.runner != nil {
		if _, err := s.cron.AddFunc(s.cfg.RescreenCron, s.RunRescreen); err != nil {
			return fmt.Errorf("register rescreen task: %w", err)
		}
	}
	if s.store != nil && s.cfg.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(s.cfg.RetentionCron, s.RunRetention); err != nil {
			return fmt.Errorf("register retention task: %w", err)
		}
	}
	return nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Entries()).Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunRescreen screens the universe with live data while the market is open
func (s *Scheduler) RunRescreen() {
	if !s.clock.IsMarketOpen() {
		s.log.Debug().Msg("market closed, skipping rescreen")
		return
	}
	opts := datasource.Options{Live: true, IntradayInterval: s.cfg.IntradayInterval}
	report, err := s.runner.Run(s.ctx, opts)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled rescreen failed")
		return
	}
	s.log.Info().
		Str("run_id", report.RunID).
		Int("total", report.Total).
		Int("bullish", len(report.Bullish)).
		Int("bearish", len(report.Bearish)).
		Msg("scheduled rescreen completed")
}

// RunRetention deletes price bars and screening history past the window
func (s *Scheduler) RunRetention() {
	cutoff := clock.Today(s.clock).AddDate(0, 0, -s.cfg.RetentionDays)

	prices, err := s.store.DeletePriceBarsOlderThan(s.ctx, cutoff, s.cfg.HistoryDays)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to prune price bars")
	}
	history, err := s.store.DeleteScreeningHistoryOlderThan(s.ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to prune screening history")
	}
	s.log.Info().
		Time("cutoff", cutoff).
		Int("kept_per_symbol", s.cfg.HistoryDays).
		Int64("price_bars", prices).
		Int64("history", history).
		Msg("retention completed")
}
