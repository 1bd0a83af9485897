package screener

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

// Universe lists the stocks to screen
type Universe interface {
	List(ctx context.Context) ([]models.Stock, error)
}

// ReportCache holds the most recent completed report
type ReportCache interface {
	Store(ctx context.Context, report *models.ScreeningReport) error
	Latest(ctx context.Context) (*models.ScreeningReport, error)
}

// HistoryStore appends per-symbol summaries of completed runs
type HistoryStore interface {
	SaveScreeningHistory(ctx context.Context, report *models.ScreeningReport) error
}

// Publisher announces completed runs
type Publisher interface {
	PublishScreeningCompleted(ctx context.Context, report *models.ScreeningReport) error
}

// Service runs screens over the universe and records their outcome. The
// history store and publisher are optional.
type Service struct {
	screener  *Screener
	universe  Universe
	cache     ReportCache
	history   HistoryStore
	publisher Publisher
	log       zerolog.Logger
}

// NewService creates a new screening service
func NewService(s *Screener, universe Universe, cache ReportCache, history HistoryStore, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		screener:  s,
		universe:  universe,
		cache:     cache,
		history:   history,
		publisher: publisher,
		log:       logger.With().Str("component", "screening_service").Logger(),
	}
}

// Run screens the whole universe. The report replaces the cached one; history
// and event failures are logged and do not fail the run.
func (s *Service) Run(ctx context.Context, opts datasource.Options) (*models.ScreeningReport, error) {
	stocks, err := s.universe.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list universe: %w", err)
	}

	report := s.screener.ScreenUniverse(ctx, stocks, opts)

	if err := s.cache.Store(ctx, report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.RunID).Msg("failed to cache report")
	}
	if s.history != nil {
		if err := s.history.SaveScreeningHistory(ctx, report); err != nil {
			s.log.Error().Err(err).Str("run_id", report.RunID).Msg("failed to save screening history")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishScreeningCompleted(ctx, report); err != nil {
			s.log.Error().Err(err).Str("run_id", report.RunID).Msg("failed to publish screening event")
		}
	}
	return report, nil
}

// Latest returns the cached report, or an empty one when nothing has run yet
func (s *Service) Latest(ctx context.Context) *models.ScreeningReport {
	report, err := s.cache.Latest(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read cached report")
	}
	if report == nil {
		return models.EmptyReport()
	}
	return report
}

// ScreenOne screens one symbol of the universe
func (s *Service) ScreenOne(ctx context.Context, symbol string, opts datasource.Options) (*models.ScreeningResult, error) {
	stocks, err := s.universe.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list universe: %w", err)
	}
	return s.screener.ScreenOne(ctx, stocks, symbol, opts)
}
