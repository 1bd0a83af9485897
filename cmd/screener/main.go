package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-screener/internal/api"
	"github.com/trogers1052/stock-screener/internal/cache"
	"github.com/trogers1052/stock-screener/internal/clock"
	"github.com/trogers1052/stock-screener/internal/config"
	"github.com/trogers1052/stock-screener/internal/database"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/kafka"
	"github.com/trogers1052/stock-screener/internal/models"
	"github.com/trogers1052/stock-screener/internal/scheduler"
	"github.com/trogers1052/stock-screener/internal/screener"
	"github.com/trogers1052/stock-screener/internal/strategy"
	"github.com/trogers1052/stock-screener/internal/synthetic"
	"github.com/trogers1052/stock-screener/internal/token"
	"github.com/trogers1052/stock-screener/internal/universe"
	"github.com/trogers1052/stock-screener/internal/upstox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Info().Str("addr", cfg.Server.Addr()).Msg("stock screener starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	var seed []models.Stock
	if cfg.Screener.SeedUniverse {
		seed, err = universe.LoadFile(cfg.Screener.UniverseFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.Screener.UniverseFile).Msg("failed to load universe")
		}
	}
	stocks := universe.New(seed, db, logger)
	if n, err := stocks.Sync(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to seed universe")
	} else {
		logger.Info().Int("stocks", n).Msg("universe seeded")
	}

	auth := upstox.NewAuthClient(upstox.AuthConfig{
		APIKey:      cfg.Upstox.APIKey,
		APISecret:   cfg.Upstox.APISecret,
		RedirectURL: cfg.Upstox.RedirectURL,
		TokenURL:    cfg.Upstox.TokenURL,
		DialogURL:   cfg.Upstox.DialogURL,
	})
	tokens := token.NewManager(db, auth, clk, logger)
	client := upstox.NewClient(upstox.Config{
		BaseURL:      cfg.Upstox.BaseURL,
		Timeout:      cfg.Upstox.Timeout,
		HeavyTimeout: cfg.Upstox.HeavyTimeout,
	}, tokens, logger)

	var reports screener.ReportCache = cache.NewMemory()
	if cfg.Redis.Enabled {
		rc := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		defer rc.Close()
		reports = rc
	}

	var (
		screenPublisher   screener.Publisher
		decisionPublisher strategy.DecisionPublisher
	)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		screenPublisher = producer
		decisionPublisher = producer
	}

	chain := datasource.NewChain(db, client, synthetic.New(clk), clk, cfg.Screener.HistoryDays, logger)
	pipeline := screener.NewPipeline(chain, clk, logger)
	svc := screener.NewService(
		screener.New(pipeline, cfg.Screener.Concurrency, clk, logger),
		stocks, reports, db, screenPublisher, logger,
	)
	executor := strategy.NewExecutor(client, stocks, db, decisionPublisher, clk, strategy.Config{
		BuyBufferPct: &cfg.Trading.BuyBufferPct,
		Concurrency:  cfg.Trading.Concurrency,
	}, logger)

	rescreenCron := ""
	if cfg.Screener.RefreshEnabled {
		rescreenCron = cfg.Screener.RefreshCron
	}
	sched := scheduler.New(ctx, svc, db, clk, scheduler.Config{
		RescreenCron:     rescreenCron,
		RetentionCron:    cfg.Screener.RetentionCron,
		RetentionDays:    cfg.Screener.RetentionDays,
		IntradayInterval: cfg.Screener.IntradayInterval,
		HistoryDays:      cfg.Screener.HistoryDays,
	}, logger)
	if err := sched.RegisterAll(); err != nil {
		logger.Fatal().Err(err).Msg("failed to register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestsTopic, cfg.Kafka.GroupID, svc, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("kafka consumer stopped")
			}
		}()
	}

	handler := api.NewHandler(api.Deps{
		Screening:       svc,
		History:         db,
		Tokens:          tokens,
		Login:           auth,
		Market:          client,
		Universe:        stocks,
		Strategy:        executor,
		Decisions:       db,
		DB:              db,
		Clock:           clk,
		UniverseFile:    cfg.Screener.UniverseFile,
		HistoryDays:     cfg.Screener.HistoryDays,
		ProfitTargetPct: &cfg.Trading.ProfitTargetPct,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
		// a full live screen of the universe can take a while
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}
	logger.Info().Msg("stock screener stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "stock-screener").Logger()
}
