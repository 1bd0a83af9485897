// Package cache keeps the most recent screening report. Every completed run
// overwrites it; there is no other invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-screener/internal/models"
)

// DefaultKey is the Redis key holding the last report
const DefaultKey = "screener:last_results"

// Memory is an in-process report cache
type Memory struct {
	mu     sync.RWMutex
	report *models.ScreeningReport
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Store(_ context.Context, report *models.ScreeningReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = report
	return nil
}

// Latest returns nil without error when nothing is cached
func (m *Memory) Latest(context.Context) (*models.ScreeningReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report, nil
}

// RedisConfig holds connection settings for the Redis cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// Redis stores the report as JSON under a single key. The in-memory copy
// keeps serving when Redis is unreachable.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	local  *Memory
	log    zerolog.Logger
}

// NewRedis connects to Redis. A failed ping is logged and the cache starts in
// degraded mode rather than failing.
func NewRedis(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return newRedis(ctx, client, cfg, logger)
}

func newRedis(ctx context.Context, client *redis.Client, cfg RedisConfig, logger zerolog.Logger) *Redis {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	r := &Redis{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.TTL,
		local:  NewMemory(),
		log:    logger.With().Str("component", "cache").Logger(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		r.log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, serving reports from memory")
	} else {
		r.log.Info().Str("addr", cfg.Addr).Msg("redis connected")
	}
	return r
}

// Store overwrites the cached report
func (r *Redis) Store(ctx context.Context, report *models.ScreeningReport) error {
	_ = r.local.Store(ctx, report)

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// Latest returns the cached report, nil when none exists
func (r *Redis) Latest(ctx context.Context) (*models.ScreeningReport, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return r.local.Latest(ctx)
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("redis read failed, using local copy")
		return r.local.Latest(ctx)
	}

	var report models.ScreeningReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// Close releases the Redis connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
