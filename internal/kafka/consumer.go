package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

// ScreenRunner runs a screen over the universe
type ScreenRunner interface {
	Run(ctx context.Context, opts datasource.Options) (*models.ScreeningReport, error)
}

// Consumer handles screen requests arriving on Kafka. Each request runs a
// full screen whose report replaces the cached one.
type Consumer struct {
	reader *kafka.Reader
	runner ScreenRunner
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for screen requests
func NewConsumer(brokers []string, topic, groupID string, runner ScreenRunner, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		runner: runner,
		log:    logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var req models.ScreenRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal screen request: %w", err)
	}

	if req.EventType != models.EventScreenRequested {
		c.log.Debug().Str("event_type", req.EventType).Msg("ignoring event")
		return nil
	}

	opts := datasource.Options{
		Live:             req.UseLiveData,
		Mock:             req.UseMock,
		IntradayInterval: req.IntradayInterval,
	}
	report, err := c.runner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to run requested screen %s: %w", req.RequestID, err)
	}

	c.log.Info().
		Str("request_id", req.RequestID).
		Str("run_id", report.RunID).
		Int("total", report.Total).
		Msg("completed requested screen")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
