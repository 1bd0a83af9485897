package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-screener/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing screening and trade events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishScreeningCompleted publishes a summary of a completed screening run
func (p *Producer) PublishScreeningCompleted(ctx context.Context, report *models.ScreeningReport) error {
	event := models.ScreeningEvent{
		EventType:      models.EventScreeningCompleted,
		RunID:          report.RunID,
		Total:          report.Total,
		BullishCount:   len(report.Bullish),
		BearishCount:   len(report.Bearish),
		NeutralCount:   len(report.Neutral),
		BullishSymbols: symbols(report.Bullish),
		BearishSymbols: symbols(report.Bearish),
		Timestamp:      p.now(),
	}
	return p.publish(ctx, report.RunID, event)
}

// PublishTradeDecision publishes one strategy decision keyed by symbol
func (p *Producer) PublishTradeDecision(ctx context.Context, d *models.TradeDecision) error {
	event := models.TradeDecisionEvent{
		EventType: models.EventTradeDecision,
		Decision:  d,
		Symbol:    d.Symbol,
		Timestamp: p.now(),
	}
	return p.publish(ctx, d.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func symbols(results []*models.ScreeningResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Symbol)
	}
	return out
}
