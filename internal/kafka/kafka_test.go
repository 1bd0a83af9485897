package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-screener/internal/datasource"
	"github.com/trogers1052/stock-screener/internal/models"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

type mockRunner struct {
	calls []datasource.Options
	err   error
}

func (m *mockRunner) Run(_ context.Context, opts datasource.Options) (*models.ScreeningReport, error) {
	m.calls = append(m.calls, opts)
	if m.err != nil {
		return nil, m.err
	}
	r := models.EmptyReport()
	r.RunID = "run-1"
	return r, nil
}

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestProducer(w *mockWriter) *Producer {
	return &Producer{writer: w, topic: "screener-events", now: func() time.Time { return fixedNow }}
}

func TestProducer(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishScreeningCompleted summarizes the report", func(t *testing.T) {
		w := &mockWriter{}
		p := newTestProducer(w)

		report := models.EmptyReport()
		report.RunID = "run-42"
		report.Bullish = []*models.ScreeningResult{{Symbol: "TCS"}, {Symbol: "INFY"}}
		report.Bearish = []*models.ScreeningResult{{Symbol: "WIPRO"}}
		report.Neutral = []*models.ScreeningResult{{Symbol: "SBIN"}}
		report.Total = 4

		require.NoError(t, p.PublishScreeningCompleted(ctx, report))
		require.Len(t, w.messages, 1)
		assert.Equal(t, "run-42", string(w.messages[0].Key))

		var event models.ScreeningEvent
		require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
		assert.Equal(t, models.EventScreeningCompleted, event.EventType)
		assert.Equal(t, 4, event.Total)
		assert.Equal(t, 2, event.BullishCount)
		assert.Equal(t, 1, event.BearishCount)
		assert.Equal(t, 1, event.NeutralCount)
		assert.Equal(t, []string{"TCS", "INFY"}, event.BullishSymbols)
		assert.Equal(t, []string{"WIPRO"}, event.BearishSymbols)
		assert.True(t, fixedNow.Equal(event.Timestamp))
	})

	t.Run("PublishTradeDecision keys by symbol", func(t *testing.T) {
		w := &mockWriter{}
		p := newTestProducer(w)

		d := &models.TradeDecision{Symbol: "TCS", Status: models.DecisionSkipped, Trend: models.TrendNeutral}
		require.NoError(t, p.PublishTradeDecision(ctx, d))
		require.Len(t, w.messages, 1)
		assert.Equal(t, "TCS", string(w.messages[0].Key))

		var event models.TradeDecisionEvent
		require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
		assert.Equal(t, models.EventTradeDecision, event.EventType)
		require.NotNil(t, event.Decision)
		assert.Equal(t, models.DecisionSkipped, event.Decision.Status)
	})

	t.Run("write failure is wrapped", func(t *testing.T) {
		w := &mockWriter{err: errors.New("broker down")}
		p := newTestProducer(w)

		err := p.PublishTradeDecision(ctx, &models.TradeDecision{Symbol: "TCS"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	t.Run("Close closes the writer", func(t *testing.T) {
		w := &mockWriter{}
		require.NoError(t, newTestProducer(w).Close())
		assert.True(t, w.closed)
	})
}

func TestConsumerProcessMessage(t *testing.T) {
	ctx := context.Background()

	encode := func(t *testing.T, req models.ScreenRequest) kafka.Message {
		t.Helper()
		data, err := json.Marshal(req)
		require.NoError(t, err)
		return kafka.Message{Value: data}
	}

	t.Run("screen request runs a screen with its options", func(t *testing.T) {
		runner := &mockRunner{}
		c := &Consumer{runner: runner, log: zerolog.Nop()}

		msg := encode(t, models.ScreenRequest{
			EventType:        models.EventScreenRequested,
			RequestID:        "req-1",
			UseLiveData:      true,
			IntradayInterval: 30,
		})
		require.NoError(t, c.processMessage(ctx, msg))
		require.Len(t, runner.calls, 1)
		assert.Equal(t, datasource.Options{Live: true, IntradayInterval: 30}, runner.calls[0])
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		runner := &mockRunner{}
		c := &Consumer{runner: runner, log: zerolog.Nop()}

		require.NoError(t, c.processMessage(ctx, encode(t, models.ScreenRequest{EventType: "SOMETHING_ELSE"})))
		assert.Empty(t, runner.calls)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		c := &Consumer{runner: &mockRunner{}, log: zerolog.Nop()}
		assert.Error(t, c.processMessage(ctx, kafka.Message{Value: []byte("{not json")}))
	})

	t.Run("runner failure is returned", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("universe unavailable")}
		c := &Consumer{runner: runner, log: zerolog.Nop()}

		err := c.processMessage(ctx, encode(t, models.ScreenRequest{EventType: models.EventScreenRequested, RequestID: "req-2"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "req-2")
	})
}
