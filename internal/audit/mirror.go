// Package audit mirrors session events to a Kafka topic for external audit
// trails.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wardenhq/warden/internal/bus"
)

// Mirror subscribes to the full event stream and produces each event to a
// Kafka topic. Delivery is best-effort: a broker outage must never stall a
// turn, so failures are logged and dropped.
type Mirror struct {
	writer *kafka.Writer
	logger *slog.Logger
	queue  chan *bus.Event
}

// NewMirror creates an audit mirror producing to topic on the given brokers.
func NewMirror(brokers []string, topic string, logger *slog.Logger) *Mirror {
	return &Mirror{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		logger: logger,
		queue:  make(chan *bus.Event, 256),
	}
}

// Attach subscribes the mirror to every event on the bus. The subscription
// callback only enqueues; actual produces happen on the Run goroutine.
func (m *Mirror) Attach(messageBus *bus.MessageBus) {
	messageBus.SubscribeAllEvents(func(ev *bus.Event) {
		select {
		case m.queue <- ev:
		default:
			m.logger.Warn("audit queue full, dropping event", "type", ev.Type)
		}
	})
}

// Run produces queued events until the context ends.
func (m *Mirror) Run(ctx context.Context) error {
	defer m.writer.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.queue:
			m.produce(ctx, ev)
		}
	}
}

func (m *Mirror) produce(ctx context.Context, ev *bus.Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = m.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	if err != nil && !strings.Contains(err.Error(), "context canceled") {
		m.logger.Warn("audit produce failed", "type", ev.Type, "error", err)
	}
}
