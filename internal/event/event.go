// Package event publishes order and payment lifecycle notifications.
// Publishing happens after the owning transaction commits and never fails
// the request that caused it.
package event

import (
	"context"
	"dinedash-backend/internal/model"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	PaymentCompleted   Type = "payment.completed"
	PaymentFailed      Type = "payment.failed"
)

type Event struct {
	Type         Type                `json:"type"`
	OrderID      uint                `json:"order_id"`
	TrackingCode string              `json:"tracking_code,omitempty"`
	OrderStatus  model.OrderStatus   `json:"order_status,omitempty"`
	FromStatus   model.OrderStatus   `json:"from_status,omitempty"`
	PaymentID    uint                `json:"payment_id,omitempty"`
	PaymentRef   string              `json:"payment_ref,omitempty"`
	Method       model.PaymentMethod `json:"method,omitempty"`
	Amount       *decimal.Decimal    `json:"amount,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

func (e Event) key() string {
	return fmt.Sprintf("order-%d", e.OrderID)
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event)
	Close() error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer MessageWriter
	log    zerolog.Logger
}

func NewKafkaPublisher(writer MessageWriter, log zerolog.Logger) Publisher {
	return &kafkaPublisher{
		writer: writer,
		log:    log.With().Str("component", "event").Logger(),
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...Event) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			p.log.Error().Err(err).Str("type", string(e.Type)).Msg("marshal event")
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.key()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}
	if len(msgs) == 0 {
		return
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error().Err(err).Int("count", len(msgs)).Msg("publish events")
	}
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type logPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher records events in the service log only.
func NewLogPublisher(log zerolog.Logger) Publisher {
	return &logPublisher{log: log.With().Str("component", "event").Logger()}
}

func (p *logPublisher) Publish(ctx context.Context, events ...Event) {
	for _, e := range events {
		p.log.Info().
			Str("type", string(e.Type)).
			Uint("order_id", e.OrderID).
			Str("order_status", string(e.OrderStatus)).
			Uint("payment_id", e.PaymentID).
			Msg("event")
	}
}

func (p *logPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
