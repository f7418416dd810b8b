// Package events publishes appointment lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	AppointmentCreated       = "appointment.created"
	AppointmentStatusUpdated = "appointment.status_updated"
	AppointmentDeleted       = "appointment.deleted"
	PaymentRecorded          = "payment.recorded"
)

// Event is the JSON value written for every lifecycle change. Messages are
// keyed by appointment id so one appointment's events stay ordered.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic on brokers. Each
// Publish is flushed on its own rather than waiting for a batch to fill.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: int(kafka.RequireOne),
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	})
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.AppointmentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }
