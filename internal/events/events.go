// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/diewo77/care-meals/internal/models"
	"github.com/segmentio/kafka-go"
)

// StatusChanged is emitted after an order's preparation status flips.
type StatusChanged struct {
	OrderID    uint               `json:"orderId"`
	ResidentID uint               `json:"residentId"`
	Date       string             `json:"date"`
	MealType   models.MealType    `json:"mealType"`
	From       models.OrderStatus `json:"from"`
	To         models.OrderStatus `json:"to"`
	ChangedBy  uint               `json:"changedBy"`
	ChangedAt  time.Time          `json:"changedAt"`
}

// Publisher delivers order events.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, e StatusChanged) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChanged) error { return nil }
func (NopPublisher) Close() error { return nil }

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events keyed by order id.
type KafkaPublisher struct {
	Writer MessageWriter
}

// NewKafkaWriter builds a writer for broker and topic.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, e StatusChanged) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.OrderID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order.status_changed")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.Writer.Close() }

// New returns a Kafka publisher when broker is set, otherwise a NopPublisher.
func New(broker, topic string) Publisher {
	if broker == "" {
		return NopPublisher{}
	}
	return NewKafkaPublisher(NewKafkaWriter(broker, topic))
}
