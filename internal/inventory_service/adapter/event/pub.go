// Package messaging adapts the domain's outbound/inbound event ports to
// Kafka, via github.com/segmentio/kafka-go.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/middleware"
	"github.com/segmentio/kafka-go"
)

// envelope is the wire shape every outbound event is wrapped in: eventId,
// eventType, aggregateId, occurredAt, correlationId, version and the
// event's own fields flattened into payload.
type envelope struct {
	EventId       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	AggregateId   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationId string          `json:"correlationId,omitempty"`
	Version       uint64          `json:"version"`
	Payload       json.RawMessage `json:"payload"`
}

// KafkaEventPublisher implements service.EventPublisherService against a
// single outbound topic, partitioned by aggregateId so every event
// touching one product lands on the same partition and preserves
// per-product order.
type KafkaEventPublisher struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaEventPublisher constructs a publisher writing to
// config.OutboundTopic, balanced by message key (aggregateId).
func NewKafkaEventPublisher(config *KafkaConfig, log logger.Logger) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.OutboundTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaEventPublisher{writer: writer, log: log}
}

// eventMeta extracts the productId every domain event carries — used as
// both the envelope's aggregateId and the Kafka partition key — together
// with the aggregate version stamped on the event when it was appended,
// which becomes the envelope's version field.
func eventMeta(evt event.DomainEvent) (aggregateId string, version uint64, err error) {
	switch e := evt.(type) {
	case event.StockReserved:
		return e.ProductId.String(), e.StockVersion, nil
	case event.StockDeducted:
		return e.ProductId.String(), e.StockVersion, nil
	case event.StockReleased:
		return e.ProductId.String(), e.StockVersion, nil
	case event.StockAdjusted:
		return e.ProductId.String(), e.StockVersion, nil
	case event.InsufficientStock:
		return e.ProductId.String(), e.StockVersion, nil
	case event.LowStockAlert:
		return e.ProductId.String(), e.StockVersion, nil
	case event.ProductStatusChanged:
		return e.ProductId.String(), e.StockVersion, nil
	default:
		return "", 0, fmt.Errorf("unrecognized domain event type %T", evt)
	}
}

// Publish emits a single domain event as one Kafka message.
func (k *KafkaEventPublisher) Publish(ctx context.Context, correlationId string, evt event.DomainEvent) error {
	aggregateId, version, err := eventMeta(evt)
	if err != nil {
		return err
	}
	eventType := evt.EventType()

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	env := envelope{
		EventId:       uuid.NewString(),
		EventType:     eventType,
		AggregateId:   aggregateId,
		OccurredAt:    time.Now(),
		CorrelationId: correlationId,
		Version:       version,
		Payload:       payload,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(aggregateId),
		Value: body,
		Time:  env.OccurredAt,
	}
	if correlationId != "" {
		msg.Headers = []kafka.Header{{Key: middleware.CorrelationIDHeader, Value: []byte(correlationId)}}
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", eventType, k.writer.Topic, err)
	}
	k.log.Debug("published domain event", "eventType", eventType, "aggregateId", aggregateId, "eventId", env.EventId)
	return nil
}

// PublishBatch emits events in order, stopping at the first failure so
// the caller can see exactly how far the drain got.
func (k *KafkaEventPublisher) PublishBatch(ctx context.Context, correlationId string, events []event.DomainEvent) error {
	for _, evt := range events {
		if err := k.Publish(ctx, correlationId, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying Kafka writer connection.
func (k *KafkaEventPublisher) Close() error {
	return k.writer.Close()
}
