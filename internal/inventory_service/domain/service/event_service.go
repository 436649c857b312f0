package service

import (
	"context"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
)

// Outbound event type names, carried as the eventType field of the
// published envelope (see adapter/event for the envelope shape).
const (
	EventTypeStockReserved       = "StockReserved"
	EventTypeStockDeducted       = "StockDeducted"
	EventTypeStockReleased       = "StockReleased"
	EventTypeStockAdjusted       = "StockAdjusted"
	EventTypeInsufficientStock   = "InsufficientStock"
	EventTypeLowStockAlert       = "LowStockAlert"
	EventTypeProductStatusChange = "ProductStatusChanged"
)

// EventPublisherService is the outbound port for emitting domain events.
// The transport guarantees at-least-once delivery with per-aggregate
// order preservation: events for the same productId arrive in the order
// they were published.
type EventPublisherService interface {
	// Publish emits a single domain event, tagged with the correlationId
	// (the originating orderId, when applicable) for tracing across the
	// reserve/deduct/release lifecycle.
	Publish(ctx context.Context, correlationId string, evt event.DomainEvent) error

	// PublishBatch emits events in order and stops at the first failure,
	// used by use cases that drain several pending events from one
	// aggregate mutation.
	PublishBatch(ctx context.Context, correlationId string, events []event.DomainEvent) error

	Close() error
}

// IdempotencyStore tracks which inbound (topic, eventId) pairs have
// already been processed, so at-least-once delivery becomes
// exactly-once-effect at the use-case boundary. Dedup scope is per-topic
// (an Open Question the spec leaves to implementers) to keep the
// processed-set small; Mark must be an atomic upsert so concurrent
// redeliveries of the same id cannot both proceed.
type IdempotencyStore interface {
	// AlreadyProcessed reports whether eventId on topic has been marked
	// before.
	AlreadyProcessed(ctx context.Context, topic, eventId string) (bool, error)

	// Mark records eventId on topic as processed, valid for ttl before it
	// may be forgotten. Safe to call concurrently for the same id: only
	// one caller's Mark should be treated as "first".
	Mark(ctx context.Context, topic, eventId string, ttl time.Duration) error
}
