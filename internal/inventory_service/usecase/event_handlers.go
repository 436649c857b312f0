package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
)

// orderCreatedPayload mirrors the inbound order.created envelope:
// {eventId, eventType, orderId, customerId, items: [{productId, quantity}], timestamp}.
type orderCreatedPayload struct {
	EventId    string      `json:"eventId"`
	OrderId    string      `json:"orderId"`
	CustomerId string      `json:"customerId"`
	Items      []orderItem `json:"items"`
	Timestamp  time.Time   `json:"timestamp"`
}

type orderItem struct {
	ProductId string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

// orderCancelledPayload mirrors the inbound order.cancelled envelope:
// {eventId, eventType, orderId, reason, timestamp}.
type orderCancelledPayload struct {
	EventId   string    `json:"eventId"`
	OrderId   string    `json:"orderId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// paymentConfirmedPayload mirrors the inbound payment.confirmed envelope,
// naming every reservation the confirmed payment should convert into a
// permanent deduction.
type paymentConfirmedPayload struct {
	EventId        string   `json:"eventId"`
	OrderId        string   `json:"orderId"`
	ReservationIds []string `json:"reservationIds"`
}

// EventHandlers wires the inbound Kafka topics to the reservation use
// cases, deduplicating via IdempotencyStore so an at-least-once redelivery
// never reserves, releases, or deducts twice.
type EventHandlers struct {
	reservations   *ReservationUsecase
	idempotency    service.IdempotencyStore
	idempotencyTTL time.Duration
	log            logger.Logger
}

// NewEventHandlers wires the inbound handlers to the reservation use case
// and the idempotency store backing dedup.
func NewEventHandlers(reservations *ReservationUsecase, idempotency service.IdempotencyStore, idempotencyTTL time.Duration, log logger.Logger) *EventHandlers {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &EventHandlers{
		reservations:   reservations,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		log:            log,
	}
}

const (
	topicOrderCreated     = "order.created"
	topicOrderCancelled   = "order.cancelled"
	topicPaymentConfirmed = "payment.confirmed"
)

// alreadyProcessed reports whether eventId on topic has been fully
// handled before. An event is only marked processed after its handler
// finished (markProcessed), so a delivery that failed mid-way is
// reprocessed on redelivery rather than silently dropped.
func (h *EventHandlers) alreadyProcessed(ctx context.Context, topic, eventId string) (bool, error) {
	done, err := h.idempotency.AlreadyProcessed(ctx, topic, eventId)
	if err != nil {
		return false, fmt.Errorf("idempotency check for %s %s: %w", topic, eventId, err)
	}
	return done, nil
}

// markProcessed records eventId as handled. A failure here is logged and
// swallowed: the domain work is already committed and published, so the
// message must be acknowledged regardless; the cost is that a later
// redelivery of the same eventId would not be deduped.
func (h *EventHandlers) markProcessed(ctx context.Context, topic, eventId string) {
	if err := h.idempotency.Mark(ctx, topic, eventId, h.idempotencyTTL); err != nil {
		h.log.Error("failed to mark event processed", "topic", topic, "eventId", eventId, "error", err)
	}
}

// isDomainOutcome reports whether err is a domain-level rejection
// (insufficient stock, inactive or unknown product) rather than an
// infrastructure failure. Domain rejections have already been translated
// into an outbound InsufficientStock event by the use case; retrying the
// inbound message would only replay the same rejection, so the handler
// acknowledges instead.
func isDomainOutcome(err error) bool {
	return errors.Is(err, entity.ErrInsufficientStock) ||
		errors.Is(err, entity.ErrProductInactive) ||
		errors.Is(err, entity.ErrProductNotFound)
}

// HandleOrderCreated reserves every item named by an order.created event
// atomically: if any item fails (insufficient stock, unknown product),
// every item reserved earlier in the same batch is released before the
// order is rejected, so an order never ends up partially reserved.
func (h *EventHandlers) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var in orderCreatedPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode order.created: %w", err)
	}

	done, err := h.alreadyProcessed(ctx, topicOrderCreated, in.EventId)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	items := make([]BatchItem, 0, len(in.Items))
	for _, it := range in.Items {
		productId, err := valueobject.ProductIdFromString(it.ProductId)
		if err != nil {
			return fmt.Errorf("order.created %s: invalid productId %q: %w", in.EventId, it.ProductId, err)
		}
		qty, err := valueobject.Qty(it.Quantity)
		if err != nil {
			return fmt.Errorf("order.created %s: invalid quantity for %q: %w", in.EventId, it.ProductId, err)
		}
		items = append(items, BatchItem{ProductId: productId, Quantity: qty})
	}

	_, err = h.reservations.BatchReserve(ctx, BatchReserveInput{
		OrderId: in.OrderId,
		Items:   items,
		Atomic:  true,
	})
	if err != nil && !isDomainOutcome(err) {
		return err
	}

	h.markProcessed(ctx, topicOrderCreated, in.EventId)
	return nil
}

// HandleOrderCancelled releases every open reservation for the cancelled
// order. Idempotent by construction: a reservation already released by an
// earlier delivery or by the expiry sweeper is silently skipped.
func (h *EventHandlers) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var in orderCancelledPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode order.cancelled: %w", err)
	}

	done, err := h.alreadyProcessed(ctx, topicOrderCancelled, in.EventId)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if err := h.reservations.ReleaseByOrder(ctx, in.OrderId, valueobject.ReleaseReasonOrderCancelled); err != nil {
		return err
	}

	h.markProcessed(ctx, topicOrderCancelled, in.EventId)
	return nil
}

// HandlePaymentConfirmed converts every named reservation into a
// permanent deduction. A reservation already deducted by an earlier
// delivery returns entity.ErrReservationInvalid from the use case, which
// this handler treats as already-applied rather than a failure.
func (h *EventHandlers) HandlePaymentConfirmed(ctx context.Context, payload []byte) error {
	var in paymentConfirmedPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode payment.confirmed: %w", err)
	}

	done, err := h.alreadyProcessed(ctx, topicPaymentConfirmed, in.EventId)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	for _, raw := range in.ReservationIds {
		reservationId, err := valueobject.ReservationIdFromString(raw)
		if err != nil {
			return fmt.Errorf("payment.confirmed %s: invalid reservationId %q: %w", in.EventId, raw, err)
		}
		if err := h.reservations.Deduct(ctx, reservationId, in.OrderId); err != nil {
			if errors.Is(err, entity.ErrReservationInvalid) {
				continue
			}
			return err
		}
	}

	h.markProcessed(ctx, topicPaymentConfirmed, in.EventId)
	return nil
}
