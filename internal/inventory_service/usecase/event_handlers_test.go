package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderCreatedJSON(t *testing.T, eventId, orderId, productId string, qty int) []byte {
	t.Helper()
	return orderCreatedJSONItems(t, eventId, orderId, []map[string]interface{}{
		{"productId": productId, "quantity": qty},
	})
}

func orderCreatedJSONItems(t *testing.T, eventId, orderId string, items []map[string]interface{}) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"eventId":    eventId,
		"eventType":  "OrderCreated",
		"orderId":    orderId,
		"customerId": "C1",
		"items":      items,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func TestHandleOrderCreated_ReservesEveryItem(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	err := handlers.HandleOrderCreated(context.Background(), orderCreatedJSON(t, "E1", "O1", "P1", 3))
	require.NoError(t, err)

	events := pub.all()
	require.Len(t, events, 1)
	_, ok := events[0].Event.(event.StockReserved)
	assert.True(t, ok)
}

func TestHandleOrderCreated_DoubleDeliveryIsIdempotent(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	payload := orderCreatedJSON(t, "E1", "O1", "P1", 3)

	require.NoError(t, handlers.HandleOrderCreated(context.Background(), payload))
	require.NoError(t, handlers.HandleOrderCreated(context.Background(), payload))

	assert.Len(t, pub.all(), 1, "redelivery of the same eventId must not reserve twice")

	stored, err := repo.Load(context.Background(), p.Id)
	require.NoError(t, err)
	available, reserved, _ := stored.Stock.Peek()
	assert.Equal(t, int32(7), available.Int32())
	assert.Equal(t, int32(3), reserved.Int32())
}

func TestHandleOrderCreated_AtomicRollsBackOnFailure(t *testing.T) {
	p1 := newTestProductWithId(t, "P1", 10)
	p2 := newTestProductWithId(t, "P2", 1)
	repo := newFakeProductRepository(p1, p2)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	payload := orderCreatedJSONItems(t, "E1", "O9", []map[string]interface{}{
		{"productId": "P1", "quantity": 5},
		{"productId": "P2", "quantity": 2},
	})

	err := handlers.HandleOrderCreated(context.Background(), payload)
	require.NoError(t, err, "a domain rejection is translated into InsufficientStock and acked, not retried")

	stored1, loadErr := repo.Load(context.Background(), p1.Id)
	require.NoError(t, loadErr)
	available1, reserved1, _ := stored1.Stock.Peek()
	assert.Equal(t, int32(10), available1.Int32(), "P1's reservation must be rolled back")
	assert.Equal(t, int32(0), reserved1.Int32())

	var sawInsufficient bool
	for _, evt := range pub.all() {
		if _, ok := evt.Event.(event.InsufficientStock); ok {
			sawInsufficient = true
		}
	}
	assert.True(t, sawInsufficient, "the failing item must still publish InsufficientStock")
}

func TestHandleOrderCancelled_ReleasesReservations(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	require.NoError(t, handlers.HandleOrderCreated(context.Background(), orderCreatedJSON(t, "E1", "O1", "P1", 3)))

	cancelPayload, err := json.Marshal(map[string]interface{}{
		"eventId":   "E2",
		"eventType": "OrderCancelled",
		"orderId":   "O1",
		"reason":    "customer_request",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	require.NoError(t, err)

	require.NoError(t, handlers.HandleOrderCancelled(context.Background(), cancelPayload))

	events := pub.all()
	require.Len(t, events, 2)
	_, ok := events[1].Event.(event.StockReleased)
	assert.True(t, ok)

	stored, err := repo.Load(context.Background(), p.Id)
	require.NoError(t, err)
	available, reserved, total := stored.Stock.Peek()
	assert.Equal(t, int32(10), available.Int32())
	assert.Equal(t, int32(0), reserved.Int32())
	assert.Equal(t, int32(10), total.Int32())
}

func TestHandleOrderCancelled_TwiceIsIdempotent(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	require.NoError(t, handlers.HandleOrderCreated(context.Background(), orderCreatedJSON(t, "E1", "O1", "P1", 3)))

	cancelPayload, err := json.Marshal(map[string]interface{}{
		"eventId":   "E2",
		"eventType": "OrderCancelled",
		"orderId":   "O1",
		"reason":    "customer_request",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	require.NoError(t, err)

	require.NoError(t, handlers.HandleOrderCancelled(context.Background(), cancelPayload))
	require.NoError(t, handlers.HandleOrderCancelled(context.Background(), cancelPayload))

	assert.Len(t, pub.all(), 2, "second cancel delivery is deduped by eventId before reaching the domain")
}

func TestHandleOrderCreated_RejectedOrderRedeliveryIsDeduped(t *testing.T) {
	p := newTestProductWithId(t, "P1", 2)
	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)
	handlers := usecase.NewEventHandlers(uc, newFakeIdempotencyStore(), time.Hour, noopLogger{})

	payload := orderCreatedJSON(t, "E1", "O1", "P1", 5)

	require.NoError(t, handlers.HandleOrderCreated(context.Background(), payload))
	require.NoError(t, handlers.HandleOrderCreated(context.Background(), payload))

	assert.Len(t, pub.all(), 1, "the rejection was final; redelivery must not emit a second InsufficientStock")
}
