package entity_test

import (
	"testing"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, total int32) *entity.Product {
	t.Helper()
	id, err := valueobject.ProductIdFromString("prod-1")
	require.NoError(t, err)
	p, err := entity.NewProduct(id, "Widget", valueobject.MustQty(total), fixedNow)
	require.NoError(t, err)
	return p
}

func TestNewProduct_RejectsEmptyName(t *testing.T) {
	id := valueobject.NewProductId()
	_, err := entity.NewProduct(id, "", valueobject.MustQty(1), fixedNow)
	assert.ErrorIs(t, err, entity.ErrInvalidProductData)
}

func TestProduct_Reserve_EmitsStockReserved(t *testing.T) {
	p := newTestProduct(t, 10)

	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, fixedNow)
	require.NoError(t, err)
	assert.False(t, reservationId.IsZero())

	events := p.DrainEvents()
	require.Len(t, events, 1)
	reserved, ok := events[0].(event.StockReserved)
	require.True(t, ok)
	assert.Equal(t, "O1", reserved.OrderId)
	assert.Equal(t, int32(3), reserved.Quantity.Int32())
	assert.Equal(t, int32(7), reserved.AvailableAfter.Int32())
}

func TestProduct_Reserve_InsufficientEmitsInsufficientStockEvent(t *testing.T) {
	p := newTestProduct(t, 2)

	_, err := p.Reserve(valueobject.MustQty(5), "O1", 0, fixedNow)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	insufficient, ok := events[0].(event.InsufficientStock)
	require.True(t, ok)
	assert.Equal(t, valueobject.InsufficientReasonInsufficient, insufficient.Reason)
	assert.Equal(t, int32(5), insufficient.RequestedQty.Int32())
	assert.Equal(t, int32(2), insufficient.AvailableQty.Int32())
}

func TestProduct_Reserve_InactiveProductRefused(t *testing.T) {
	p := newTestProduct(t, 10)
	p.Deactivate(fixedNow)
	p.DrainEvents()

	_, err := p.Reserve(valueobject.MustQty(1), "O1", 0, fixedNow)
	assert.ErrorIs(t, err, entity.ErrProductInactive)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	insufficient, ok := events[0].(event.InsufficientStock)
	require.True(t, ok)
	assert.Equal(t, valueobject.InsufficientReasonInactive, insufficient.Reason)
}

func TestProduct_Release_EmitsStockReleased(t *testing.T) {
	p := newTestProduct(t, 10)
	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, fixedNow)
	require.NoError(t, err)
	p.DrainEvents()

	err = p.Release(reservationId, "O1", valueobject.ReleaseReasonOrderCancelled, fixedNow)
	require.NoError(t, err)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	released, ok := events[0].(event.StockReleased)
	require.True(t, ok)
	assert.Equal(t, valueobject.ReleaseReasonOrderCancelled, released.Reason)
	assert.Equal(t, int32(10), released.AvailableAfter.Int32())
}

func TestProduct_Deduct_EmitsStockDeducted(t *testing.T) {
	p := newTestProduct(t, 10)
	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, fixedNow)
	require.NoError(t, err)
	p.DrainEvents()

	err = p.Deduct(reservationId, "O1", fixedNow)
	require.NoError(t, err)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	deducted, ok := events[0].(event.StockDeducted)
	require.True(t, ok)
	assert.Equal(t, int32(3), deducted.DeductedQty.Int32())
	assert.Equal(t, int32(7), deducted.TotalAfter.Int32())
}

func TestProduct_CleanupExpired_EmitsStockReleasedWithExpiredReason(t *testing.T) {
	p := newTestProduct(t, 10)
	_, err := p.Reserve(valueobject.MustQty(3), "O1", 10*time.Minute, fixedNow)
	require.NoError(t, err)
	p.DrainEvents()

	count := p.CleanupExpired(fixedNow.Add(10 * time.Minute))
	assert.Equal(t, 1, count)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	released, ok := events[0].(event.StockReleased)
	require.True(t, ok)
	assert.Equal(t, valueobject.ReleaseReasonExpired, released.Reason)
}

func TestProduct_LowStockAlert_FiresWhenBelowThreshold(t *testing.T) {
	id := valueobject.NewProductId()
	p, err := entity.NewProduct(id, "Widget", valueobject.MustQty(5), fixedNow)
	require.NoError(t, err)
	p.LowStockThreshold = valueobject.MustQty(3)

	_, err = p.Reserve(valueobject.MustQty(3), "O1", 0, fixedNow)
	require.NoError(t, err)

	events := p.DrainEvents()
	require.Len(t, events, 2)
	_, isReserved := events[0].(event.StockReserved)
	assert.True(t, isReserved)
	alert, isAlert := events[1].(event.LowStockAlert)
	require.True(t, isAlert)
	assert.Equal(t, int32(2), alert.Available.Int32())
}

func TestProduct_DeductDirect_RequiresActive(t *testing.T) {
	p := newTestProduct(t, 10)
	p.Deactivate(fixedNow)
	p.DrainEvents()

	err := p.DeductDirect(valueobject.MustQty(1), "damage", fixedNow)
	assert.ErrorIs(t, err, entity.ErrProductInactive)
}

func TestProduct_ActivateDeactivate_Idempotent(t *testing.T) {
	p := newTestProduct(t, 10)

	p.Deactivate(fixedNow)
	events := p.DrainEvents()
	require.Len(t, events, 1)

	// Deactivating again is a no-op: no further event.
	p.Deactivate(fixedNow)
	assert.Empty(t, p.DrainEvents())

	p.Activate(fixedNow)
	events = p.DrainEvents()
	require.Len(t, events, 1)
	status, ok := events[0].(event.ProductStatusChanged)
	require.True(t, ok)
	assert.True(t, status.Active)
}

func TestProduct_EachReservationBumpsStockVersion(t *testing.T) {
	p := newTestProduct(t, 10)

	_, err := p.Reserve(valueobject.MustQty(1), "O1", 0, fixedNow)
	require.NoError(t, err)
	_, err = p.Reserve(valueobject.MustQty(1), "O2", 0, fixedNow.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), p.Stock.Version)
}

func TestProduct_EventsCarryAdvancingStockVersion(t *testing.T) {
	p := newTestProduct(t, 10)

	r1, err := p.Reserve(valueobject.MustQty(2), "O1", 0, fixedNow)
	require.NoError(t, err)
	_, err = p.Reserve(valueobject.MustQty(1), "O2", 0, fixedNow)
	require.NoError(t, err)
	require.NoError(t, p.Release(r1, "O1", valueobject.ReleaseReasonOrderCancelled, fixedNow))

	events := p.DrainEvents()
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].(event.StockReserved).StockVersion)
	assert.Equal(t, uint64(2), events[1].(event.StockReserved).StockVersion)
	assert.Equal(t, uint64(3), events[2].(event.StockReleased).StockVersion)
}

func TestProduct_RejectedReserveCarriesUnchangedVersion(t *testing.T) {
	p := newTestProduct(t, 2)

	_, err := p.Reserve(valueobject.MustQty(5), "O1", 0, fixedNow)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	events := p.DrainEvents()
	require.Len(t, events, 1)
	insufficient := events[0].(event.InsufficientStock)
	assert.Equal(t, uint64(0), insufficient.StockVersion, "a rejected command does not advance the aggregate")
}

func TestProduct_Deduct_InactiveProductRefused(t *testing.T) {
	p := newTestProduct(t, 10)
	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, fixedNow)
	require.NoError(t, err)
	p.Deactivate(fixedNow)
	p.DrainEvents()

	err = p.Deduct(reservationId, "O1", fixedNow)
	assert.ErrorIs(t, err, entity.ErrProductInactive)
	assert.Empty(t, p.DrainEvents())

	available, reserved, total := p.Stock.Peek()
	assert.Equal(t, int32(7), available.Int32())
	assert.Equal(t, int32(3), reserved.Int32(), "the reservation is left standing, not consumed")
	assert.Equal(t, int32(10), total.Int32())
}
