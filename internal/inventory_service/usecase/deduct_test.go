package usecase_test

import (
	"context"
	"testing"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduct_SettlesReservationAndPublishes(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, testClockTime)
	require.NoError(t, err)
	p.DrainEvents()

	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)

	err = uc.Deduct(context.Background(), reservationId, "O1")
	require.NoError(t, err)

	events := pub.all()
	require.Len(t, events, 1)
	deducted, ok := events[0].Event.(event.StockDeducted)
	require.True(t, ok)
	assert.Equal(t, int32(3), deducted.DeductedQty.Int32())
}

func TestDeduct_TwiceFailsSecondTimeWithoutSideEffect(t *testing.T) {
	p := newTestProductWithId(t, "P1", 10)
	reservationId, err := p.Reserve(valueobject.MustQty(3), "O1", 0, testClockTime)
	require.NoError(t, err)
	p.DrainEvents()

	repo := newFakeProductRepository(p)
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)

	require.NoError(t, uc.Deduct(context.Background(), reservationId, "O1"))

	err = uc.Deduct(context.Background(), reservationId, "O1")
	assert.ErrorIs(t, err, entity.ErrReservationInvalid)
	assert.Len(t, pub.all(), 1, "second deduct must not publish again")
}

func TestDeduct_UnknownReservationFailsLookup(t *testing.T) {
	repo := newFakeProductRepository()
	pub := newFakeEventPublisher()
	uc := newTestUsecase(repo, newFakeLockService(), pub)

	_, err := repo.FindProductByReservationId(context.Background(), valueobject.NewReservationId())
	assert.ErrorIs(t, err, entity.ErrProductNotFound)

	err = uc.Deduct(context.Background(), valueobject.NewReservationId(), "O1")
	assert.ErrorIs(t, err, entity.ErrReservationInvalid)
}
