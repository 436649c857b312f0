package usecase

import (
	"context"
	"errors"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// Deduct converts a reservation into a permanent stock decrease, in
// response to an upstream PaymentConfirmed event. Idempotent: deducting an
// already-deducted (or already-released) reservation id returns
// entity.ErrReservationInvalid with no side effect, so a redelivered
// event is safe to replay without an idempotency store of its own beyond
// the inbound dedup already applied by the caller.
func (u *ReservationUsecase) Deduct(ctx context.Context, reservationId valueobject.ReservationId, orderId string) error {
	productId, err := u.products.FindProductByReservationId(ctx, reservationId)
	if err != nil {
		return u.errs.Err(asReservationInvalid(err))
	}

	err = u.lock.WithLock(ctx, service.ProductLockKey(productId.String()), u.cfg.Lock.WaitTimeout, u.cfg.Lock.LeaseTimeout, func(ctx context.Context) error {
		return retryOptimistic(ctx, u.cfg.Retry.OptimisticMaxAttempts, u.cfg.Retry.OptimisticBackoffBase, func() error {
			product, err := u.products.Load(ctx, productId)
			if err != nil {
				return err
			}
			if err := product.Deduct(reservationId, orderId, u.now()); err != nil {
				return err
			}
			return u.saveAndPublish(ctx, correlationIDFor(ctx, orderId), product)
		})
	})
	if err != nil {
		return u.errs.Err(asReservationInvalid(err))
	}
	return nil
}

// asReservationInvalid maps the not-found variants Deduct's lookup path
// and Stock.Deduct can produce onto the single entity.ErrReservationInvalid
// surfaced to callers, per the error taxonomy: a second deduct against an
// absent, already-settled, or expired reservation always fails the same
// way, regardless of which layer noticed.
func asReservationInvalid(err error) error {
	if errors.Is(err, entity.ErrReservationNotFound) || errors.Is(err, entity.ErrProductNotFound) {
		return entity.ErrReservationInvalid
	}
	return err
}
