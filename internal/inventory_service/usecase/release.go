package usecase

import (
	"context"
	"errors"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// Release releases a single reservation back to Available stock. Not
// found is treated as success (ErrReservationNotFound is swallowed): an
// order cancellation that arrives after the reservation already expired,
// or after a prior redelivery already released it, must still behave as
// a no-op rather than an error, since cancellation is idempotent by
// nature.
func (u *ReservationUsecase) Release(ctx context.Context, productId valueobject.ProductId, reservationId valueobject.ReservationId, orderId string, reason valueobject.ReleaseReason) error {
	key := service.ProductLockKey(productId.String())
	err := u.lock.WithLock(ctx, key, u.cfg.Lock.WaitTimeout, u.cfg.Lock.LeaseTimeout, func(ctx context.Context) error {
		return retryOptimistic(ctx, u.cfg.Retry.OptimisticMaxAttempts, u.cfg.Retry.OptimisticBackoffBase, func() error {
			product, err := u.products.Load(ctx, productId)
			if err != nil {
				return err
			}
			if err := product.Release(reservationId, orderId, reason, u.now()); err != nil {
				if errors.Is(err, entity.ErrReservationNotFound) {
					return nil
				}
				return err
			}
			return u.saveAndPublish(ctx, correlationIDFor(ctx, orderId), product)
		})
	})
	if err != nil {
		return u.errs.Err(err)
	}
	return nil
}

// ReleaseByOrder releases every open reservation belonging to orderId,
// used when an order is cancelled outright. Each reservation is released
// independently under its own product lock; a failure on one does not
// block the others, and the caller gets back every error encountered so
// it can decide whether to retry or let the sweeper clean up the rest.
func (u *ReservationUsecase) ReleaseByOrder(ctx context.Context, orderId string, reason valueobject.ReleaseReason) error {
	refs, err := u.products.FindReservationsByOrder(ctx, orderId)
	if err != nil {
		return err
	}

	var errs []error
	for _, ref := range refs {
		if err := u.Release(ctx, ref.ProductId, ref.ReservationId, orderId, reason); err != nil {
			u.log.Error("failed to release reservation for cancelled order", "orderId", orderId, "productId", ref.ProductId.String(), "reservationId", ref.ReservationId.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
