package usecase

import (
	"context"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
)

// sweeperLockWait is the short wait the sweeper uses when acquiring a
// product lock, distinct from the longer lock.waitTimeout the reserve/
// deduct/release use cases use: a stuck sweeper pass must never hold up
// the next tick, and an un-lockable product is simply revisited then.
const sweeperLockWait = 1 * time.Second

// SweepExpired pages through every active product that currently holds a
// reservation and releases whichever of its reservations have expired. A
// product whose lock cannot be acquired within the short wait is skipped
// for this pass rather than blocking the sweep; it will be picked up
// again on the next tick, since an expired reservation only grows more
// overdue, never less.
func (u *ReservationUsecase) SweepExpired(ctx context.Context) (swept int, err error) {
	cursor := ""
	for {
		page, pageErr := u.products.FindActiveProductsWithReservations(ctx, u.cfg.Sweeper.PageSize, cursor)
		if pageErr != nil {
			return swept, pageErr
		}

		for _, product := range page.Products {
			key := service.ProductLockKey(product.Id.String())
			lockErr := u.lock.WithLock(ctx, key, sweeperLockWait, u.cfg.Lock.LeaseTimeout, func(ctx context.Context) error {
				fresh, loadErr := u.products.Load(ctx, product.Id)
				if loadErr != nil {
					return loadErr
				}
				released := fresh.CleanupExpired(u.now())
				if released == 0 {
					return nil
				}
				swept += released
				return u.saveAndPublish(ctx, "", fresh)
			})
			if lockErr != nil {
				u.log.Warn("sweeper skipped product, lock unavailable", "productId", product.Id.String(), "error", lockErr)
			}
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	return swept, nil
}
