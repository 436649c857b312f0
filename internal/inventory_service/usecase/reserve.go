package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/config"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/repository"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/middleware"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/utils"
)

// ReservationUsecase implements the single-item and batch reservation
// lifecycle: reserve, deduct, release, and the expired-reservation sweep.
// Every mutation follows the same shape — acquire the per-product lock,
// load, mutate, save with optimistic retry, drain and publish events,
// release the lock — so that a lost publish never also loses the
// persisted state change.
type ReservationUsecase struct {
	products repository.ProductRepository
	lock     service.DistributedLockService
	events   service.EventPublisherService
	cfg      *config.Config
	log      logger.Logger
	now      func() time.Time
	errs     *utils.ErrorBuilder
}

// NewReservationUsecase wires the use case to its ports. now defaults to
// time.Now when nil; tests supply a fixed clock instead.
func NewReservationUsecase(
	products repository.ProductRepository,
	lock service.DistributedLockService,
	events service.EventPublisherService,
	cfg *config.Config,
	log logger.Logger,
	now func() time.Time,
) *ReservationUsecase {
	if now == nil {
		now = time.Now
	}
	return &ReservationUsecase{
		products: products,
		lock:     lock,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      now,
		errs:     utils.NewErrorBuilder("ReservationUsecase"),
	}
}

// Reserve creates a reservation for one product under the product's lock,
// retrying on optimistic conflict, and publishes whatever events the
// mutation produced (StockReserved on success, InsufficientStock on
// failure) before returning.
func (u *ReservationUsecase) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	key := service.ProductLockKey(in.ProductId.String())
	ttl := in.TTL
	if ttl <= 0 {
		ttl = u.cfg.Reservation.DefaultTTL
	}

	var result ReserveResult
	err := u.lock.WithLock(ctx, key, u.cfg.Lock.WaitTimeout, u.cfg.Lock.LeaseTimeout, func(ctx context.Context) error {
		return retryOptimistic(ctx, u.cfg.Retry.OptimisticMaxAttempts, u.cfg.Retry.OptimisticBackoffBase, func() error {
			product, err := u.products.Load(ctx, in.ProductId)
			if err != nil {
				if errors.Is(err, entity.ErrProductNotFound) {
					u.publishNotFound(ctx, in)
				}
				return err
			}

			now := u.now()
			reservationId, reserveErr := product.Reserve(in.Quantity, in.OrderId, ttl, now)

			if saveErr := u.saveAndPublish(ctx, correlationIDFor(ctx, in.OrderId), product); saveErr != nil {
				return saveErr
			}
			if reserveErr != nil {
				return reserveErr
			}

			available, _, _ := product.Stock.Peek()
			result = ReserveResult{
				ReservationId:  reservationId,
				AvailableAfter: available,
				ExpiresAt:      now.Add(ttl),
			}
			return nil
		})
	})
	if err != nil {
		return ReserveResult{}, u.errs.Err(err)
	}
	return result, nil
}

// publishNotFound emits InsufficientStock for a reservation attempt
// against an unknown product. There is no aggregate to mutate in this
// case, so the event is published directly rather than via saveAndPublish,
// preserving the invariant that every OrderCreated line item resolves to
// exactly one of StockReserved or InsufficientStock.
func (u *ReservationUsecase) publishNotFound(ctx context.Context, in ReserveInput) {
	evt := event.InsufficientStock{
		OrderId:      in.OrderId,
		ProductId:    in.ProductId,
		RequestedQty: in.Quantity,
		AvailableQty: valueobject.Zero,
		Reason:       valueobject.InsufficientReasonNotFound,
	}
	if err := u.events.Publish(ctx, correlationIDFor(ctx, in.OrderId), evt); err != nil {
		u.log.Error("failed to publish InsufficientStock for unknown product", "productId", in.ProductId.String(), "orderId", in.OrderId, "error", err)
	}
}

// correlationIDFor prefers the id carried by an inbound Kafka message
// (threaded onto ctx by the subscriber) and falls back to orderId, so a
// reserve, deduct or release called directly through the use case (no
// inbound event on ctx) still groups its published events under a stable
// id. The sweeper does not use it and publishes with an empty id.
func correlationIDFor(ctx context.Context, fallback string) string {
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return fallback
}

// saveAndPublish persists product and, only if that succeeds, drains and
// publishes its pending events in order. Events are never drained ahead
// of a successful save: a failed save must leave the aggregate's events
// intact for the next attempt to regenerate (which it will, since the
// mutation itself is re-run from a freshly loaded aggregate on retry).
func (u *ReservationUsecase) saveAndPublish(ctx context.Context, correlationId string, product *entity.Product) error {
	if !product.HasPendingEvents() {
		return nil
	}
	if err := u.products.Save(ctx, product); err != nil {
		return err
	}
	events := product.DrainEvents()
	if err := u.events.PublishBatch(ctx, correlationId, events); err != nil {
		u.log.Error("failed to publish events after save", "correlationId", correlationId, "error", err)
		return err
	}
	return nil
}
