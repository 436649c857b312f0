package usecase

import (
	"context"
	"sort"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// BatchReserve reserves every item in in.Items. Items are always locked
// and processed in ascending ProductId order, atomic mode or not, so that
// two concurrent batch reservations sharing products can never deadlock
// on each other's locks.
//
// Atomic mode: the first item failure stops the batch and every
// already-succeeded reservation in this batch is released as a
// compensating action, then the triggering error is returned.
//
// Non-atomic mode: every item is attempted regardless of earlier
// failures; the result reports success/failure per item and never
// returns a bare error for an individual item's own failure.
func (u *ReservationUsecase) BatchReserve(ctx context.Context, in BatchReserveInput) (BatchReserveResult, error) {
	items := make([]BatchItem, len(in.Items))
	copy(items, in.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductId.String() < items[j].ProductId.String()
	})

	result := BatchReserveResult{Items: make([]BatchItemResult, 0, len(items))}

	for _, item := range items {
		itemResult, err := u.Reserve(ctx, ReserveInput{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			OrderId:   in.OrderId,
		})

		if err != nil {
			result.Items = append(result.Items, BatchItemResult{
				ProductId: item.ProductId,
				Succeeded: false,
				Err:       err,
			})
			if in.Atomic {
				u.compensate(ctx, in.OrderId, result.Items)
				return result, err
			}
			continue
		}

		result.Items = append(result.Items, BatchItemResult{
			ProductId:     item.ProductId,
			ReservationId: itemResult.ReservationId,
			Succeeded:     true,
		})
	}

	return result, nil
}

// compensate releases every reservation that succeeded earlier in an
// atomic batch that has since failed. Best-effort: a release failure here
// is logged and does not block the others, since the batch is already
// failing and the expiry sweeper is the backstop for anything left
// dangling.
func (u *ReservationUsecase) compensate(ctx context.Context, orderId string, results []BatchItemResult) {
	for _, r := range results {
		if !r.Succeeded {
			continue
		}
		if err := u.Release(ctx, r.ProductId, r.ReservationId, orderId, valueobject.ReleaseReasonOrderCancelled); err != nil {
			u.log.Error("compensating release failed", "orderId", orderId, "productId", r.ProductId.String(), "reservationId", r.ReservationId.String(), "error", err)
		}
	}
}
