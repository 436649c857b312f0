package repository

import (
	"context"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// ProductPage is one page of FindActiveProductsWithReservations: stable
// ordering within a cursor, unspecified across repository
// implementations.
type ProductPage struct {
	Products   []*entity.Product
	NextCursor string
	HasMore    bool
}

// ReservationRef names a reservation together with the product that owns
// it, for callers that only have an order id to start from.
type ReservationRef struct {
	ProductId     valueobject.ProductId
	ReservationId valueobject.ReservationId
}

// ProductRepository is the outbound port for loading and saving the
// Product aggregate. A single Product's mutation and event drain must be
// atomic: if Save fails, the caller must not drain or publish events for
// that mutation.
type ProductRepository interface {
	// Load returns the current Product, or entity.ErrProductNotFound.
	Load(ctx context.Context, id valueobject.ProductId) (*entity.Product, error)

	// Save persists product, rejecting with entity.ErrOptimisticConflict
	// if the version observed at Load time has since advanced.
	Save(ctx context.Context, product *entity.Product) error

	// LoadBatch returns every product found among ids, keyed by id;
	// missing ids are simply absent from the result.
	LoadBatch(ctx context.Context, ids []valueobject.ProductId) (map[valueobject.ProductId]*entity.Product, error)

	// FindActiveProductsWithReservations pages through active products
	// that currently hold at least one reservation, feeding the sweeper.
	FindActiveProductsWithReservations(ctx context.Context, limit int, cursor string) (ProductPage, error)

	// FindProductByReservationId resolves the owning product for a
	// reservation id, used by Deduct/Release when the caller only knows
	// the reservation. Returns entity.ErrProductNotFound if no product
	// currently owns that reservation.
	FindProductByReservationId(ctx context.Context, reservationId valueobject.ReservationId) (valueobject.ProductId, error)

	// FindReservationsByOrder returns every (productId, reservationId)
	// pair currently open for orderId, used by batch release/cancel.
	FindReservationsByOrder(ctx context.Context, orderId string) ([]ReservationRef, error)
}
