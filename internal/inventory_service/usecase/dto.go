package usecase

import (
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// ReserveInput is the input to the single-item Reserve use case.
type ReserveInput struct {
	ProductId valueobject.ProductId
	Quantity  valueobject.StockQuantity
	OrderId   string
	TTL       time.Duration
}

// ReserveResult is returned by a successful Reserve.
type ReserveResult struct {
	ReservationId  valueobject.ReservationId
	AvailableAfter valueobject.StockQuantity
	ExpiresAt      time.Time
}

// BatchItem is one line item of a batch reservation request.
type BatchItem struct {
	ProductId valueobject.ProductId
	Quantity  valueobject.StockQuantity
}

// BatchReserveInput is the input to the Batch Reserve use case.
type BatchReserveInput struct {
	OrderId string
	Items   []BatchItem
	Atomic  bool
}

// BatchItemResult reports the outcome of one item within a non-atomic
// batch reservation.
type BatchItemResult struct {
	ProductId     valueobject.ProductId
	ReservationId valueobject.ReservationId
	Succeeded     bool
	Err           error
}

// BatchReserveResult is returned by the Batch Reserve use case.
type BatchReserveResult struct {
	Items []BatchItemResult
}
