// Package event defines the domain events a Product aggregate appends to
// its pending-event list. These are plain data carriers — no base class,
// no inheritance — distinguished by the DomainEvent marker method so
// callers can type-switch when draining them.
//
// Every event carries StockVersion, the aggregate's version at the time
// the event was appended. The publisher lifts it into the envelope's
// version field (it is excluded from the payload body itself), so
// consumers observe a non-decreasing version sequence per product. A
// mutation that appends more than one event (a reserve that also trips
// the low-stock alert, a sweep releasing several reservations) stamps
// them all with the same version, since the aggregate advanced once.
package event

import (
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// DomainEvent is implemented by every event a Product can append to its
// pending-event list.
type DomainEvent interface {
	EventType() string
}

// StockReserved is appended by Product.Reserve on success.
type StockReserved struct {
	ProductId      valueobject.ProductId     `json:"productId"`
	ReservationId  valueobject.ReservationId `json:"reservationId"`
	OrderId        string                    `json:"orderId"`
	Quantity       valueobject.StockQuantity `json:"quantity"`
	AvailableAfter valueobject.StockQuantity `json:"availableAfter"`
	ExpiresAt      time.Time                 `json:"expiresAt"`
	StockVersion   uint64                    `json:"-"`
}

func (StockReserved) EventType() string { return "StockReserved" }

// StockDeducted is appended by Product.Deduct on success.
type StockDeducted struct {
	ProductId     valueobject.ProductId     `json:"productId"`
	ReservationId valueobject.ReservationId `json:"reservationId"`
	OrderId       string                    `json:"orderId"`
	DeductedQty   valueobject.StockQuantity `json:"deductedQty"`
	TotalAfter    valueobject.StockQuantity `json:"remainingTotal"`
	StockVersion  uint64                    `json:"-"`
}

func (StockDeducted) EventType() string { return "StockDeducted" }

// StockReleased is appended by Product.Release and Product.CleanupExpired.
type StockReleased struct {
	ProductId      valueobject.ProductId     `json:"productId"`
	ReservationId  valueobject.ReservationId `json:"reservationId"`
	OrderId        string                    `json:"orderId"`
	Quantity       valueobject.StockQuantity `json:"qty"`
	AvailableAfter valueobject.StockQuantity `json:"availableAfter"`
	Reason         valueobject.ReleaseReason `json:"reason"`
	StockVersion   uint64                    `json:"-"`
}

func (StockReleased) EventType() string { return "StockReleased" }

// StockAdjusted is appended by Product.DeductDirect, AddStock and Adjust.
type StockAdjusted struct {
	ProductId    valueobject.ProductId     `json:"productId"`
	Delta        int32                     `json:"delta"`
	Reason       string                    `json:"reason"`
	NewTotal     valueobject.StockQuantity `json:"newTotal"`
	StockVersion uint64                    `json:"-"`
}

func (StockAdjusted) EventType() string { return "StockAdjusted" }

// InsufficientStock is appended when a reservation attempt cannot be
// satisfied, instead of being returned as a bare error, so the use case
// always has an event to publish for the orderId. It records a rejected
// command, not a mutation: StockVersion carries the aggregate's current
// (unadvanced) version, or zero when the product does not exist at all.
type InsufficientStock struct {
	OrderId      string                         `json:"orderId"`
	ProductId    valueobject.ProductId          `json:"productId"`
	RequestedQty valueobject.StockQuantity      `json:"requestedQty"`
	AvailableQty valueobject.StockQuantity      `json:"availableQty"`
	Reason       valueobject.InsufficientReason `json:"reason"`
	StockVersion uint64                         `json:"-"`
}

func (InsufficientStock) EventType() string { return "InsufficientStock" }

// LowStockAlert is appended when a mutation drops available stock to or
// below the product's low-stock threshold.
type LowStockAlert struct {
	ProductId    valueobject.ProductId     `json:"productId"`
	Available    valueobject.StockQuantity `json:"available"`
	Threshold    valueobject.StockQuantity `json:"threshold"`
	StockVersion uint64                    `json:"-"`
}

func (LowStockAlert) EventType() string { return "LowStockAlert" }

// ProductStatusChanged is appended by Activate/Deactivate. Optional for
// consumers; carried for completeness of the product lifecycle.
type ProductStatusChanged struct {
	ProductId    valueobject.ProductId `json:"productId"`
	Active       bool                  `json:"active"`
	StockVersion uint64                `json:"-"`
}

func (ProductStatusChanged) EventType() string { return "ProductStatusChanged" }
