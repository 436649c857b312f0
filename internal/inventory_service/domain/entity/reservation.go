package entity

import (
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// DefaultReservationTTL is used when a reservation request does not
// specify one; configurable via config.Config.Reservation.DefaultTTL.
const DefaultReservationTTL = 30 * time.Minute

// Reservation is a time-bounded hold on quantity units of a Product's
// stock, backing a single order. It is owned exclusively by the Stock
// that created it; outside code only ever holds a ReservationId.
type Reservation struct {
	Id         valueobject.ReservationId
	Quantity   valueobject.StockQuantity
	OrderId    string
	ReservedAt time.Time
	ExpiresAt  time.Time
}

// IsExpired reports whether the reservation's expiry has passed at now.
// The boundary is inclusive: a reservation expiring exactly at now is
// considered expired.
func (r Reservation) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
