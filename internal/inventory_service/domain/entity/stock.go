package entity

import (
	"fmt"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// Stock is owned exclusively by its Product. Every mutating method
// maintains the invariant available + reserved == total, available >= 0,
// reserved >= 0, bumping Version on every mutation that actually changes
// state.
type Stock struct {
	Available      valueobject.StockQuantity
	Reserved       valueobject.StockQuantity
	Total          valueobject.StockQuantity
	Reservations   map[valueobject.ReservationId]Reservation
	Version        uint64
	LastModifiedAt time.Time
}

// NewStock constructs a Stock with all of total as available.
func NewStock(total valueobject.StockQuantity, now time.Time) Stock {
	return Stock{
		Available:      total,
		Reserved:       valueobject.Zero,
		Total:          total,
		Reservations:   make(map[valueobject.ReservationId]Reservation),
		Version:        0,
		LastModifiedAt: now,
	}
}

// checkInvariant panics if available + reserved != total. Negative
// buckets are not checked here: StockQuantity has no negative
// representation and CheckedSub refuses to underflow. A violation here is
// a programmer error in this package; it must never be observable outside
// it.
func (s *Stock) checkInvariant() {
	if s.Available.Add(s.Reserved).Int32() != s.Total.Int32() {
		panic(fmt.Sprintf("stock invariant violated: available=%d reserved=%d total=%d",
			s.Available.Int32(), s.Reserved.Int32(), s.Total.Int32()))
	}
}

func (s *Stock) bump(now time.Time) {
	s.Version++
	s.LastModifiedAt = now
}

// Reserve holds quantity units against reservationId. Fails
// ErrZeroQuantity if quantity is zero (a reservation always holds at
// least one unit), ErrDuplicateReservation if the id is already present,
// ErrInsufficientStock if quantity exceeds Available.
func (s *Stock) Reserve(reservationId valueobject.ReservationId, quantity valueobject.StockQuantity, orderId string, ttl time.Duration, now time.Time) (Reservation, error) {
	if quantity.IsZero() {
		return Reservation{}, ErrZeroQuantity
	}
	if _, exists := s.Reservations[reservationId]; exists {
		return Reservation{}, ErrDuplicateReservation
	}
	if quantity.GreaterThan(s.Available) {
		return Reservation{}, ErrInsufficientStock
	}

	available, err := s.Available.CheckedSub(quantity)
	if err != nil {
		return Reservation{}, err
	}
	s.Available = available
	s.Reserved = s.Reserved.Add(quantity)

	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	reservation := Reservation{
		Id:         reservationId,
		Quantity:   quantity,
		OrderId:    orderId,
		ReservedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	s.Reservations[reservationId] = reservation
	s.bump(now)
	s.checkInvariant()
	return reservation, nil
}

// Release returns a reservation's quantity to Available and removes it.
// Safe to call on a reservation the sweeper may have already expired but
// not yet removed; the caller only needs to race-tolerate a
// ErrReservationNotFound once the sweeper wins.
func (s *Stock) Release(reservationId valueobject.ReservationId, now time.Time) (valueobject.StockQuantity, error) {
	reservation, exists := s.Reservations[reservationId]
	if !exists {
		return valueobject.Zero, ErrReservationNotFound
	}

	s.Available = s.Available.Add(reservation.Quantity)
	reserved, err := s.Reserved.CheckedSub(reservation.Quantity)
	if err != nil {
		return valueobject.Zero, err
	}
	s.Reserved = reserved
	delete(s.Reservations, reservationId)
	s.bump(now)
	s.checkInvariant()
	return reservation.Quantity, nil
}

// Deduct consumes a reservation: Reserved and Total both shrink by the
// reservation's quantity, Available is untouched since that quantity was
// already carved out of Available at Reserve time. Fails
// ErrReservationNotFound if the id is absent, and ErrReservationInvalid
// without any change if the reservation has expired by now (it stays in
// place for the sweeper to release).
func (s *Stock) Deduct(reservationId valueobject.ReservationId, now time.Time) (valueobject.StockQuantity, error) {
	reservation, exists := s.Reservations[reservationId]
	if !exists {
		return valueobject.Zero, ErrReservationNotFound
	}
	if reservation.IsExpired(now) {
		return valueobject.Zero, ErrReservationInvalid
	}

	reserved, err := s.Reserved.CheckedSub(reservation.Quantity)
	if err != nil {
		return valueobject.Zero, err
	}
	total, err := s.Total.CheckedSub(reservation.Quantity)
	if err != nil {
		return valueobject.Zero, err
	}
	s.Reserved = reserved
	s.Total = total
	delete(s.Reservations, reservationId)
	s.bump(now)
	s.checkInvariant()
	return reservation.Quantity, nil
}

// DeductDirect removes quantity from Available and Total without going
// through a reservation (e.g. manual stock write-off).
func (s *Stock) DeductDirect(quantity valueobject.StockQuantity, now time.Time) error {
	if quantity.GreaterThan(s.Available) {
		return ErrInsufficientStock
	}
	available, err := s.Available.CheckedSub(quantity)
	if err != nil {
		return err
	}
	total, err := s.Total.CheckedSub(quantity)
	if err != nil {
		return err
	}
	s.Available = available
	s.Total = total
	s.bump(now)
	s.checkInvariant()
	return nil
}

// Add increases Available and Total by quantity.
func (s *Stock) Add(quantity valueobject.StockQuantity, now time.Time) {
	s.Available = s.Available.Add(quantity)
	s.Total = s.Total.Add(quantity)
	s.bump(now)
	s.checkInvariant()
}

// Adjust sets Total to newTotal, recomputing Available as newTotal minus
// whatever is currently reserved. Fails ErrAdjustmentTooLow if newTotal
// would be smaller than Reserved.
func (s *Stock) Adjust(newTotal valueobject.StockQuantity, now time.Time) error {
	if newTotal.Int32() < s.Reserved.Int32() {
		return ErrAdjustmentTooLow
	}
	available, err := newTotal.CheckedSub(s.Reserved)
	if err != nil {
		return err
	}
	s.Total = newTotal
	s.Available = available
	s.bump(now)
	s.checkInvariant()
	return nil
}

// ExpiredEntry is one reservation released by SweepExpired.
type ExpiredEntry struct {
	ReservationId valueobject.ReservationId
	OrderId       string
	Quantity      valueobject.StockQuantity
}

// SweepExpired removes every reservation whose expiry is at-or-before
// now, returning Available stock for each, and reports what it released
// so the caller can emit one event per entry. The boundary is inclusive:
// a reservation expiring exactly at now is swept.
func (s *Stock) SweepExpired(now time.Time) []ExpiredEntry {
	var expired []ExpiredEntry
	for id, reservation := range s.Reservations {
		if !reservation.IsExpired(now) {
			continue
		}
		expired = append(expired, ExpiredEntry{
			ReservationId: id,
			OrderId:       reservation.OrderId,
			Quantity:      reservation.Quantity,
		})
	}

	if len(expired) == 0 {
		return nil
	}

	for _, entry := range expired {
		s.Available = s.Available.Add(entry.Quantity)
		reserved, err := s.Reserved.CheckedSub(entry.Quantity)
		if err != nil {
			panic(fmt.Sprintf("stock invariant violated while sweeping: %v", err))
		}
		s.Reserved = reserved
		delete(s.Reservations, entry.ReservationId)
	}
	s.bump(now)
	s.checkInvariant()
	return expired
}

// Peek returns a read-only snapshot of the three buckets, used by
// handlers building response payloads and by tests; it never mutates.
func (s *Stock) Peek() (available, reserved, total valueobject.StockQuantity) {
	return s.Available, s.Reserved, s.Total
}
