package entity

import (
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/event"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// Product is the aggregate root: it owns its Stock exclusively, enforces
// the active flag and low-stock alerting, and records domain events for
// every mutation. Callers must drain pendingEvents after a successful
// save, never before, so that "persisted" implies "eventually published".
type Product struct {
	Id                valueobject.ProductId
	Name              string
	Stock             Stock
	LowStockThreshold valueobject.StockQuantity
	Active            bool
	CreatedAt         time.Time
	LastModifiedAt    time.Time

	pendingEvents []event.DomainEvent
	loadedVersion uint64
}

// NewProduct constructs an active Product seeded with the given total
// stock. LowStockThreshold defaults to zero (no alerting) unless set
// afterwards.
func NewProduct(id valueobject.ProductId, name string, total valueobject.StockQuantity, now time.Time) (*Product, error) {
	if id.IsZero() || name == "" {
		return nil, ErrInvalidProductData
	}
	return &Product{
		Id:             id,
		Name:           name,
		Stock:          NewStock(total, now),
		Active:         true,
		CreatedAt:      now,
		LastModifiedAt: now,
	}, nil
}

// RehydrateProductParams carries a stored Product's full state back into
// the aggregate, bypassing NewProduct's fresh-aggregate invariants (a
// loaded Product may be inactive, partially reserved, or carry a nonzero
// Version) and append-only pendingEvents (a freshly loaded aggregate has
// none).
type RehydrateProductParams struct {
	Id                valueobject.ProductId
	Name              string
	Available         valueobject.StockQuantity
	Reserved          valueobject.StockQuantity
	Total             valueobject.StockQuantity
	Reservations      map[valueobject.ReservationId]Reservation
	Version           uint64
	LowStockThreshold valueobject.StockQuantity
	Active            bool
	CreatedAt         time.Time
	LastModifiedAt    time.Time
}

// RehydrateProduct reconstructs a Product from persisted state. Used
// exclusively by repository implementations; domain and use-case code
// always goes through NewProduct or a repository Load.
func RehydrateProduct(p RehydrateProductParams) *Product {
	reservations := p.Reservations
	if reservations == nil {
		reservations = make(map[valueobject.ReservationId]Reservation)
	}
	return &Product{
		Id:   p.Id,
		Name: p.Name,
		Stock: Stock{
			Available:      p.Available,
			Reserved:       p.Reserved,
			Total:          p.Total,
			Reservations:   reservations,
			Version:        p.Version,
			LastModifiedAt: p.LastModifiedAt,
		},
		LowStockThreshold: p.LowStockThreshold,
		Active:            p.Active,
		CreatedAt:         p.CreatedAt,
		LastModifiedAt:    p.LastModifiedAt,
		loadedVersion:     p.Version,
	}
}

// LoadedVersion reports the Stock version this Product had when it was
// loaded (NewProduct: zero; RehydrateProduct: the persisted version),
// untouched by any mutation made since. A repository's optimistic-write
// check must compare the stored row against LoadedVersion, never against
// the current (possibly already-bumped) Stock.Version, since domain
// mutations advance Stock.Version before the aggregate is saved.
func (p *Product) LoadedVersion() uint64 {
	return p.loadedVersion
}

// MarkPersisted records that the aggregate's current Stock.Version has
// been durably written, so a subsequent Save on the same in-memory
// instance (without an intervening Load) compares against the version it
// just wrote rather than the one it was originally loaded with.
func (p *Product) MarkPersisted() {
	p.loadedVersion = p.Stock.Version
}

func (p *Product) append(e event.DomainEvent) {
	p.pendingEvents = append(p.pendingEvents, e)
}

func (p *Product) touch(now time.Time) {
	p.LastModifiedAt = now
}

// maybeAlertLowStock appends a LowStockAlert when the current Available
// is at or below the threshold; a zero threshold disables alerting.
// Policy: transition-triggered would require tracking the prior value
// through every call site; this implementation instead fires on every
// Reserve, DeductDirect or Adjust that leaves Available in the alert
// band, which is simpler and still deterministic. Release, Deduct,
// AddStock and CleanupExpired never raise the alert.
func (p *Product) maybeAlertLowStock() {
	if p.LowStockThreshold.IsZero() {
		return
	}
	if p.Stock.Available.LessThanOrEqual(p.LowStockThreshold) {
		p.append(event.LowStockAlert{
			ProductId:    p.Id,
			Available:    p.Stock.Available,
			Threshold:    p.LowStockThreshold,
			StockVersion: p.Stock.Version,
		})
	}
}

// Reserve creates a reservation for qty units backing orderId. Fails
// ErrProductInactive if the product has been deactivated. On
// ErrInsufficientStock or ErrProductInactive, an InsufficientStock event
// is appended in addition to returning the error, so the caller always
// has an event ready to publish.
func (p *Product) Reserve(qty valueobject.StockQuantity, orderId string, ttl time.Duration, now time.Time) (valueobject.ReservationId, error) {
	if !p.Active {
		p.append(event.InsufficientStock{
			OrderId:      orderId,
			ProductId:    p.Id,
			RequestedQty: qty,
			AvailableQty: p.Stock.Available,
			Reason:       valueobject.InsufficientReasonInactive,
			StockVersion: p.Stock.Version,
		})
		return valueobject.ReservationId{}, ErrProductInactive
	}

	reservationId := valueobject.NewReservationId()
	reservation, err := p.Stock.Reserve(reservationId, qty, orderId, ttl, now)
	if err != nil {
		if err == ErrInsufficientStock {
			p.append(event.InsufficientStock{
				OrderId:      orderId,
				ProductId:    p.Id,
				RequestedQty: qty,
				AvailableQty: p.Stock.Available,
				Reason:       valueobject.InsufficientReasonInsufficient,
				StockVersion: p.Stock.Version,
			})
		}
		return valueobject.ReservationId{}, err
	}

	p.touch(now)
	p.append(event.StockReserved{
		ProductId:      p.Id,
		ReservationId:  reservationId,
		OrderId:        orderId,
		Quantity:       qty,
		AvailableAfter: p.Stock.Available,
		ExpiresAt:      reservation.ExpiresAt,
		StockVersion:   p.Stock.Version,
	})
	p.maybeAlertLowStock()
	return reservationId, nil
}

// Release releases a reservation, restoring its quantity to Available.
func (p *Product) Release(reservationId valueobject.ReservationId, orderId string, reason valueobject.ReleaseReason, now time.Time) error {
	qty, err := p.Stock.Release(reservationId, now)
	if err != nil {
		return err
	}
	p.touch(now)
	p.append(event.StockReleased{
		ProductId:      p.Id,
		ReservationId:  reservationId,
		OrderId:        orderId,
		Quantity:       qty,
		AvailableAfter: p.Stock.Available,
		Reason:         reason,
		StockVersion:   p.Stock.Version,
	})
	return nil
}

// Deduct consumes a reservation, moving it from "reserved" to "sold".
// Requires the product to be active: deactivation refuses deductions the
// same way it refuses reservations.
func (p *Product) Deduct(reservationId valueobject.ReservationId, orderId string, now time.Time) error {
	if !p.Active {
		return ErrProductInactive
	}
	qty, err := p.Stock.Deduct(reservationId, now)
	if err != nil {
		return err
	}
	p.touch(now)
	p.append(event.StockDeducted{
		ProductId:     p.Id,
		ReservationId: reservationId,
		OrderId:       orderId,
		DeductedQty:   qty,
		TotalAfter:    p.Stock.Total,
		StockVersion:  p.Stock.Version,
	})
	return nil
}

// DeductDirect removes qty from stock without a reservation, e.g. for a
// write-off or damage adjustment. Requires the product to be active.
func (p *Product) DeductDirect(qty valueobject.StockQuantity, reason string, now time.Time) error {
	if !p.Active {
		return ErrProductInactive
	}
	if err := p.Stock.DeductDirect(qty, now); err != nil {
		return err
	}
	p.touch(now)
	p.append(event.StockAdjusted{
		ProductId:    p.Id,
		Delta:        -qty.Int32(),
		Reason:       reason,
		NewTotal:     p.Stock.Total,
		StockVersion: p.Stock.Version,
	})
	p.maybeAlertLowStock()
	return nil
}

// AddStock increases available/total stock, e.g. a restock.
func (p *Product) AddStock(qty valueobject.StockQuantity, reason string, now time.Time) {
	p.Stock.Add(qty, now)
	p.touch(now)
	p.append(event.StockAdjusted{
		ProductId:    p.Id,
		Delta:        qty.Int32(),
		Reason:       reason,
		NewTotal:     p.Stock.Total,
		StockVersion: p.Stock.Version,
	})
}

// Adjust sets total stock to newTotal, e.g. a cycle-count correction.
func (p *Product) Adjust(newTotal valueobject.StockQuantity, reason string, now time.Time) error {
	before := p.Stock.Total
	if err := p.Stock.Adjust(newTotal, now); err != nil {
		return err
	}
	p.touch(now)
	p.append(event.StockAdjusted{
		ProductId:    p.Id,
		Delta:        newTotal.Int32() - before.Int32(),
		Reason:       reason,
		NewTotal:     p.Stock.Total,
		StockVersion: p.Stock.Version,
	})
	p.maybeAlertLowStock()
	return nil
}

// Rename sets a new, non-empty name.
func (p *Product) Rename(name string, now time.Time) error {
	if name == "" {
		return ErrInvalidProductData
	}
	p.Name = name
	p.touch(now)
	return nil
}

// Activate flips the product active. No stock event is appended.
func (p *Product) Activate(now time.Time) {
	if p.Active {
		return
	}
	p.Active = true
	p.touch(now)
	p.append(event.ProductStatusChanged{ProductId: p.Id, Active: true, StockVersion: p.Stock.Version})
}

// Deactivate flips the product inactive. No stock event is appended.
func (p *Product) Deactivate(now time.Time) {
	if !p.Active {
		return
	}
	p.Active = false
	p.touch(now)
	p.append(event.ProductStatusChanged{ProductId: p.Id, Active: false, StockVersion: p.Stock.Version})
}

// CleanupExpired sweeps the Stock for reservations that have expired by
// now, appending one StockReleased event per entry, and returns the
// count released.
func (p *Product) CleanupExpired(now time.Time) int {
	expired := p.Stock.SweepExpired(now)
	if len(expired) == 0 {
		return 0
	}
	p.touch(now)
	for _, entry := range expired {
		p.append(event.StockReleased{
			ProductId:      p.Id,
			ReservationId:  entry.ReservationId,
			OrderId:        entry.OrderId,
			Quantity:       entry.Quantity,
			AvailableAfter: p.Stock.Available,
			Reason:         valueobject.ReleaseReasonExpired,
			StockVersion:   p.Stock.Version,
		})
	}
	return len(expired)
}

// DrainEvents transfers pendingEvents out of the aggregate and clears
// them. Must only be called after the aggregate has been saved
// successfully; if persistence fails, the caller must not drain (and
// therefore must not publish).
func (p *Product) DrainEvents() []event.DomainEvent {
	drained := p.pendingEvents
	p.pendingEvents = nil
	return drained
}

// HasPendingEvents reports whether events are waiting to be drained,
// used by tests and by handlers deciding whether a save is worth a
// publish round.
func (p *Product) HasPendingEvents() bool {
	return len(p.pendingEvents) > 0
}
