// internal/inventory_service/domain/entity/errors.go
package entity

import "errors"

// Domain error taxonomy. Each variant is a flat sentinel, never an
// exception hierarchy; callers compare with errors.Is and translate at
// the use-case boundary per the propagation policy.
var (
	// ErrDuplicateReservation is returned by Stock.Reserve when the
	// caller-supplied reservation id already exists. Unrecoverable at the
	// use-case level: it indicates a caller bug, never a legitimate retry.
	ErrDuplicateReservation = errors.New("reservation id already exists")

	// ErrInsufficientStock is returned by Stock.Reserve when the
	// requested quantity exceeds what is available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrZeroQuantity is returned by Stock.Reserve when asked to hold
	// zero units; a reservation's quantity is always non-zero. A caller
	// bug, never retried.
	ErrZeroQuantity = errors.New("reservation quantity must be non-zero")

	// ErrReservationNotFound is returned by Stock.Release/Deduct when the
	// reservation id is absent from the Stock's reservation table.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationInvalid surfaces to callers of the Deduct use case
	// when the reservation is absent, already deducted, or expired. A
	// second Deduct for the same reservation must fail with this error
	// without any side effect.
	ErrReservationInvalid = errors.New("reservation invalid or already settled")

	// ErrAdjustmentTooLow is returned by Stock.Adjust when the requested
	// new total would be smaller than the currently reserved quantity.
	ErrAdjustmentTooLow = errors.New("adjustment total below reserved quantity")

	// ErrProductInactive is returned by Product.Reserve/Deduct/DeductDirect
	// when the product has been deactivated.
	ErrProductInactive = errors.New("product is inactive")

	// ErrProductNotFound is returned by the repository when loading an
	// unknown product id.
	ErrProductNotFound = errors.New("product not found")

	// ErrOptimisticConflict is returned by the repository's Save when the
	// stored version has advanced since load.
	ErrOptimisticConflict = errors.New("optimistic concurrency conflict")

	// ErrInvalidProductData guards aggregate construction (empty name,
	// zero id).
	ErrInvalidProductData = errors.New("invalid product data")
)
