package valueobject

// ReleaseReason distinguishes why a reservation was released, carried on
// the outbound StockReleased event.
type ReleaseReason string

const (
	ReleaseReasonOrderCancelled ReleaseReason = "ORDER_CANCELLED"
	ReleaseReasonExpired        ReleaseReason = "EXPIRED"
	ReleaseReasonManual         ReleaseReason = "MANUAL"
)

func (r ReleaseReason) String() string {
	return string(r)
}

// InsufficientReason distinguishes why a reservation attempt failed,
// carried on the outbound InsufficientStock event.
type InsufficientReason string

const (
	InsufficientReasonInactive     InsufficientReason = "INACTIVE"
	InsufficientReasonInsufficient InsufficientReason = "INSUFFICIENT"
	InsufficientReasonNotFound     InsufficientReason = "PRODUCT_NOT_FOUND"
)

func (r InsufficientReason) String() string {
	return string(r)
}
