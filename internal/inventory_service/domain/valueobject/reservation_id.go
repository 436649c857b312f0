package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ReservationId identifies a Reservation. Generated by the Inventory
// domain when a reservation is created; never supplied by a caller.
type ReservationId struct {
	value string
}

// NewReservationId generates a fresh, random ReservationId.
func NewReservationId() ReservationId {
	return ReservationId{value: uuid.New().String()}
}

// ReservationIdFromString wraps an existing identifier, e.g. one loaded
// from storage or carried on an inbound event.
func ReservationIdFromString(s string) (ReservationId, error) {
	if s == "" {
		return ReservationId{}, ErrEmptyIdentifier
	}
	return ReservationId{value: s}, nil
}

func (id ReservationId) String() string {
	return id.value
}

func (id ReservationId) IsZero() bool {
	return id.value == ""
}

func (id ReservationId) Equal(other ReservationId) bool {
	return id.value == other.value
}

func (id ReservationId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

func (id *ReservationId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id.value = s
	return nil
}

func (id ReservationId) Value() (driver.Value, error) {
	return id.value, nil
}

func (id *ReservationId) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		id.value = v
	case []byte:
		id.value = string(v)
	case nil:
		id.value = ""
	default:
		return fmt.Errorf("unsupported type for ReservationId: %T", src)
	}
	return nil
}
