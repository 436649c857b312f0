package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyIdentifier is returned when a ProductId or ReservationId is
// constructed from an empty string.
var ErrEmptyIdentifier = errors.New("identifier must not be empty")

// ProductId identifies a Product. Equality is by value; there is no
// ordering between two ids.
type ProductId struct {
	value string
}

// NewProductId generates a fresh, random ProductId.
func NewProductId() ProductId {
	return ProductId{value: uuid.New().String()}
}

// ProductIdFromString wraps an existing identifier, e.g. one loaded from
// storage or carried on an inbound event.
func ProductIdFromString(s string) (ProductId, error) {
	if s == "" {
		return ProductId{}, ErrEmptyIdentifier
	}
	return ProductId{value: s}, nil
}

func (id ProductId) String() string {
	return id.value
}

func (id ProductId) IsZero() bool {
	return id.value == ""
}

func (id ProductId) Equal(other ProductId) bool {
	return id.value == other.value
}

func (id ProductId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

func (id *ProductId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id.value = s
	return nil
}

// Value implements driver.Valuer so ProductId can be stored directly as a
// GORM column.
func (id ProductId) Value() (driver.Value, error) {
	return id.value, nil
}

// Scan implements sql.Scanner for GORM reads.
func (id *ProductId) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		id.value = v
	case []byte:
		id.value = string(v)
	case nil:
		id.value = ""
	default:
		return fmt.Errorf("unsupported type for ProductId: %T", src)
	}
	return nil
}
