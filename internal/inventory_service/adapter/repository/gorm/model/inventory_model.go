package model

import (
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
)

// ProductModel is the GORM row for the Product aggregate. Version backs
// the optimistic-concurrency `UPDATE ... WHERE version = ?` pattern: the
// WHERE clause compares against the version the aggregate was loaded
// with, and the write always persists whatever Stock.Version currently
// holds (bumped by the domain on mutation, unchanged on a no-op write
// like a rejected reservation).
type ProductModel struct {
	Id                string    `gorm:"primaryKey;column:id"`
	Name              string    `gorm:"column:name;not null"`
	Available         int32     `gorm:"column:available;not null"`
	Reserved          int32     `gorm:"column:reserved;not null"`
	Total             int32     `gorm:"column:total;not null"`
	LowStockThreshold int32     `gorm:"column:low_stock_threshold;not null"`
	Active            bool      `gorm:"column:active;not null"`
	Version           uint64    `gorm:"column:version;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
	LastModifiedAt    time.Time `gorm:"column:last_modified_at;not null"`

	Reservations []ReservationModel `gorm:"foreignKey:ProductId;references:Id"`
}

func (ProductModel) TableName() string { return "products" }

// ReservationModel is the GORM row for one open reservation against a
// product. A row is deleted on Release/Deduct, never soft-deleted: an
// expired-but-not-yet-swept reservation must still count against
// Available until the sweeper or a release removes it (a deduct refuses an
// expired reservation).
type ReservationModel struct {
	Id         string    `gorm:"primaryKey;column:id"`
	ProductId  string    `gorm:"column:product_id;index;not null"`
	OrderId    string    `gorm:"column:order_id;index;not null"`
	Quantity   int32     `gorm:"column:quantity;not null"`
	ReservedAt time.Time `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;index;not null"`
}

func (ReservationModel) TableName() string { return "reservations" }

// ToEntity reconstructs the Product aggregate this row (plus its
// reservations) represents.
func (m *ProductModel) ToEntity() (*entity.Product, error) {
	id, err := valueobject.ProductIdFromString(m.Id)
	if err != nil {
		return nil, err
	}

	reservations := make(map[valueobject.ReservationId]entity.Reservation, len(m.Reservations))
	for _, r := range m.Reservations {
		reservationId, err := valueobject.ReservationIdFromString(r.Id)
		if err != nil {
			return nil, err
		}
		qty, err := valueobject.Qty(r.Quantity)
		if err != nil {
			return nil, err
		}
		reservations[reservationId] = entity.Reservation{
			Id:         reservationId,
			Quantity:   qty,
			OrderId:    r.OrderId,
			ReservedAt: r.ReservedAt,
			ExpiresAt:  r.ExpiresAt,
		}
	}

	available, err := valueobject.Qty(m.Available)
	if err != nil {
		return nil, err
	}
	reserved, err := valueobject.Qty(m.Reserved)
	if err != nil {
		return nil, err
	}
	total, err := valueobject.Qty(m.Total)
	if err != nil {
		return nil, err
	}
	threshold, err := valueobject.Qty(m.LowStockThreshold)
	if err != nil {
		return nil, err
	}

	return entity.RehydrateProduct(entity.RehydrateProductParams{
		Id:                id,
		Name:              m.Name,
		Available:         available,
		Reserved:          reserved,
		Total:             total,
		Reservations:      reservations,
		Version:           m.Version,
		LowStockThreshold: threshold,
		Active:            m.Active,
		CreatedAt:         m.CreatedAt,
		LastModifiedAt:    m.LastModifiedAt,
	}), nil
}

// NewProductModel flattens a Product aggregate into its row
// representation for persistence.
func NewProductModel(p *entity.Product) *ProductModel {
	available, reserved, total := p.Stock.Peek()

	reservations := make([]ReservationModel, 0, len(p.Stock.Reservations))
	for id, r := range p.Stock.Reservations {
		reservations = append(reservations, ReservationModel{
			Id:         id.String(),
			ProductId:  p.Id.String(),
			OrderId:    r.OrderId,
			Quantity:   r.Quantity.Int32(),
			ReservedAt: r.ReservedAt,
			ExpiresAt:  r.ExpiresAt,
		})
	}

	return &ProductModel{
		Id:                p.Id.String(),
		Name:              p.Name,
		Available:         available.Int32(),
		Reserved:          reserved.Int32(),
		Total:             total.Int32(),
		LowStockThreshold: p.LowStockThreshold.Int32(),
		Active:            p.Active,
		Version:           p.Stock.Version,
		CreatedAt:         p.CreatedAt,
		LastModifiedAt:    p.LastModifiedAt,
		Reservations:      reservations,
	}
}
