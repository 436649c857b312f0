package repository

import (
	"context"
	"errors"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/adapter/repository/gorm/model"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/repository"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/valueobject"
	"gorm.io/gorm"
)

// GormProductRepository implements repository.ProductRepository using GORM
// against MySQL, storing a Product's reservations as a child table and
// enforcing optimistic concurrency through the parent row's version
// column.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new product repository instance.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Load fetches a Product and its open reservations.
func (r *GormProductRepository) Load(ctx context.Context, id valueobject.ProductId) (*entity.Product, error) {
	var row model.ProductModel
	err := r.db.WithContext(ctx).Preload("Reservations").Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToEntity()
}

// Save persists product inside a transaction: the parent row is updated
// with `WHERE version = ?`, and the reservation child rows are replaced
// wholesale to match the aggregate's current set. A zero rows-affected
// update means the version has moved since Load, reported as
// entity.ErrOptimisticConflict. The MySQL DSN must set clientFoundRows,
// so that a write which changes no column values (a rejected reservation
// only records an event) still reports the matched row instead of
// masquerading as a conflict.
func (r *GormProductRepository) Save(ctx context.Context, product *entity.Product) error {
	row := model.NewProductModel(product)
	observedVersion := product.LoadedVersion()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ProductModel{}).
			Where("id = ? AND version = ?", row.Id, observedVersion).
			Updates(map[string]interface{}{
				"name":                row.Name,
				"available":           row.Available,
				"reserved":            row.Reserved,
				"total":               row.Total,
				"low_stock_threshold": row.LowStockThreshold,
				"active":              row.Active,
				"version":             row.Version,
				"last_modified_at":    row.LastModifiedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			exists, err := r.exists(tx, row.Id)
			if err != nil {
				return err
			}
			if exists {
				return entity.ErrOptimisticConflict
			}
			return tx.Create(row).Error
		}

		if err := tx.Where("product_id = ?", row.Id).Delete(&model.ReservationModel{}).Error; err != nil {
			return err
		}
		if len(row.Reservations) > 0 {
			if err := tx.Create(&row.Reservations).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	product.MarkPersisted()
	return nil
}

func (r *GormProductRepository) exists(tx *gorm.DB, id string) (bool, error) {
	var count int64
	if err := tx.Model(&model.ProductModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LoadBatch returns every product found among ids, keyed by id.
func (r *GormProductRepository) LoadBatch(ctx context.Context, ids []valueobject.ProductId) (map[valueobject.ProductId]*entity.Product, error) {
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	var rows []model.ProductModel
	if err := r.db.WithContext(ctx).Preload("Reservations").Where("id IN ?", idStrings).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[valueobject.ProductId]*entity.Product, len(rows))
	for i := range rows {
		product, err := rows[i].ToEntity()
		if err != nil {
			return nil, err
		}
		result[product.Id] = product
	}
	return result, nil
}

// FindActiveProductsWithReservations pages through active products that
// currently hold at least one reservation, cursor-paginated by id for
// stable ordering across pages.
func (r *GormProductRepository) FindActiveProductsWithReservations(ctx context.Context, limit int, cursor string) (repository.ProductPage, error) {
	query := r.db.WithContext(ctx).
		Model(&model.ProductModel{}).
		Joins("JOIN reservations ON reservations.product_id = products.id").
		Where("products.active = ?", true).
		Group("products.id").
		Order("products.id ASC").
		Limit(limit + 1)

	if cursor != "" {
		query = query.Where("products.id > ?", cursor)
	}

	var ids []string
	if err := query.Pluck("products.id", &ids).Error; err != nil {
		return repository.ProductPage{}, err
	}

	hasMore := len(ids) > limit
	if hasMore {
		ids = ids[:limit]
	}

	var rows []model.ProductModel
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Preload("Reservations").Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
			return repository.ProductPage{}, err
		}
	}

	products := make([]*entity.Product, 0, len(rows))
	for i := range rows {
		product, err := rows[i].ToEntity()
		if err != nil {
			return repository.ProductPage{}, err
		}
		products = append(products, product)
	}

	page := repository.ProductPage{Products: products, HasMore: hasMore}
	if hasMore {
		page.NextCursor = ids[len(ids)-1]
	}
	return page, nil
}

// FindProductByReservationId resolves the owning product for a
// reservation id via the reservations child table.
func (r *GormProductRepository) FindProductByReservationId(ctx context.Context, reservationId valueobject.ReservationId) (valueobject.ProductId, error) {
	var row model.ReservationModel
	err := r.db.WithContext(ctx).Where("id = ?", reservationId.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return valueobject.ProductId{}, entity.ErrProductNotFound
	}
	if err != nil {
		return valueobject.ProductId{}, err
	}
	return valueobject.ProductIdFromString(row.ProductId)
}

// FindReservationsByOrder returns every (productId, reservationId) pair
// currently open for orderId.
func (r *GormProductRepository) FindReservationsByOrder(ctx context.Context, orderId string) ([]repository.ReservationRef, error) {
	var rows []model.ReservationModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderId).Find(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]repository.ReservationRef, 0, len(rows))
	for _, row := range rows {
		productId, err := valueobject.ProductIdFromString(row.ProductId)
		if err != nil {
			return nil, err
		}
		reservationId, err := valueobject.ReservationIdFromString(row.Id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, repository.ReservationRef{ProductId: productId, ReservationId: reservationId})
	}
	return refs, nil
}
