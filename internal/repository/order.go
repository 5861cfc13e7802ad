package repository

import (
	"context"
	"dinedash-backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	TrackingCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	FindByID(ctx context.Context, tx *gorm.DB, orderID uint) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, orderID uint) (*model.Order, error)
	FindByTrackingCode(ctx context.Context, code string) (*model.Order, error)
	TrackingCodeOf(ctx context.Context, orderID uint) (string, error)
	List(ctx context.Context, filter OrderFilter) ([]*model.Order, error)
	CompareAndSetStatus(ctx context.Context, tx *gorm.DB, orderID uint, from, to model.OrderStatus) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create inserts the order together with its items.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return conn(r.db, tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) TrackingCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("tracking_code = ?", code).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID uint) (*model.Order, error) {
	return r.first(conn(r.db, tx).WithContext(ctx), "id = ?", orderID)
}

func (r *orderRepoImpl) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, orderID uint) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByTrackingCode(ctx context.Context, code string) (*model.Order, error) {
	return r.first(r.db.WithContext(ctx), "tracking_code = ?", code)
}

func (r *orderRepoImpl) TrackingCodeOf(ctx context.Context, orderID uint) (string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Pluck("tracking_code", &codes).Error

	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", gorm.ErrRecordNotFound
	}

	return codes[0], nil
}

func (r *orderRepoImpl) List(ctx context.Context, filter OrderFilter) ([]*model.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []*model.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}

	return orders, nil
}

// CompareAndSetStatus moves the order to `to` only if it is still in `from`.
// It reports false when another writer got there first.
func (r *orderRepoImpl) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, orderID uint, from, to model.OrderStatus) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND status = ?
		`,
			orderID,
			from,
		).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) first(db *gorm.DB, query string, args ...interface{}) (*model.Order, error) {
	var order model.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where(query, args...).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}
