package repository

import (
	"context"
	"dinedash-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, tx *gorm.DB, itemID uint) (*model.MenuItem, error)
	FindMany(ctx context.Context, tx *gorm.DB, itemIDs []uint) ([]*model.MenuItem, error)
	ListAvailable(ctx context.Context) ([]*model.MenuItem, error)
	Create(ctx context.Context, item *model.MenuItem) error
	UpdatePrice(ctx context.Context, itemID uint, price decimal.Decimal) error
	SetAvailable(ctx context.Context, itemID uint, available bool) error
	Delete(ctx context.Context, itemID uint) error
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

func (r *catalogRepoImpl) Seed(ctx context.Context) error {
	items := []model.MenuItem{
		{Name: "Jollof Rice", Category: "main_course", Price: decimal.RequireFromString("12.00"), IsAvailable: true},
		{Name: "Margherita Pizza", Category: "main_course", Price: decimal.RequireFromString("10.00"), IsAvailable: true},
		{Name: "Kelewele", Category: "sides", Price: decimal.RequireFromString("4.50"), IsAvailable: true},
		{Name: "Sobolo", Category: "drinks", Price: decimal.RequireFromString("3.00"), IsAvailable: true},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error
}

func (r *catalogRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, itemID uint) (*model.MenuItem, error) {
	var item model.MenuItem
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *catalogRepoImpl) FindMany(ctx context.Context, tx *gorm.DB, itemIDs []uint) ([]*model.MenuItem, error) {
	var items []*model.MenuItem
	err := conn(r.db, tx).WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).
		Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *catalogRepoImpl) ListAvailable(ctx context.Context) ([]*model.MenuItem, error) {
	var items []*model.MenuItem
	err := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("name").
		Find(&items).
		Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *catalogRepoImpl) Create(ctx context.Context, item *model.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *catalogRepoImpl) UpdatePrice(ctx context.Context, itemID uint, price decimal.Decimal) error {
	return r.update(ctx, itemID, map[string]interface{}{"price": price})
}

func (r *catalogRepoImpl) SetAvailable(ctx context.Context, itemID uint, available bool) error {
	return r.update(ctx, itemID, map[string]interface{}{"is_available": available})
}

func (r *catalogRepoImpl) Delete(ctx context.Context, itemID uint) error {
	result := r.db.WithContext(ctx).Delete(&model.MenuItem{}, itemID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *catalogRepoImpl) update(ctx context.Context, itemID uint, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.MenuItem{}).
		Where("id = ?", itemID).
		Updates(values)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// conn prefers the caller's transaction when one is in flight.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
