package repository

import (
	"context"
	"dinedash-backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	FindByID(ctx context.Context, tx *gorm.DB, paymentID uint) (*model.Payment, error)
	FindByRef(ctx context.Context, tx *gorm.DB, orderID uint, transactionRef string) (*model.Payment, error)
	FindByRefForUpdate(ctx context.Context, tx *gorm.DB, orderID uint, transactionRef string) (*model.Payment, error)
	HasCompleted(ctx context.Context, tx *gorm.DB, orderID uint) (bool, error)
	Finalize(ctx context.Context, tx *gorm.DB, paymentID uint, status model.PaymentStatus, transactionID *string) (bool, error)
	SetGatewayInitiation(ctx context.Context, paymentID uint, gateway, gatewayRef, link string) error
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*model.Payment, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{
		db: db,
	}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return conn(r.db, tx).WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, paymentID uint) (*model.Payment, error) {
	var payment model.Payment
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", paymentID).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) FindByRef(ctx context.Context, tx *gorm.DB, orderID uint, transactionRef string) (*model.Payment, error) {
	var payment model.Payment
	err := conn(r.db, tx).WithContext(ctx).
		Where("order_id = ? AND transaction_ref = ?", orderID, transactionRef).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// FindByRefForUpdate locks the payment row for the rest of tx. A reference is
// only trusted together with the order it was issued for.
func (r *paymentRepoImpl) FindByRefForUpdate(ctx context.Context, tx *gorm.DB, orderID uint, transactionRef string) (*model.Payment, error) {
	var payment model.Payment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND transaction_ref = ?", orderID, transactionRef).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) HasCompleted(ctx context.Context, tx *gorm.DB, orderID uint) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Payment{}).
		Where("order_id = ?", orderID).
		Where("status = ?", model.PaymentCompleted).
		Count(&count).Error

	return count > 0, err
}

// Finalize moves a pending payment to a terminal status. It reports false if
// the payment had already left pending.
func (r *paymentRepoImpl) Finalize(ctx context.Context, tx *gorm.DB, paymentID uint, status model.PaymentStatus, transactionID *string) (bool, error) {
	values := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if transactionID != nil {
		values["transaction_id"] = *transactionID
	}

	result := conn(r.db, tx).WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(values)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *paymentRepoImpl) SetGatewayInitiation(ctx context.Context, paymentID uint, gateway, gatewayRef, link string) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"gateway":      gateway,
			"gateway_ref":  gatewayRef,
			"payment_link": link,
			"updated_at":   time.Now(),
		}).Error
}

func (r *paymentRepoImpl) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", model.PaymentPending).
		Where("created_at < ?", before).
		Order("created_at").
		Limit(limit).
		Find(&payments).Error

	if err != nil {
		return nil, err
	}

	return payments, nil
}
