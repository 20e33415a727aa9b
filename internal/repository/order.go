package repository

import (
	"context"
	"errors"
	"storefront-api/internal/model"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
	DeletePending(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
	ListVisible(ctx context.Context, userID string) ([]*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create stores the order together with its items.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return conn(r.db, tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

// MarkPaid flips an unpaid online order to paid. It reports whether a row
// changed; an order that is already paid, or gone, is not an error.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND payment_type = ? AND is_paid = ?", orderID, model.PaymentTypeOnline, false).
		Updates(map[string]interface{}{
			"is_paid":    true,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// DeletePending removes an unpaid online order and its items. Settled orders
// are left alone and deleting a missing order is not an error.
func (r *orderRepoImpl) DeletePending(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	var deleted bool
	err := conn(r.db, tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("id = ? AND payment_type = ? AND is_paid = ?", orderID, model.PaymentTypeOnline, false).
			Delete(&model.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		deleted = true
		return tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error
	})

	return deleted, err
}

// ListVisible returns COD orders and paid online orders, newest first, with
// items, products and address expanded. An empty userID lists every user.
func (r *orderRepoImpl) ListVisible(ctx context.Context, userID string) ([]*model.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Address").
		Where("(payment_type = ? OR is_paid = ?)", model.PaymentTypeCOD, true)

	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var orders []*model.Order
	err := query.Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}
