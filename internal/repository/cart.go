package repository

import (
	"context"
	"storefront-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Get(ctx context.Context, userID string) (map[string]int32, error)
	Replace(ctx context.Context, userID string, items map[string]int32) error
	Clear(ctx context.Context, tx *gorm.DB, userID string) error
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) Get(ctx context.Context, userID string) (map[string]int32, error) {
	var rows []*model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make(map[string]int32, len(rows))
	for _, row := range rows {
		items[row.ProductID] = row.Quantity
	}
	return items, nil
}

// Replace overwrites the user's cart with items in one transaction. Zero
// quantities are not stored.
func (r *cartRepoImpl) Replace(ctx context.Context, userID string, items map[string]int32) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(items))
		rows := make([]*model.CartItem, 0, len(items))
		for productID, qty := range items {
			if qty <= 0 {
				continue
			}
			keep = append(keep, productID)
			rows = append(rows, &model.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  qty,
			})
		}

		stale := tx.Where("user_id = ?", userID)
		if len(keep) > 0 {
			stale = stale.Where("product_id NOT IN ?", keep)
		}
		if err := stale.Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		if len(rows) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (r *cartRepoImpl) Clear(ctx context.Context, tx *gorm.DB, userID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}
