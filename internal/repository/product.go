package repository

import (
	"context"
	"errors"
	"storefront-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	products := []model.Product{
		{ID: "prod_apple_1kg", Name: "Apple 1kg", Description: "Fresh red apples", Category: "Fruits", Price: decimal.NewFromInt(120), OfferPrice: decimal.NewFromInt(100), InStock: true},
		{ID: "prod_milk_500ml", Name: "Amul Milk 500ml", Description: "Pure and fresh toned milk", Category: "Dairy", Price: decimal.NewFromInt(30), OfferPrice: decimal.NewFromInt(28), InStock: true},
		{ID: "prod_basmati_5kg", Name: "Basmati Rice 5kg", Description: "Long grain aged rice", Category: "Grains", Price: decimal.NewFromInt(550), OfferPrice: decimal.NewFromInt(520), InStock: true},
		{ID: "prod_orange_juice", Name: "Orange Juice 1L", Description: "No added sugar", Category: "Drinks", Price: decimal.RequireFromString("129.50"), OfferPrice: decimal.RequireFromString("119.50"), InStock: true},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return &product, nil
}

// FindMany returns the products that exist among productIDs. Missing ids are
// simply absent from the result.
func (r *productRepoImpl) FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}
