package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedProductRepository is a read-through Redis cache in front of the
// catalog. Redis errors are logged and the lookup falls back to the database.
type CachedProductRepository struct {
	repository.ProductRepository

	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProductRepository(repo repository.ProductRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: repo,
		rdb:               rdb,
		ttl:               ttl,
		logger:            logger,
	}
}

func (c *CachedProductRepository) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(productID)).Bytes()
	if err == nil {
		var product model.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("discarding corrupt cached product", zap.String("product_id", productID))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("product cache get failed", zap.String("product_id", productID), zap.Error(err))
	}

	product, err := c.ProductRepository.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, product)
	return product, nil
}

func (c *CachedProductRepository) FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productKey(id)
	}

	products := make([]*model.Product, 0, len(productIDs))
	missing := productIDs

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("product cache mget failed", zap.Error(err))
	} else {
		missing = missing[:0:0]
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, productIDs[i])
				continue
			}
			var product model.Product
			if err := json.Unmarshal([]byte(raw), &product); err != nil {
				missing = append(missing, productIDs[i])
				continue
			}
			products = append(products, &product)
		}
	}

	if len(missing) == 0 {
		return products, nil
	}

	fetched, err := c.ProductRepository.FindMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, product := range fetched {
		c.store(ctx, product)
	}

	return append(products, fetched...), nil
}

func (c *CachedProductRepository) store(ctx context.Context, product *model.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productKey(product.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("product cache set failed", zap.String("product_id", product.ID), zap.Error(err))
	}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}
