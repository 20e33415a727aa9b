package cache

import (
	"context"
	"errors"
	"fmt"
	"storefront-api/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CartCache keeps a user's cart as a product->quantity map.
type CartCache interface {
	Get(ctx context.Context, userID string) (map[string]int32, error)
	Set(ctx context.Context, userID string, items map[string]int32) error
	Delete(ctx context.Context, userID string) error
}

func InitRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}

// NopCartCache is used when Redis is not configured. Every Get misses.
type NopCartCache struct{}

func (NopCartCache) Get(context.Context, string) (map[string]int32, error) {
	return nil, ErrCacheMiss
}

func (NopCartCache) Set(context.Context, string, map[string]int32) error { return nil }

func (NopCartCache) Delete(context.Context, string) error { return nil }
