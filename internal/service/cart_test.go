package service

import (
	"context"
	"storefront-api/internal/cache"
	"storefront-api/internal/cart"
	"storefront-api/internal/repository"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestCartService_ApplyAndSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, action := range []cart.Action{
		cart.AddItem{ProductID: apple},
		cart.AddItem{ProductID: apple},
		cart.AddItem{ProductID: milk},
		cart.AddItem{ProductID: juice},
		cart.RemoveItem{ProductID: juice},
	} {
		_, err := env.carts.Apply(ctx, "user1", action)
		require.NoError(t, err)
	}

	summary, err := env.carts.Summary(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), summary.Count)
	assert.True(t, decimal.NewFromInt(228).Equal(summary.Amount), "amount %s", summary.Amount)
	assert.Equal(t, map[string]int32{apple: 2, milk: 1}, summary.Items.Items())

	stored, err := env.cartRepo.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{apple: 2, milk: 1}, stored)
}

func TestCartService_ApplyRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.carts.Apply(ctx, "user1", cart.AddItem{ProductID: "ghost"})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = env.carts.Apply(ctx, "user1", cart.UpdateItem{ProductID: apple, Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.carts.Apply(ctx, "", cart.AddItem{ProductID: apple})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCartService_UpdateCartReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := cart.New(map[string]int32{apple: 1, milk: 4})
	require.NoError(t, err)
	require.NoError(t, env.carts.UpdateCart(ctx, "user1", first))

	second, err := cart.New(map[string]int32{juice: 2})
	require.NoError(t, err)
	require.NoError(t, env.carts.UpdateCart(ctx, "user1", second))

	got, err := env.carts.GetCart(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{juice: 2}, got.Items())

	require.NoError(t, env.carts.UpdateCart(ctx, "user1", cart.Cart{}))
	got, err = env.carts.GetCart(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestCartService_UpdateCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	c, err := cart.New(map[string]int32{apple: 1, "ghost": 1})
	require.NoError(t, err)

	err = env.carts.UpdateCart(context.Background(), "user1", c)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_CacheIsFilledAndInvalidated(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewCartService(
		repository.NewCartRepository(db),
		repository.NewProductRepository(db),
		cache.NewRedisCartCache(rdb, time.Minute),
		zaptest.NewLogger(t),
	)
	ctx := context.Background()

	_, err := svc.Apply(ctx, "user1", cart.AddItem{ProductID: apple})
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:user1"))

	c, err := svc.GetCart(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.Quantity(apple))
	assert.True(t, mr.Exists("cart:user1"))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ClearCart(ctx, tx, "user1")
	}))
	svc.Forget(ctx, "user1")
	assert.False(t, mr.Exists("cart:user1"))

	c, err = svc.GetCart(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
