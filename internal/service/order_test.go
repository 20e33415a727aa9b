package service

import (
	"context"
	"errors"
	"storefront-api/internal/cache"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPlaceOrderCOD_AmountIncludesTax(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("addr1", item(apple, 2)))
	require.NoError(t, err)

	stored := env.order(t, order.ID)
	assert.True(t, decimal.NewFromInt(204).Equal(stored.Amount), "amount %s", stored.Amount)
	assert.Equal(t, model.PaymentTypeCOD, stored.PaymentType)
	assert.False(t, stored.IsPaid)
	assert.Equal(t, "addr1", stored.AddressID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, apple, stored.Items[0].ProductID)
	assert.Equal(t, int32(2), stored.Items[0].Quantity)

	// COD orders are visible without payment
	orders, err := env.orders.GetUserOrders(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, []string{order.ID}, orderIDs(orders))
	assert.Empty(t, env.stripe.requests)
}

func TestPlaceOrderCOD_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"no items", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("addr1"))
			return err
		}},
		{"no address", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("", item(apple, 1)))
			return err
		}},
		{"zero quantity", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("addr1", item(apple, 0)))
			return err
		}},
		{"negative quantity", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("addr1", item(apple, -3)))
			return err
		}},
		{"no user", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "", orderRequest("addr1", item(apple, 1)))
			return err
		}},
		{"nil request", func() error {
			_, err := env.orders.PlaceOrderCOD(ctx, "user1", nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), ErrInvalidInput)
		})
	}
	assert.Zero(t, env.countRows(t, &model.Order{}))
}

func TestPlaceOrderCOD_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrderCOD(context.Background(), "user1", orderRequest("addr1", item(apple, 1), item("ghost", 1)))
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, env.countRows(t, &model.Order{}))
}

func TestPlaceOrderOnline_SessionMatchesOrderTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.orders.PlaceOrderOnline(ctx, "user1", orderRequest("addr1", item(apple, 2)), "https://shop.example/")
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", result.URL)

	req := env.stripe.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "https://shop.example/loader?next=my-orders", req.SuccessURL)
	assert.Equal(t, "https://shop.example/cart", req.CancelURL)
	assert.Equal(t, map[string]string{"orderId": result.OrderID, "userId": "user1"}, req.Metadata)

	require.Len(t, req.LineItems, 2)
	assert.Equal(t, "Apple 1kg", req.LineItems[0].Name)
	assert.Equal(t, int64(10000), req.LineItems[0].UnitAmount)
	assert.Equal(t, int64(2), req.LineItems[0].Quantity)
	assert.Equal(t, "Tax (2%)", req.LineItems[1].Name)
	assert.Equal(t, int64(400), req.LineItems[1].UnitAmount)

	var sum int64
	for _, li := range req.LineItems {
		sum += li.UnitAmount * li.Quantity
	}
	assert.Equal(t, int64(20400), sum)

	stored := env.order(t, result.OrderID)
	assert.True(t, decimal.NewFromInt(204).Equal(stored.Amount))
	assert.Equal(t, model.PaymentTypeOnline, stored.PaymentType)
	assert.False(t, stored.IsPaid)

	// unpaid online orders stay hidden
	orders, err := env.orders.GetUserOrders(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	all, err := env.orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPlaceOrderOnline_FractionalPrices(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.orders.PlaceOrderOnline(context.Background(), "user1", orderRequest("addr1", item(juice, 1), item(milk, 1)), "")
	require.NoError(t, err)

	// subtotal 147.50, tax floor(2.95) = 2.95
	stored := env.order(t, result.OrderID)
	assert.True(t, decimal.RequireFromString("150.45").Equal(stored.Amount), "amount %s", stored.Amount)

	var sum int64
	for _, li := range env.stripe.lastRequest().LineItems {
		sum += li.UnitAmount * li.Quantity
	}
	assert.Equal(t, int64(15045), sum)
}

func TestPlaceOrderOnline_OriginFallsBackToBaseURL(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrderOnline(context.Background(), "user1", orderRequest("addr1", item(milk, 1)), "")
	require.NoError(t, err)

	req := env.stripe.lastRequest()
	assert.Equal(t, testBaseURL+"/loader?next=my-orders", req.SuccessURL)
	assert.Equal(t, testBaseURL+"/cart", req.CancelURL)
}

func TestPlaceOrderOnline_MissingProductFailsWholeRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrderOnline(context.Background(), "user1", orderRequest("addr1", item(apple, 1), item("ghost", 2)), "")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, env.stripe.requests)
	assert.Zero(t, env.countRows(t, &model.Order{}))
}

func TestPlaceOrderOnline_GatewayFailureDropsPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	env.stripe.createErr = errors.New("stripe request failed: connection reset")

	_, err := env.orders.PlaceOrderOnline(context.Background(), "user1", orderRequest("addr1", item(apple, 1)), "")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Zero(t, env.countRows(t, &model.Order{}))
	assert.Zero(t, env.countRows(t, &model.OrderItem{}))
}

func TestPlaceOrderOnline_CancelledRequestStillDropsPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.stripe.onCreate = cancel
	env.stripe.createErr = context.Canceled

	_, err := env.orders.PlaceOrderOnline(ctx, "user1", orderRequest("addr1", item(apple, 1)), "")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Zero(t, env.countRows(t, &model.Order{}))
	assert.Zero(t, env.countRows(t, &model.OrderItem{}))
}

func TestPlaceOrderOnline_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrderOnline(context.Background(), "user1", orderRequest("addr1"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.stripe.requests)
}

func TestGetAllOrders_NewestFirstAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older, err := env.orders.PlaceOrderCOD(ctx, "user1", orderRequest("addr1", item(apple, 1)))
	require.NoError(t, err)
	newer, err := env.orders.PlaceOrderCOD(ctx, "user2", orderRequest("addr2", item(milk, 3)))
	require.NoError(t, err)
	_, err = env.orders.PlaceOrderOnline(ctx, "user2", orderRequest("addr2", item(milk, 1)), "")
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.Order{}).
		Where("id = ?", older.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	all, err := env.orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID, older.ID}, orderIDs(all))

	require.Len(t, all[0].Items, 1)
	require.NotNil(t, all[0].Items[0].Product)
	assert.Equal(t, "Amul Milk 500ml", all[0].Items[0].Product.Name)
}

func TestGetUserOrders_RequiresUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.GetUserOrders(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetAllOrders_PersistenceFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM `orders`").WillReturnError(errors.New("connection refused"))

	log := zaptest.NewLogger(t)
	productRepo := repository.NewProductRepository(db)
	svc := NewOrderService(
		db, newFakeStripe(), testBaseURL, 2,
		productRepo,
		repository.NewOrderRepository(db),
		repository.NewWebhookEventRepository(db),
		NewCartService(repository.NewCartRepository(db), productRepo, cache.NopCartCache{}, log),
		nil,
		log,
	)

	_, err = svc.GetAllOrders(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}
