package service

import (
	"context"
	"fmt"
	"storefront-api/internal/cache"
	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/dto"
	"storefront-api/internal/metrics"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const (
	testBaseURL = "http://shop.test"
	apple       = "prod_apple_1kg"    // offer 100
	milk        = "prod_milk_500ml"   // offer 28
	juice       = "prod_orange_juice" // offer 119.50
)

type fakeStripe struct {
	mu        sync.Mutex
	createErr error
	onCreate  func()
	requests  []*client.CheckoutSessionRequest
	sessions  map[string]*client.CheckoutSession // by payment intent
	events    map[string]*client.WebhookEvent    // by signature header
	lookups   int
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{
		sessions: make(map[string]*client.CheckoutSession),
		events:   make(map[string]*client.WebhookEvent),
	}
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, req *client.CheckoutSessionRequest) (*client.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	return &client.CheckoutSession{
		ID:       id,
		URL:      "https://checkout.stripe.test/" + id,
		Metadata: req.Metadata,
	}, nil
}

func (f *fakeStripe) ConstructEvent(_ []byte, signature string) (*client.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[signature]
	if !ok {
		return nil, fmt.Errorf("%w: no signatures found matching the expected signature", client.ErrSignatureInvalid)
	}
	return event, nil
}

func (f *fakeStripe) FindSessionByPaymentIntent(_ context.Context, paymentIntentID string) (*client.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	session, ok := f.sessions[paymentIntentID]
	if !ok {
		return nil, client.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeStripe) lastRequest() *client.CheckoutSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

// attach links a payment intent to the most recent checkout session and
// registers a signed event of eventType for it under signature.
func (f *fakeStripe) attach(paymentIntentID, eventID, eventType, signature string) {
	req := f.lastRequest()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[paymentIntentID] = &client.CheckoutSession{
		ID:       "cs_for_" + paymentIntentID,
		Metadata: req.Metadata,
	}
	f.events[signature] = &client.WebhookEvent{
		ID:              eventID,
		Type:            eventType,
		Kind:            kindOf(eventType),
		PaymentIntentID: paymentIntentID,
	}
}

func kindOf(eventType string) client.EventKind {
	switch eventType {
	case "payment_intent.succeeded":
		return client.EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return client.EventPaymentFailed
	default:
		return client.EventUnhandled
	}
}

type testEnv struct {
	db        *gorm.DB
	reg       *prometheus.Registry
	logs      *observer.ObservedLogs
	stripe    *fakeStripe
	orders    OrderService
	carts     CartService
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDB(config.Database{Driver: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repository.NewProductRepository(db).Seed(context.Background()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	observed, logs := observer.New(zapcore.InfoLevel)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, observed)
	})))
	reg := prometheus.NewRegistry()

	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	stripe := newFakeStripe()
	carts := NewCartService(cartRepo, productRepo, cache.NopCartCache{}, logger)
	orders := NewOrderService(
		db,
		stripe,
		testBaseURL,
		2,
		productRepo,
		orderRepo,
		webhookRepo,
		carts,
		metrics.New(reg),
		logger,
	)

	return &testEnv{
		db:        db,
		reg:       reg,
		logs:      logs,
		stripe:    stripe,
		orders:    orders,
		carts:     carts,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
	}
}

func (e *testEnv) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func (e *testEnv) order(t *testing.T, id string) *model.Order {
	t.Helper()
	o, err := e.orderRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func orderRequest(address string, items ...*dto.OrderItem) *dto.PlaceOrderRequest {
	return &dto.PlaceOrderRequest{Items: items, Address: address}
}

func item(productID string, qty int32) *dto.OrderItem {
	return &dto.OrderItem{Product: productID, Quantity: qty}
}

func orderIDs(orders []*model.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
