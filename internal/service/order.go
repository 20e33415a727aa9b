package service

import (
	"context"
	"fmt"
	"storefront-api/internal/client"
	"storefront-api/internal/dto"
	"storefront-api/internal/metrics"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService interface {
	PlaceOrderCOD(ctx context.Context, userID string, req *dto.PlaceOrderRequest) (*model.Order, error)
	PlaceOrderOnline(ctx context.Context, userID string, req *dto.PlaceOrderRequest, originURL string) (*dto.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	GetUserOrders(ctx context.Context, userID string) ([]*model.Order, error)
	GetAllOrders(ctx context.Context) ([]*model.Order, error)
}

type orderServiceImpl struct {
	db               *gorm.DB
	stripeClient     client.StripeClient
	serviceBaseUrl   string
	taxPercent       int64
	productRepo      repository.ProductRepository
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	cartService      CartService
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	stripeClient client.StripeClient,
	serviceBaseUrl string,
	taxPercent int64,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	cartService CartService,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		db:               db,
		stripeClient:     stripeClient,
		serviceBaseUrl:   serviceBaseUrl,
		taxPercent:       taxPercent,
		productRepo:      productRepo,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		cartService:      cartService,
		metrics:          metrics,
		logger:           logger,
	}
}

func (s *orderServiceImpl) PlaceOrderCOD(ctx context.Context, userID string, req *dto.PlaceOrderRequest) (*model.Order, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	q, err := priceItems(ctx, s.productRepo, req.Items, s.taxPercent)
	if err != nil {
		return nil, err
	}

	order := newOrder(userID, req.Address, q, model.PaymentTypeCOD)
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, persistence("store order", err)
	}

	s.metrics.OrderPlaced(string(model.PaymentTypeCOD))
	s.logger.Info("cod order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("amount", order.Amount.StringFixed(2)),
	)
	return order, nil
}

// PlaceOrderOnline stores an unpaid order and opens a Stripe checkout session
// for it. The order only becomes visible once the payment webhook settles it.
func (s *orderServiceImpl) PlaceOrderOnline(ctx context.Context, userID string, req *dto.PlaceOrderRequest, originURL string) (*dto.CheckoutResult, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	q, err := priceItems(ctx, s.productRepo, req.Items, s.taxPercent)
	if err != nil {
		return nil, err
	}

	order := newOrder(userID, req.Address, q, model.PaymentTypeOnline)
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, persistence("store order", err)
	}

	origin := strings.TrimRight(originURL, "/")
	if origin == "" {
		origin = strings.TrimRight(s.serviceBaseUrl, "/")
	}

	session, err := s.stripeClient.CreateCheckoutSession(ctx, &client.CheckoutSessionRequest{
		LineItems:  s.lineItems(q),
		SuccessURL: origin + "/loader?next=my-orders",
		CancelURL:  origin + "/cart",
		Metadata: map[string]string{
			"orderId": order.ID,
			"userId":  userID,
		},
	})
	if err != nil {
		// the request context may be what failed the gateway call
		if _, delErr := s.orderRepo.DeletePending(context.WithoutCancel(ctx), nil, order.ID); delErr != nil {
			s.logger.Error("failed to drop order after checkout failure",
				zap.String("order_id", order.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: create checkout session: %w", ErrGateway, err)
	}

	s.metrics.OrderPlaced(string(model.PaymentTypeOnline))
	s.logger.Info("online order pending payment",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
	)

	return &dto.CheckoutResult{
		OrderID: order.ID,
		URL:     session.URL,
	}, nil
}

func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}

	orders, err := s.orderRepo.ListVisible(ctx, userID)
	if err != nil {
		return nil, persistence("list orders", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) GetAllOrders(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListVisible(ctx, "")
	if err != nil {
		return nil, persistence("list orders", err)
	}
	return orders, nil
}

// lineItems sends one line per product at its offer price plus a tax line,
// so the session total equals the stored order amount.
func (s *orderServiceImpl) lineItems(q *quote) []client.LineItem {
	items := make([]client.LineItem, 0, len(q.lines)+1)
	for _, line := range q.lines {
		items = append(items, client.LineItem{
			Name:       line.product.Name,
			UnitAmount: minorUnits(line.product.OfferPrice),
			Quantity:   int64(line.quantity),
		})
	}

	if q.tax.IsPositive() {
		items = append(items, client.LineItem{
			Name:       fmt.Sprintf("Tax (%d%%)", s.taxPercent),
			UnitAmount: minorUnits(q.tax),
			Quantity:   1,
		})
	}
	return items
}

func newOrder(userID, addressID string, q *quote, paymentType model.PaymentType) *model.Order {
	id := uuid.NewString()
	items := make([]model.OrderItem, 0, len(q.lines))
	for _, line := range q.lines {
		items = append(items, model.OrderItem{
			OrderID:   id,
			ProductID: line.product.ID,
			Quantity:  line.quantity,
		})
	}

	return &model.Order{
		ID:          id,
		UserID:      userID,
		Items:       items,
		AddressID:   addressID,
		Amount:      q.total,
		PaymentType: paymentType,
		IsPaid:      false,
	}
}
