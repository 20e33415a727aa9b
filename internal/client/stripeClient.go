package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"storefront-api/internal/config"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	stripeapi "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var (
	ErrSignatureInvalid = errors.New("stripe webhook signature invalid")
	ErrSessionNotFound  = errors.New("stripe checkout session not found")
	ErrGatewayFailure   = errors.New("stripe request failed")
)

type EventKind int

const (
	EventUnhandled EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventPaymentFailed:
		return "payment_failed"
	default:
		return "unhandled"
	}
}

const (
	eventTypePaymentIntentSucceeded = "payment_intent.succeeded"
	eventTypePaymentIntentFailed    = "payment_intent.payment_failed"
)

func eventKindOf(eventType string) EventKind {
	switch eventType {
	case eventTypePaymentIntentSucceeded:
		return EventPaymentSucceeded
	case eventTypePaymentIntentFailed:
		return EventPaymentFailed
	default:
		return EventUnhandled
	}
}

type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
	FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*CheckoutSession, error)
}

type LineItem struct {
	Name       string
	UnitAmount int64 // minor units
	Quantity   int64
}

type CheckoutSessionRequest struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID       string
	URL      string
	Metadata map[string]string
}

// WebhookEvent is a verified Stripe event reduced to what reconciliation needs.
type WebhookEvent struct {
	ID              string
	Type            string
	Kind            EventKind
	PaymentIntentID string
}

type stripeClientImpl struct {
	api           *stripeapi.API
	webhookSecret string
	currency      string
	breaker       *gobreaker.CircuitBreaker[any]
}

func NewStripeClient(cfg *config.Stripe, logger *zap.Logger) StripeClient {
	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}

	api := &stripeapi.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "stripe",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &stripeClientImpl{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		breaker:       breaker,
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	return res.(T), nil
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(c.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := execute(c.breaker, func() (*stripe.CheckoutSession, error) {
		return c.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{
		ID:       session.ID,
		URL:      session.URL,
		Metadata: session.Metadata,
	}, nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw payload
// and decodes the event. Any verification failure yields ErrSignatureInvalid.
func (c *stripeClientImpl) ConstructEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	return constructEvent(payload, signatureHeader, c.webhookSecret, webhook.DefaultTolerance)
}

func constructEvent(payload []byte, signatureHeader, secret string, tolerance time.Duration) (*WebhookEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: eventKindOf(string(event.Type)),
	}

	if out.Kind != EventUnhandled && event.Data != nil {
		var object struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
			return nil, fmt.Errorf("decode %s object: %w", out.Type, err)
		}
		out.PaymentIntentID = object.ID
	}

	return out, nil
}

func (c *stripeClientImpl) FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	session, err := execute(c.breaker, func() (*stripe.CheckoutSession, error) {
		iter := c.api.CheckoutSessions.List(params)
		if iter.Next() {
			return iter.CheckoutSession(), nil
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list checkout sessions: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: payment intent %s", ErrSessionNotFound, paymentIntentID)
	}

	return &CheckoutSession{
		ID:       session.ID,
		URL:      session.URL,
		Metadata: session.Metadata,
	}, nil
}
