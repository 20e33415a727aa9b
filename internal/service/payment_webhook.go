package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-api/internal/client"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outcomeProcessed     = "processed"
	outcomeOrphanPayment = "orphan_payment"
)

type paymentRef struct {
	orderID string
	userID  string
}

// HandleWebhook verifies a Stripe delivery and reconciles the order it refers
// to. An event is recorded as processed only when reconciliation succeeded, so
// a redelivery after a failure is applied again.
func (s *orderServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.stripeClient.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, client.ErrSignatureInvalid) {
			s.metrics.WebhookEvent("unknown", "rejected")
			return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
		}
		s.metrics.WebhookEvent("unknown", "failed")
		return fmt.Errorf("%w: decode event: %w", ErrInvalidInput, err)
	}

	logger := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	processed, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		s.metrics.WebhookEvent(event.Kind.String(), "failed")
		return persistence("check webhook event", err)
	}
	if processed {
		logger.Debug("webhook event already processed")
		s.metrics.WebhookEvent(event.Kind.String(), "duplicate")
		return nil
	}

	var outcome string
	switch event.Kind {
	case client.EventPaymentSucceeded:
		outcome, err = s.handlePaymentSucceeded(ctx, event, logger)
	case client.EventPaymentFailed:
		outcome, err = s.handlePaymentFailed(ctx, event, logger)
	default:
		logger.Debug("ignoring webhook event")
		s.metrics.WebhookEvent(event.Kind.String(), "ignored")
		return nil
	}

	if err != nil {
		s.metrics.WebhookEvent(event.Kind.String(), "failed")
		return err
	}
	s.metrics.WebhookEvent(event.Kind.String(), outcome)
	return nil
}

// handlePaymentSucceeded settles the order and reports the metrics outcome.
// A payment for an order that no longer exists, typically one dropped by an
// earlier payment_failed event, is reported as an orphan payment.
func (s *orderServiceImpl) handlePaymentSucceeded(ctx context.Context, event *client.WebhookEvent, logger *zap.Logger) (string, error) {
	ref, err := s.resolvePayment(ctx, event)
	if err != nil {
		return "", err
	}

	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err = s.orderRepo.MarkPaid(ctx, tx, ref.orderID)
		if err != nil {
			return persistence("mark order paid", err)
		}

		// a settled payment empties the buyer's cart
		if err := s.cartService.ClearCart(ctx, tx, ref.userID); err != nil {
			return err
		}

		if err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
			return persistence("record webhook event", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.cartService.Forget(ctx, ref.userID)

	if changed {
		logger.Info("order paid", zap.String("order_id", ref.orderID), zap.String("user_id", ref.userID))
		return outcomeProcessed, nil
	}

	_, err = s.orderRepo.FindByID(ctx, ref.orderID)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		logger.Error("payment captured for missing order",
			zap.String("order_id", ref.orderID),
			zap.String("user_id", ref.userID),
			zap.String("payment_intent", event.PaymentIntentID),
		)
		return outcomeOrphanPayment, nil
	case err != nil:
		logger.Warn("order not marked paid, lookup failed", zap.String("order_id", ref.orderID), zap.Error(err))
	default:
		logger.Info("order already paid", zap.String("order_id", ref.orderID))
	}
	return outcomeProcessed, nil
}

func (s *orderServiceImpl) handlePaymentFailed(ctx context.Context, event *client.WebhookEvent, logger *zap.Logger) (string, error) {
	ref, err := s.resolvePayment(ctx, event)
	if err != nil {
		return "", err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.orderRepo.DeletePending(ctx, tx, ref.orderID)
		if err != nil {
			return persistence("delete order", err)
		}
		if deleted {
			logger.Info("order dropped after failed payment", zap.String("order_id", ref.orderID))
		}

		if err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
			return persistence("record webhook event", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcomeProcessed, nil
}

// resolvePayment finds the checkout session behind the event's payment intent
// and reads the order reference stored in its metadata.
func (s *orderServiceImpl) resolvePayment(ctx context.Context, event *client.WebhookEvent) (*paymentRef, error) {
	if event.PaymentIntentID == "" {
		return nil, invalidInput("event has no payment intent")
	}

	session, err := s.stripeClient.FindSessionByPaymentIntent(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, client.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: no checkout session for %s: %w", ErrInvalidInput, event.PaymentIntentID, err)
		}
		return nil, fmt.Errorf("%w: find checkout session: %w", ErrGateway, err)
	}

	ref := &paymentRef{
		orderID: session.Metadata["orderId"],
		userID:  session.Metadata["userId"],
	}
	if ref.orderID == "" || ref.userID == "" {
		return nil, invalidInput(fmt.Sprintf("checkout session %s carries no order metadata", session.ID))
	}
	return ref, nil
}
