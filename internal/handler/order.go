package handler

import (
	"errors"
	"io"
	"net/http"
	"storefront-api/internal/dto"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const stripeSignatureHeader = "Stripe-Signature"

type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) PlaceOrderCOD(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError(err))
	}

	order, err := h.orderService.PlaceOrderCOD(ctx, userID, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.PlaceOrderResponse{
		Success: true,
		Message: "Order Placed Successfully",
		OrderID: order.ID,
	})
}

func (h *OrderHandler) PlaceOrderStripe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError(err))
	}

	result, err := h.orderService.PlaceOrderOnline(ctx, userID, &req, c.Request().Header.Get(echo.HeaderOrigin))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.PlaceOrderResponse{
		Success: true,
		OrderID: result.OrderID,
		URL:     result.URL,
	})
}

// StripeWebhook needs the body exactly as sent; it must not be bound or
// re-encoded before the signature is checked. Every verified delivery is
// acknowledged, reconciliation failures are only logged.
func (h *OrderHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, &dto.WebhookResponse{Received: false, Message: "unreadable body"})
	}

	err = h.orderService.HandleWebhook(ctx, body, c.Request().Header.Get(stripeSignatureHeader))
	if errors.Is(err, service.ErrSignatureInvalid) {
		h.logger.Warn("rejected stripe webhook", zap.Error(err))
		return c.JSON(http.StatusBadRequest, &dto.WebhookResponse{
			Received: false,
			Message:  "Webhook Error: " + err.Error(),
		})
	}
	if err != nil {
		h.logger.Error("stripe webhook not reconciled", zap.Error(err))
	}

	return c.JSON(http.StatusOK, &dto.WebhookResponse{Received: true})
}

func (h *OrderHandler) GetUserOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	orders, err := h.orderService.GetUserOrders(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.OrdersResponse{
		Success: true,
		Orders:  dto.NewOrders(orders),
	})
}

func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.GetAllOrders(ctx)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.OrdersResponse{
		Success: true,
		Orders:  dto.NewOrders(orders),
	})
}
