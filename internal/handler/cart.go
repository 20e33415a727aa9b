package handler

import (
	"net/http"
	"storefront-api/internal/cart"
	"storefront-api/internal/dto"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	summary, err := h.cartService.Summary(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	amount := summary.Amount.InexactFloat64()
	return c.JSON(http.StatusOK, &dto.CartResponse{
		Success:   true,
		CartItems: summary.Items,
		Count:     &summary.Count,
		Amount:    &amount,
	})
}

func (h *CartHandler) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError(err))
	}

	if err := h.cartService.UpdateCart(ctx, userID, req.CartItems); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.Response{
		Success: true,
		Message: "Cart Updated",
	})
}

func (h *CartHandler) AddItem(c echo.Context) error {
	return h.apply(c, "Added to Cart", func(productID string) cart.Action {
		return cart.AddItem{ProductID: productID}
	})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	return h.apply(c, "Removed from Cart", func(productID string) cart.Action {
		return cart.RemoveItem{ProductID: productID}
	})
}

func (h *CartHandler) apply(c echo.Context, message string, action func(productID string) cart.Action) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError(err))
	}

	updated, err := h.cartService.Apply(ctx, userID, action(req.ProductID))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.CartResponse{
		Success:   true,
		Message:   message,
		CartItems: updated,
	})
}
