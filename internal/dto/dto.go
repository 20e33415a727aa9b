package dto

import (
	"storefront-api/internal/cart"
	"storefront-api/internal/model"
	"time"
)

type OrderItem struct {
	Product  string `json:"product"`
	Quantity int32  `json:"quantity"`
}

type PlaceOrderRequest struct {
	// UserID is accepted for compatibility with older clients and ignored;
	// the user always comes from the verified token.
	UserID  string       `json:"userId,omitempty"`
	Items   []*OrderItem `json:"items"`
	Address string       `json:"address"`
}

type CheckoutResult struct {
	OrderID string
	URL     string
}

type UpdateCartRequest struct {
	CartItems cart.Cart `json:"cardItems"`
}

type CartItemRequest struct {
	ProductID string `json:"productId"`
}

type AddAddressRequest struct {
	Address *model.Address `json:"address"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type CartResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	CartItems cart.Cart `json:"cardItems"`
	Count     *int32    `json:"count,omitempty"`
	Amount    *float64  `json:"amount,omitempty"`
}

type PlaceOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"orderId,omitempty"`
	URL     string `json:"url,omitempty"`
}

type OrderLine struct {
	Product  *model.Product `json:"product"`
	Quantity int32          `json:"quantity"`
}

type Order struct {
	ID          string         `json:"_id"`
	UserID      string         `json:"userId"`
	Items       []*OrderLine   `json:"items"`
	Address     *model.Address `json:"address"`
	Amount      float64        `json:"amount"`
	PaymentType string         `json:"paymentType"`
	IsPaid      bool           `json:"isPaid"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type OrdersResponse struct {
	Success bool     `json:"success"`
	Orders  []*Order `json:"orders"`
}

type AddressesResponse struct {
	Success   bool             `json:"success"`
	Addresses []*model.Address `json:"addresses"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message,omitempty"`
}

func NewOrder(o *model.Order) *Order {
	lines := make([]*OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, &OrderLine{
			Product:  item.Product,
			Quantity: item.Quantity,
		})
	}

	return &Order{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       lines,
		Address:     o.Address,
		Amount:      o.Amount.InexactFloat64(),
		PaymentType: string(o.PaymentType),
		IsPaid:      o.IsPaid,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func NewOrders(orders []*model.Order) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrder(o))
	}
	return out
}
