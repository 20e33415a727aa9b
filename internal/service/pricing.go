package service

import (
	"context"
	"fmt"
	"storefront-api/internal/dto"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"

	"github.com/shopspring/decimal"
)

type pricedLine struct {
	product  *model.Product
	quantity int32
}

type quote struct {
	lines    []pricedLine
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func validateOrder(req *dto.PlaceOrderRequest) error {
	if req == nil {
		return invalidInput("missing order")
	}
	if req.Address == "" {
		return invalidInput("address is required")
	}
	if len(req.Items) == 0 {
		return invalidInput("order has no items")
	}
	for _, item := range req.Items {
		if item == nil || item.Product == "" {
			return invalidInput("order item has no product")
		}
		if item.Quantity <= 0 {
			return invalidInput(fmt.Sprintf("quantity for %s must be positive", item.Product))
		}
	}
	return nil
}

// priceItems resolves every item against the catalog. A single unknown
// product fails the whole quote.
func priceItems(ctx context.Context, products repository.ProductRepository, items []*dto.OrderItem, taxPercent int64) (*quote, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.Product]; ok {
			continue
		}
		seen[item.Product] = struct{}{}
		ids = append(ids, item.Product)
	}

	found, err := products.FindMany(ctx, ids)
	if err != nil {
		return nil, persistence("load products", err)
	}
	byID := make(map[string]*model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	q := &quote{lines: make([]pricedLine, 0, len(items))}
	for _, item := range items {
		p, ok := byID[item.Product]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.Product)
		}
		q.lines = append(q.lines, pricedLine{product: p, quantity: item.Quantity})
		q.subtotal = q.subtotal.Add(p.OfferPrice.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	q.tax = taxOn(q.subtotal, taxPercent)
	q.total = q.subtotal.Add(q.tax)
	return q, nil
}

// taxOn is floor(subtotal * percent / 100) at two decimals.
func taxOn(subtotal decimal.Decimal, percent int64) decimal.Decimal {
	return subtotal.
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		RoundFloor(2)
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
