// Package cart holds the per-user cart as an immutable value.
//
// Every mutation returns a new Cart and leaves the receiver untouched, so a
// snapshot handed to another goroutine (for persistence, for example) never
// observes a partial update.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeQuantity = errors.New("cart quantity must not be negative")
	ErrEmptyProductID   = errors.New("cart product id must not be empty")
)

// Cart maps product id to quantity. Present keys always have quantity > 0.
type Cart struct {
	items map[string]int32
}

// Line is one product/quantity pair of a cart.
type Line struct {
	ProductID string
	Quantity  int32
}

// New builds a cart from a raw product->quantity map. Zero quantities are
// dropped, negative ones rejected.
func New(items map[string]int32) (Cart, error) {
	out := make(map[string]int32, len(items))
	for id, qty := range items {
		if id == "" {
			return Cart{}, ErrEmptyProductID
		}
		if qty < 0 {
			return Cart{}, fmt.Errorf("%w: %s=%d", ErrNegativeQuantity, id, qty)
		}
		if qty > 0 {
			out[id] = qty
		}
	}
	return Cart{items: out}, nil
}

func (c Cart) clone() map[string]int32 {
	out := make(map[string]int32, len(c.items)+1)
	for id, qty := range c.items {
		out[id] = qty
	}
	return out
}

// Add increments the quantity of productID, starting at 1.
func (c Cart) Add(productID string) Cart {
	items := c.clone()
	items[productID]++
	return Cart{items: items}
}

// Update sets an absolute quantity. A quantity of 0 removes the line.
func (c Cart) Update(productID string, quantity int32) (Cart, error) {
	if quantity < 0 {
		return c, fmt.Errorf("%w: %s=%d", ErrNegativeQuantity, productID, quantity)
	}
	items := c.clone()
	if quantity == 0 {
		delete(items, productID)
	} else {
		items[productID] = quantity
	}
	return Cart{items: items}, nil
}

// Remove decrements productID by one and drops the line when it reaches zero.
func (c Cart) Remove(productID string) Cart {
	qty, ok := c.items[productID]
	if !ok {
		return c
	}
	items := c.clone()
	if qty <= 1 {
		delete(items, productID)
	} else {
		items[productID] = qty - 1
	}
	return Cart{items: items}
}

func (c Cart) Quantity(productID string) int32 {
	return c.items[productID]
}

func (c Cart) Len() int {
	return len(c.items)
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Count is the total number of units across all lines.
func (c Cart) Count() int32 {
	var total int32
	for _, qty := range c.items {
		total += qty
	}
	return total
}

// Amount sums quantity * offer price over every line whose price is known and
// floors the result to two decimals. Tax is applied at order time, not here.
func (c Cart) Amount(priceOf func(productID string) (decimal.Decimal, bool)) decimal.Decimal {
	total := decimal.Zero
	for id, qty := range c.items {
		price, ok := priceOf(id)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt32(qty)))
	}
	return total.RoundFloor(2)
}

// Items returns a copy of the underlying map.
func (c Cart) Items() map[string]int32 {
	return c.clone()
}

// Lines returns the cart lines sorted by product id.
func (c Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.items))
	for id, qty := range c.items {
		lines = append(lines, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (c Cart) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.items)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw map[string]int32
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
