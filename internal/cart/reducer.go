package cart

import "fmt"

// Action is one of the cart mutations understood by Reduce.
type Action interface {
	apply(Cart) (Cart, error)
}

type AddItem struct {
	ProductID string
}

type UpdateItem struct {
	ProductID string
	Quantity  int32
}

type RemoveItem struct {
	ProductID string
}

type ClearCart struct{}

func (a AddItem) apply(c Cart) (Cart, error) {
	if a.ProductID == "" {
		return c, ErrEmptyProductID
	}
	return c.Add(a.ProductID), nil
}

func (a UpdateItem) apply(c Cart) (Cart, error) {
	if a.ProductID == "" {
		return c, ErrEmptyProductID
	}
	return c.Update(a.ProductID, a.Quantity)
}

func (a RemoveItem) apply(c Cart) (Cart, error) {
	if a.ProductID == "" {
		return c, ErrEmptyProductID
	}
	return c.Remove(a.ProductID), nil
}

func (ClearCart) apply(Cart) (Cart, error) {
	return Cart{items: map[string]int32{}}, nil
}

// Reduce applies action to c. On error c is returned unchanged.
func Reduce(c Cart, action Action) (Cart, error) {
	if action == nil {
		return c, fmt.Errorf("cart: nil action")
	}
	next, err := action.apply(c)
	if err != nil {
		return c, err
	}
	return next, nil
}
