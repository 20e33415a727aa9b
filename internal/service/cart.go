package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-api/internal/cache"
	"storefront-api/internal/cart"
	"storefront-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CartSummary struct {
	Items  cart.Cart
	Count  int32
	Amount decimal.Decimal
}

type CartService interface {
	GetCart(ctx context.Context, userID string) (cart.Cart, error)
	Summary(ctx context.Context, userID string) (*CartSummary, error)
	UpdateCart(ctx context.Context, userID string, c cart.Cart) error
	Apply(ctx context.Context, userID string, action cart.Action) (cart.Cart, error)
	ClearCart(ctx context.Context, tx *gorm.DB, userID string) error
	Forget(ctx context.Context, userID string)
}

type cartServiceImpl struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cartCache   cache.CartCache
	logger      *zap.Logger
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	cartCache cache.CartCache,
	logger *zap.Logger,
) CartService {
	return &cartServiceImpl{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cartCache:   cartCache,
		logger:      logger,
	}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID string) (cart.Cart, error) {
	if userID == "" {
		return cart.Cart{}, invalidInput("user is required")
	}

	items, err := s.cartCache.Get(ctx, userID)
	if err == nil {
		if c, err := cart.New(items); err == nil {
			return c, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
	}

	items, err = s.cartRepo.Get(ctx, userID)
	if err != nil {
		return cart.Cart{}, persistence("load cart", err)
	}

	if err := s.cartCache.Set(ctx, userID, items); err != nil {
		s.logger.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
	}

	c, err := cart.New(items)
	if err != nil {
		return cart.Cart{}, persistence("decode cart", err)
	}
	return c, nil
}

// Summary prices the cart against the catalog. Lines whose product has left
// the catalog are kept in Items but do not count toward Amount.
func (s *cartServiceImpl) Summary(ctx context.Context, userID string) (*CartSummary, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.FindMany(ctx, productIDs(c))
	if err != nil {
		return nil, persistence("load products", err)
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.OfferPrice
	}

	return &CartSummary{
		Items: c,
		Count: c.Count(),
		Amount: c.Amount(func(productID string) (decimal.Decimal, bool) {
			price, ok := prices[productID]
			return price, ok
		}),
	}, nil
}

func (s *cartServiceImpl) UpdateCart(ctx context.Context, userID string, c cart.Cart) error {
	if userID == "" {
		return invalidInput("user is required")
	}

	if !c.IsEmpty() {
		ids := productIDs(c)
		products, err := s.productRepo.FindMany(ctx, ids)
		if err != nil {
			return persistence("load products", err)
		}
		if len(products) != len(ids) {
			known := make(map[string]struct{}, len(products))
			for _, p := range products {
				known[p.ID] = struct{}{}
			}
			for _, id := range ids {
				if _, ok := known[id]; !ok {
					return fmt.Errorf("%w: %s", ErrProductNotFound, id)
				}
			}
		}
	}

	return s.save(ctx, userID, c)
}

// Apply runs one reducer action against the persisted cart and stores the result.
func (s *cartServiceImpl) Apply(ctx context.Context, userID string, action cart.Action) (cart.Cart, error) {
	current, err := s.GetCart(ctx, userID)
	if err != nil {
		return cart.Cart{}, err
	}

	if add, ok := action.(cart.AddItem); ok {
		if add.ProductID == "" {
			return current, invalidInput("product is required")
		}
		if _, err := s.productRepo.FindByID(ctx, add.ProductID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return current, fmt.Errorf("%w: %s", ErrProductNotFound, add.ProductID)
			}
			return current, persistence("load product", err)
		}
	}

	next, err := cart.Reduce(current, action)
	if err != nil {
		return current, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.save(ctx, userID, next); err != nil {
		return current, err
	}
	return next, nil
}

// ClearCart empties the user's cart inside tx. Callers invoke Forget once tx
// has committed.
func (s *cartServiceImpl) ClearCart(ctx context.Context, tx *gorm.DB, userID string) error {
	if err := s.cartRepo.Clear(ctx, tx, userID); err != nil {
		return persistence("clear cart", err)
	}
	return nil
}

func (s *cartServiceImpl) Forget(ctx context.Context, userID string) {
	if err := s.cartCache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache delete failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *cartServiceImpl) save(ctx context.Context, userID string, c cart.Cart) error {
	if err := s.cartRepo.Replace(ctx, userID, c.Items()); err != nil {
		return persistence("store cart", err)
	}
	s.Forget(ctx, userID)
	return nil
}

func productIDs(c cart.Cart) []string {
	lines := c.Lines()
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	return ids
}
