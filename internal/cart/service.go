package cart

import (
	"context"
	"fmt"

	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/pricing"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductLookup resolves catalog products for new cart lines.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// View is a cart together with its derived totals.
type View struct {
	CustomerID string                `json:"customerId"`
	Items      []domain.CartLineItem `json:"items"`
	Totals     pricing.Summary       `json:"totals"`
}

type Service struct {
	storage  Storage
	products ProductLookup
	log      *zap.Logger
	sfg      singleflight.Group // collapses concurrent loads of the same cart
}

func NewService(storage Storage, products ProductLookup, log *zap.Logger) *Service {
	return &Service{
		storage:  storage,
		products: products,
		log:      log,
	}
}

func (s *Service) GetCart(ctx context.Context, customerID string) (*View, error) {
	v, err, _ := s.sfg.Do(customerID, func() (interface{}, error) {
		store, err := Open(ctx, s.storage, customerID)
		if err != nil {
			return nil, err
		}
		return store.Snapshot(), nil
	})
	if err != nil {
		return nil, err
	}

	// the shared result must not be handed out to several callers
	shared := v.([]domain.CartLineItem)
	items := make([]domain.CartLineItem, len(shared))
	copy(items, shared)
	return newView(customerID, items), nil
}

// Snapshot returns the customer's current lines.
func (s *Service) Snapshot(ctx context.Context, customerID string) ([]domain.CartLineItem, error) {
	store, err := Open(ctx, s.storage, customerID)
	if err != nil {
		return nil, err
	}
	return store.Snapshot(), nil
}

func (s *Service) AddItem(ctx context.Context, customerID, productID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", productID, err)
	}

	store, err := Open(ctx, s.storage, customerID)
	if err != nil {
		return nil, err
	}
	if err := store.AddItem(ctx, domain.NewLineItem(*product, 1), quantity); err != nil {
		s.log.Error("cart add item failed", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	return newView(customerID, store.Snapshot()), nil
}

func (s *Service) UpdateQuantity(ctx context.Context, customerID, productID string, quantity int) (*View, error) {
	store, err := Open(ctx, s.storage, customerID)
	if err != nil {
		return nil, err
	}
	if err := store.UpdateQuantity(ctx, productID, quantity); err != nil {
		s.log.Error("cart update quantity failed", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	return newView(customerID, store.Snapshot()), nil
}

func (s *Service) RemoveItem(ctx context.Context, customerID, productID string) (*View, error) {
	store, err := Open(ctx, s.storage, customerID)
	if err != nil {
		return nil, err
	}
	if err := store.RemoveItem(ctx, productID); err != nil {
		s.log.Error("cart remove item failed", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	return newView(customerID, store.Snapshot()), nil
}

// ClearCart drops the stored cart without decoding it, so a corrupt entry can still be cleared.
func (s *Service) ClearCart(ctx context.Context, customerID string) error {
	if err := s.storage.Remove(ctx, storageKey(customerID)); err != nil {
		s.log.Error("cart clear failed", zap.String("customer_id", customerID), zap.Error(err))
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func newView(customerID string, items []domain.CartLineItem) *View {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return &View{
		CustomerID: customerID,
		Items:      items,
		Totals:     pricing.Aggregate(items).Summary(),
	}
}
