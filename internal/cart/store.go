// Package cart holds a customer's candidate purchase lines.
//
// A Store is an explicit handle over a Storage backend: every mutating call
// writes the whole cart back before returning, so the cart survives process
// restarts and page reloads. A Store is not safe for concurrent use; callers
// open one per request.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/healthymarket/healthy-market/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type Store struct {
	storage    Storage
	customerID string
	items      []domain.CartLineItem
}

// Open loads the customer's cart, or returns an empty one if nothing is stored yet.
func Open(ctx context.Context, storage Storage, customerID string) (*Store, error) {
	s := &Store{storage: storage, customerID: customerID}

	raw, ok, err := storage.Get(ctx, storageKey(customerID))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if !ok || raw == "" {
		return s, nil
	}

	var c domain.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	// drop lines a previous version may have written with a bad quantity
	for _, item := range c.Items {
		if item.Quantity >= 1 {
			s.items = append(s.items, item)
		}
	}
	return s, nil
}

func (s *Store) CustomerID() string {
	return s.customerID
}

// AddItem increments the quantity of an existing line or appends a new one.
func (s *Store) AddItem(ctx context.Context, item domain.CartLineItem, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := s.indexOf(item.ProductID); i >= 0 {
		s.items[i].Quantity += quantity
		return s.persist(ctx)
	}

	item.Quantity = quantity
	item.UnitPrice = domain.Cents(item.UnitPrice)
	item.UnitCarbonEmission = domain.NonNegative(item.UnitCarbonEmission)
	s.items = append(s.items, item)
	return s.persist(ctx)
}

// UpdateQuantity replaces a line's quantity. A quantity below 1 removes the line.
// Unknown products are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, productID)
	}
	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	s.items[i].Quantity = quantity
	return s.persist(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return s.persist(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.items = nil
	if err := s.storage.Remove(ctx, storageKey(s.customerID)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the lines in insertion order. Later mutations
// of the store do not affect it.
func (s *Store) Snapshot() []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(domain.Cart{CustomerID: s.customerID, Items: s.Snapshot()})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.storage.Set(ctx, storageKey(s.customerID), string(data)); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
