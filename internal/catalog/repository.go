// Package catalog stores the products traders list on the market.
package catalog

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/healthymarket/healthy-market/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrForbidden       = errors.New("not allowed to modify this product")
)

type Repository interface {
	List(ctx context.Context) ([]*domain.Product, error)
	ListByTrader(ctx context.Context, traderID string) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	// Delete removes a product owned by requesterID. Admins may delete any product.
	Delete(ctx context.Context, id, requesterID string, isAdmin bool) error
}

// Validate normalises defaults and checks the fields a trader must supply.
func Validate(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if math.IsNaN(p.Price) || p.Price < 0 {
		return domain.NewValidationError("price", "must be a non-negative number")
	}
	if p.Quantity < 0 {
		return domain.NewValidationError("quantity", "must not be negative")
	}
	if math.IsNaN(p.CarbonEmission) || p.CarbonEmission < 0 {
		return domain.NewValidationError("carbonEmission", "must be a non-negative number")
	}
	if p.TraderID == "" {
		return domain.NewValidationError("traderId", "is required")
	}
	if p.Unit == "" {
		p.Unit = domain.DefaultProductUnit
	}
	p.Price = domain.Cents(p.Price)
	return nil
}
