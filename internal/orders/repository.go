// Package orders persists placed orders and enforces their status lifecycle.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order with this number already exists")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// ShippingUpdate carries the carrier details recorded when an order ships.
type ShippingUpdate struct {
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
}

type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByTrader(ctx context.Context, traderID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, status domain.OrderStatus, shipping ShippingUpdate) (*domain.Order, error)
}
