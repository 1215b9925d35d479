// Package checkout turns a customer's cart into a paid, persisted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/events"
	"github.com/healthymarket/healthy-market/internal/payment"
	"github.com/healthymarket/healthy-market/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPaymentTimeout = 5 * time.Second
	maxCreateAttempts     = 3
)

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}

type Carts interface {
	Snapshot(ctx context.Context, customerID string) ([]domain.CartLineItem, error)
	ClearCart(ctx context.Context, customerID string) error
}

type Metrics interface {
	Observe(outcome string, elapsed time.Duration)
	OrderPlaced(total, emissionsKg float64)
}

type Deps struct {
	Orders   OrderStore
	Carts    Carts
	Payments payment.Gateway
	// Catalog reprices submitted lines. Without it lines are taken as sent.
	Catalog   ProductLookup
	Guard     Guard
	Publisher events.Publisher
	Metrics   Metrics
}

type SubmitRequest struct {
	CustomerID string
	// Items to buy. A nil slice means the customer's stored cart.
	Items         []domain.CartLineItem
	CustomerInfo  domain.CustomerInfo
	PaymentMethod domain.PaymentMethod
	// ClientTotal is what the caller displayed. It is only compared and logged.
	ClientTotal    *float64
	IdempotencyKey string
}

type Service struct {
	orders         OrderStore
	carts          Carts
	payments       payment.Gateway
	catalog        ProductLookup
	guard          Guard
	publisher      events.Publisher
	metrics        Metrics
	log            *zap.Logger
	paymentTimeout time.Duration
	now            func() time.Time
	newNumber      func(time.Time) string
}

func NewService(deps Deps, paymentTimeout time.Duration, log *zap.Logger) *Service {
	if paymentTimeout <= 0 {
		paymentTimeout = DefaultPaymentTimeout
	}
	s := &Service{
		orders:         deps.Orders,
		carts:          deps.Carts,
		payments:       deps.Payments,
		catalog:        deps.Catalog,
		guard:          deps.Guard,
		publisher:      deps.Publisher,
		metrics:        deps.Metrics,
		log:            log,
		paymentTimeout: paymentTimeout,
		now:            time.Now,
		newNumber:      NewOrderNumber,
	}
	if s.guard == nil {
		s.guard = NopGuard{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

// SubmitOrder validates the request, recomputes totals, charges the customer,
// stores the order and clears the cart. Nothing is changed if it fails before
// the order is stored.
func (s *Service) SubmitOrder(ctx context.Context, req SubmitRequest) (order *domain.Order, err error) {
	started := s.now()
	defer func() {
		s.metrics.Observe(outcome(err), s.now().Sub(started))
	}()

	// a replayed key returns the earlier order even though its cart is gone
	if req.IdempotencyKey != "" {
		var existing string
		existing, err = s.guard.Begin(ctx, req.CustomerID, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != "" {
			s.log.Info("replaying idempotent checkout",
				zap.String("customer_id", req.CustomerID),
				zap.String("order_number", existing))
			return s.orders.FindByNumber(ctx, existing)
		}
		defer func() {
			s.finishIdempotent(req, order, err)
		}()
	}

	items := req.Items
	if items == nil {
		items, err = s.carts.Snapshot(ctx, req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	info, err := validateCustomerInfo(req.CustomerInfo)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("paymentMethod", "must be card or paypal")
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	lines, err := s.linesFor(ctx, items)
	if err != nil {
		return nil, err
	}

	totals := pricing.Aggregate(lines)
	if req.ClientTotal != nil {
		client := decimal.NewFromFloat(*req.ClientTotal).Round(2)
		if !client.Equal(totals.Subtotal.Round(2)) && !client.Equal(totals.Total.Round(2)) {
			s.log.Warn("client total differs from server total",
				zap.String("customer_id", req.CustomerID),
				zap.Float64("client_total", *req.ClientTotal),
				zap.String("server_subtotal", totals.Subtotal.StringFixed(2)),
				zap.String("server_total", totals.Total.StringFixed(2)))
		}
	}

	charge, err := s.charge(ctx, req.PaymentMethod, totals.Total.Round(2))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order = &domain.Order{
		CustomerID:     req.CustomerID,
		Items:          orderLines(lines),
		TotalPrice:     totals.Subtotal.Round(2).InexactFloat64(),
		TotalEmissions: totals.TotalEmissions.InexactFloat64(),
		TaxAmount:      totals.TaxAmount.Round(2).InexactFloat64(),
		CustomerInfo:   info,
		PaymentMethod:  req.PaymentMethod,
		PaymentID:      charge.PaymentID,
		Status:         domain.OrderStatusCompleted,
		OrderDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.create(ctx, order); err != nil {
		s.log.Error("failed to store paid order, refunding",
			zap.String("customer_id", req.CustomerID),
			zap.String("payment_id", charge.PaymentID),
			zap.Error(err))
		if refundErr := s.payments.Refund(context.WithoutCancel(ctx), charge.PaymentID); refundErr != nil {
			s.log.Error("refund failed", zap.String("payment_id", charge.PaymentID), zap.Error(refundErr))
		}
		return nil, err
	}

	// the order is durable from here on, later failures are only logged
	if err := s.carts.ClearCart(ctx, req.CustomerID); err != nil {
		s.log.Warn("failed to clear cart after checkout",
			zap.String("customer_id", req.CustomerID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
	if err := s.publisher.PublishOrderPlaced(ctx, events.NewOrderPlaced(order)); err != nil {
		s.log.Warn("failed to publish order placed event",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}

	s.metrics.OrderPlaced(totals.Total.Round(2).InexactFloat64(), order.TotalEmissions)
	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", req.CustomerID),
		zap.Int("lines", len(order.Items)),
		zap.String("total", totals.Total.StringFixed(2)))
	return order, nil
}

func (s *Service) linesFor(ctx context.Context, items []domain.CartLineItem) ([]domain.CartLineItem, error) {
	if s.catalog != nil {
		return reprice(ctx, s.catalog, items)
	}
	lines := make([]domain.CartLineItem, len(items))
	for i, item := range items {
		item.UnitPrice = domain.Cents(item.UnitPrice)
		item.UnitCarbonEmission = domain.NonNegative(item.UnitCarbonEmission)
		lines[i] = item
	}
	return lines, nil
}

func (s *Service) charge(ctx context.Context, method domain.PaymentMethod, amount decimal.Decimal) (payment.ChargeResult, error) {
	payCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	result, err := s.payments.Charge(payCtx, payment.ChargeRequest{
		Reference: uuid.NewString(),
		Amount:    amount,
		Method:    method,
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, payment.ErrDeclined), errors.Is(err, payment.ErrUnavailable):
		return payment.ChargeResult{}, err
	case errors.Is(err, context.DeadlineExceeded):
		return payment.ChargeResult{}, ErrPaymentTimeout
	case errors.Is(err, context.Canceled):
		return payment.ChargeResult{}, err
	default:
		return payment.ChargeResult{}, fmt.Errorf("charge payment: %w", err)
	}
}

// create stores the order, drawing a fresh number when one collides.
func (s *Service) create(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		order.OrderNumber = s.newNumber(s.now())
		err = s.orders.Create(ctx, order)
		if !errors.Is(err, ErrDuplicateOrder) {
			return err
		}
		s.log.Warn("order number collision",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
	return err
}

func (s *Service) finishIdempotent(req SubmitRequest, order *domain.Order, err error) {
	// the request context may already be gone, the key must still be settled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err != nil {
		if releaseErr := s.guard.Release(ctx, req.CustomerID, req.IdempotencyKey); releaseErr != nil {
			s.log.Warn("failed to release idempotency key", zap.String("customer_id", req.CustomerID), zap.Error(releaseErr))
		}
		return
	}
	if completeErr := s.guard.Complete(ctx, req.CustomerID, req.IdempotencyKey, order.OrderNumber); completeErr != nil {
		s.log.Warn("failed to complete idempotency key", zap.String("customer_id", req.CustomerID), zap.Error(completeErr))
	}
}

func validateCustomerInfo(info domain.CustomerInfo) (domain.CustomerInfo, error) {
	info.Email = strings.TrimSpace(info.Email)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.ZipCode = strings.TrimSpace(info.ZipCode)
	info.Country = strings.TrimSpace(info.Country)

	required := []struct{ field, value string }{
		{"customerInfo.email", info.Email},
		{"customerInfo.address", info.Address},
		{"customerInfo.city", info.City},
		{"customerInfo.zipCode", info.ZipCode},
	}
	for _, r := range required {
		if r.value == "" {
			return info, domain.NewValidationError(r.field, "is required")
		}
	}
	if !strings.Contains(info.Email, "@") {
		return info, domain.NewValidationError("customerInfo.email", "is not a valid email address")
	}
	if info.Country == "" {
		info.Country = domain.DefaultCountry
	}
	return info, nil
}

func validateItems(items []domain.CartLineItem) error {
	for i, item := range items {
		if item.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if item.Quantity < 1 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return nil
}

func orderLines(lines []domain.CartLineItem) []domain.OrderLineItem {
	out := make([]domain.OrderLineItem, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLineItem{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Price:          l.UnitPrice,
			Quantity:       l.Quantity,
			CarbonEmission: l.UnitCarbonEmission,
			TraderID:       l.TraderID,
			Image:          l.Image,
		}
	}
	return out
}

func outcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrEmptyCart), errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, ErrPaymentTimeout):
		return "timeout"
	case errors.Is(err, ErrPaymentUnavailable):
		return "unavailable"
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	case errors.Is(err, ErrDuplicateOrder):
		return "duplicate"
	default:
		return "error"
	}
}

type nopMetrics struct{}

func (nopMetrics) Observe(string, time.Duration) {}

func (nopMetrics) OrderPlaced(float64, float64) {}
