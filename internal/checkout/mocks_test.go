package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/events"
	"github.com/healthymarket/healthy-market/internal/orders"
	"github.com/healthymarket/healthy-market/internal/payment"
)

// MockOrders implements OrderStore in memory.
type MockOrders struct {
	mu             sync.Mutex
	orders         map[string]*domain.Order
	DuplicatesLeft int
	CreateErr      error
	Attempts       []string
}

func NewMockOrders() *MockOrders {
	return &MockOrders{orders: make(map[string]*domain.Order)}
}

func (m *MockOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, order.OrderNumber)
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.DuplicatesLeft > 0 {
		m.DuplicatesLeft--
		return orders.ErrDuplicateOrder
	}
	if _, ok := m.orders[order.OrderNumber]; ok {
		return orders.ErrDuplicateOrder
	}
	stored := *order
	m.orders[order.OrderNumber] = &stored
	return nil
}

func (m *MockOrders) FindByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrders) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// MockGateway implements payment.Gateway.
type MockGateway struct {
	mu       sync.Mutex
	Err      error
	Requests []payment.ChargeRequest
	Refunds  []string
	seq      int
}

func (m *MockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return payment.ChargeResult{}, m.Err
	}
	m.seq++
	return payment.ChargeResult{PaymentID: fmt.Sprintf("TXN-%d", m.seq), Amount: req.Amount, ChargedAt: time.Now()}, nil
}

func (m *MockGateway) Refund(_ context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refunds = append(m.Refunds, paymentID)
	return nil
}

func (m *MockGateway) Charges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockCatalog implements ProductLookup.
type MockCatalog struct {
	Products map[string]*domain.Product
	Err      error
}

func (m *MockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

// MockPublisher implements events.Publisher.
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.OrderPlaced
	Err    error
}

func (m *MockPublisher) PublishOrderPlaced(_ context.Context, e events.OrderPlaced) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// MockMetrics records outcomes.
type MockMetrics struct {
	mu       sync.Mutex
	Outcomes []string
	Revenue  float64
}

func (m *MockMetrics) Observe(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}

func (m *MockMetrics) OrderPlaced(total, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Revenue += total
}

// failingCarts wraps a Carts and fails ClearCart.
type failingCarts struct {
	Carts
}

func (failingCarts) ClearCart(context.Context, string) error {
	return errors.New("storage offline")
}
