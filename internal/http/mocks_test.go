package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/healthymarket/healthy-market/internal/analytics"
	"github.com/healthymarket/healthy-market/internal/cart"
	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/checkout"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/orders"
	"github.com/healthymarket/healthy-market/internal/pricing"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

// --- Mocks ---

type CartServiceMock struct {
	mu       sync.Mutex
	items    map[string][]domain.CartLineItem
	err      error
	cleared  []string
	lastQty  int
	lastProd string
}

func newCartServiceMock() *CartServiceMock {
	return &CartServiceMock{items: make(map[string][]domain.CartLineItem)}
}

func (m *CartServiceMock) view(customerID string) *cart.View {
	items := append([]domain.CartLineItem{}, m.items[customerID]...)
	return &cart.View{CustomerID: customerID, Items: items, Totals: pricing.Aggregate(items).Summary()}
}

func (m *CartServiceMock) GetCart(_ context.Context, customerID string) (*cart.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.view(customerID), nil
}

func (m *CartServiceMock) AddItem(_ context.Context, customerID, productID string, quantity int) (*cart.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lastProd, m.lastQty = productID, quantity
	m.items[customerID] = append(m.items[customerID], domain.CartLineItem{ProductID: productID, UnitPrice: 10, Quantity: quantity})
	return m.view(customerID), nil
}

func (m *CartServiceMock) UpdateQuantity(_ context.Context, customerID, productID string, quantity int) (*cart.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lastProd, m.lastQty = productID, quantity
	return m.view(customerID), nil
}

func (m *CartServiceMock) RemoveItem(_ context.Context, customerID, productID string) (*cart.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lastProd = productID
	return m.view(customerID), nil
}

func (m *CartServiceMock) ClearCart(_ context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cleared = append(m.cleared, customerID)
	delete(m.items, customerID)
	return nil
}

type SubmitterMock struct {
	mu   sync.Mutex
	last checkout.SubmitRequest
	err  error
}

func (m *SubmitterMock) SubmitOrder(_ context.Context, req checkout.SubmitRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{
		OrderNumber:   "ORD1700000000000ABCDE",
		CustomerID:    req.CustomerID,
		TotalPrice:    25,
		Status:        domain.OrderStatusCompleted,
		PaymentMethod: req.PaymentMethod,
		CustomerInfo:  req.CustomerInfo,
	}, nil
}

type OrdersRepoMock struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	err     error
	updates []domain.OrderStatus
	lastShp orders.ShippingUpdate
}

func newOrdersRepoMock(list ...*domain.Order) *OrdersRepoMock {
	m := &OrdersRepoMock{orders: make(map[string]*domain.Order)}
	for _, o := range list {
		m.orders[o.OrderNumber] = o
	}
	return m
}

func (m *OrdersRepoMock) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderNumber] = order
	return nil
}

func (m *OrdersRepoMock) FindByCustomer(_ context.Context, customerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *OrdersRepoMock) FindByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (m *OrdersRepoMock) FindByTrader(_ context.Context, traderID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.HasTrader(traderID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *OrdersRepoMock) UpdateStatus(_ context.Context, orderNumber string, status domain.OrderStatus, shipping orders.ShippingUpdate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	if !domain.CanTransitionTo(o.Status, status) {
		return nil, orders.ErrIllegalTransition
	}
	m.updates = append(m.updates, status)
	m.lastShp = shipping
	updated := *o
	updated.Status = status
	m.orders[orderNumber] = &updated
	return &updated, nil
}

type ProductsRepoMock struct {
	mu       sync.Mutex
	products []*domain.Product
	created  *domain.Product
	deleted  []string
	err      error
}

func (m *ProductsRepoMock) List(context.Context) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *ProductsRepoMock) ListByTrader(_ context.Context, traderID string) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0)
	for _, p := range m.products {
		if p.TraderID == traderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *ProductsRepoMock) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID.Hex() == id {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *ProductsRepoMock) Create(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := catalog.Validate(product); err != nil {
		return err
	}
	m.created = product
	return nil
}

func (m *ProductsRepoMock) Delete(_ context.Context, id, requesterID string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.GetProduct(context.Background(), id)
	if err != nil {
		return err
	}
	if !isAdmin && p.TraderID != requesterID {
		return catalog.ErrForbidden
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type AnalyticsMock struct {
	mu        sync.Mutex
	emission  analytics.EmissionInput
	waste     analytics.WasteInput
	listedFor []string
	rng       analytics.Range
	err       error
}

func (m *AnalyticsMock) AddEmission(_ context.Context, traderID string, in analytics.EmissionInput) (*domain.EmissionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !in.ActivityType.Valid() {
		return nil, domain.NewValidationError("activityType", "must be one of transport, production, packaging, other")
	}
	m.emission = in
	return &domain.EmissionLog{TraderID: traderID, ActivityType: in.ActivityType, CarbonEmission: in.CarbonEmission}, nil
}

func (m *AnalyticsMock) AddWaste(_ context.Context, traderID string, in analytics.WasteInput) (*domain.WasteLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waste = in
	return &domain.WasteLog{TraderID: traderID, WasteType: in.WasteType, Quantity: in.Quantity}, nil
}

func (m *AnalyticsMock) ListEmissions(_ context.Context, traderID string) ([]*domain.EmissionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listedFor = append(m.listedFor, traderID)
	return []*domain.EmissionLog{}, nil
}

func (m *AnalyticsMock) ListWaste(_ context.Context, traderID string) ([]*domain.WasteLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listedFor = append(m.listedFor, traderID)
	return []*domain.WasteLog{}, nil
}

func (m *AnalyticsMock) TraderSummary(_ context.Context, traderID string, r analytics.Range) (analytics.TraderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rng = r
	if m.err != nil {
		return analytics.TraderSummary{}, m.err
	}
	return analytics.TraderSummary{TraderID: traderID, Days: []analytics.DaySummary{}}, nil
}

// --- helpers ---

type testServer struct {
	handler   http.Handler
	carts     *CartServiceMock
	submitter *SubmitterMock
	orders    *OrdersRepoMock
	products  *ProductsRepoMock
	analytics *AnalyticsMock
}

func newTestServer(t *testing.T, existing ...*domain.Order) *testServer {
	t.Helper()
	ts := &testServer{
		carts:     newCartServiceMock(),
		submitter: &SubmitterMock{},
		orders:    newOrdersRepoMock(existing...),
		products:  &ProductsRepoMock{},
		analytics: &AnalyticsMock{},
	}
	ts.handler = NewRouter(RouterConfig{
		JWTSecret:          testSecret,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		RateLimitPerMinute: 1000,
	}, Deps{
		Carts:     ts.carts,
		Checkout:  ts.submitter,
		Orders:    ts.orders,
		Products:  ts.products,
		Analytics: ts.analytics,
	}, zap.NewNop())
	return ts
}

func signToken(t *testing.T, userID string, role Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:   userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func newAuthedRequest(t *testing.T, method, path, userID string, role Role, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID, role))
	}
	return req
}

func serve(ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// do sends a request through the router. An empty userID sends no token.
// A string body is sent verbatim, anything else is JSON encoded.
func (ts *testServer) do(t *testing.T, method, path, userID string, role Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var raw string
	switch b := body.(type) {
	case nil:
	case string:
		raw = b
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		raw = string(encoded)
	}
	return serve(ts, newAuthedRequest(t, method, path, userID, role, raw))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
