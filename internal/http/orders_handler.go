package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/healthymarket/healthy-market/internal/checkout"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/orders"
	"go.uber.org/zap"
)

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req checkout.SubmitRequest) (*domain.Order, error)
}

type OrdersHandler struct {
	checkout OrderSubmitter
	orders   orders.Repository
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewOrdersHandler(submitter OrderSubmitter, repo orders.Repository, timeout time.Duration, maxBody int64, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		checkout: submitter,
		orders:   repo,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

// OrderItemDTO accepts both "productId" and the storefront's "product" key.
// Prices and emissions are display hints; checkout reprices every line.
type OrderItemDTO struct {
	ProductID      string  `json:"productId"`
	Product        string  `json:"product"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	CarbonEmission float64 `json:"carbonEmission"`
	TraderID       string  `json:"traderId"`
	Image          string  `json:"image"`
}

type SubmitOrderRequestDTO struct {
	Items         []OrderItemDTO      `json:"items"`
	CustomerInfo  domain.CustomerInfo `json:"customerInfo"`
	PaymentMethod string              `json:"paymentMethod"`
	TotalPrice    *float64            `json:"totalPrice,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status            domain.OrderStatus `json:"status"`
	TrackingNumber    string             `json:"trackingNumber"`
	Carrier           string             `json:"carrier"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery"`
}

func (d SubmitOrderRequestDTO) lineItems() []domain.CartLineItem {
	if d.Items == nil {
		return nil
	}
	items := make([]domain.CartLineItem, len(d.Items))
	for i, it := range d.Items {
		productID := it.ProductID
		if productID == "" {
			productID = it.Product
		}
		items[i] = domain.CartLineItem{
			ProductID:          strings.TrimSpace(productID),
			Name:               it.Name,
			UnitPrice:          it.Price,
			UnitCarbonEmission: it.CarbonEmission,
			Quantity:           it.Quantity,
			TraderID:           it.TraderID,
			Image:              it.Image,
		}
	}
	return items
}

// POST /api/orders
// Without "items" in the body the customer's stored cart is checked out.
func (h *OrdersHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req SubmitOrderRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	order, err := h.checkout.SubmitOrder(ctx, checkout.SubmitRequest{
		CustomerID:     id.UserID,
		Items:          req.lineItems(),
		CustomerInfo:   req.CustomerInfo,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		ClientTotal:    req.TotalPrice,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GET /api/orders/my-orders
func (h *OrdersHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	list, err := h.orders.FindByCustomer(ctx, id.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/orders/trader
func (h *OrdersHandler) TraderOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	list, err := h.orders.FindByTrader(ctx, id.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/orders/{orderNumber}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.orders.FindByNumber(ctx, chi.URLParam(r, "orderNumber"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if !canView(id, order) {
		respondError(w, http.StatusForbidden, "permission_denied", "not allowed to view this order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PATCH /api/orders/{orderNumber}/status
// Traders may only move orders that contain their products.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if !req.Status.Valid() {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown order status", Code: "validation_error", Details: "status"})
		return
	}

	orderNumber := chi.URLParam(r, "orderNumber")
	if id.Role != RoleAdmin {
		order, err := h.orders.FindByNumber(ctx, orderNumber)
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		if !order.HasTrader(id.UserID) {
			respondError(w, http.StatusForbidden, "permission_denied", "order has none of your products")
			return
		}
	}

	updated, err := h.orders.UpdateStatus(ctx, orderNumber, req.Status, orders.ShippingUpdate{
		TrackingNumber:    strings.TrimSpace(req.TrackingNumber),
		Carrier:           strings.TrimSpace(req.Carrier),
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	h.log.Info("order status changed",
		zap.String("order_number", orderNumber),
		zap.String("status", updated.Status.String()),
		zap.String("by", id.UserID))
	respondJSON(w, http.StatusOK, updated)
}

func canView(id Identity, order *domain.Order) bool {
	switch {
	case id.Role == RoleAdmin:
		return true
	case order.CustomerID == id.UserID:
		return true
	case id.Role == RoleTrader:
		return order.HasTrader(id.UserID)
	}
	return false
}
