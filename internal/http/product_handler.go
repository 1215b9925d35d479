package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/domain"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products catalog.Repository
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewProductHandler(products catalog.Repository, timeout time.Duration, maxBody int64, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type CreateProductRequestDTO struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	CarbonEmission float64 `json:"carbonEmission"`
	Image          string  `json:"image"`
}

// GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/products/mine
func (h *ProductHandler) MyProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	products, err := h.products.ListByTrader(ctx, id.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreateProductRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	product := &domain.Product{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Category:       req.Category,
		CarbonEmission: req.CarbonEmission,
		Image:          req.Image,
		TraderID:       id.UserID,
	}
	if err := h.products.Create(ctx, product); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.products.Delete(ctx, chi.URLParam(r, "id"), id.UserID, id.Role == RoleAdmin); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product removed"})
}
