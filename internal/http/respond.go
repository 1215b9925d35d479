package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/healthymarket/healthy-market/internal/analytics"
	"github.com/healthymarket/healthy-market/internal/cart"
	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/checkout"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/orders"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads a size-limited JSON body and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps service errors to HTTP responses. Anything unrecognised is
// logged and reported as a 500 without leaking its message.
func handleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Code: "validation_error", Details: verr.Field})
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, analytics.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, catalog.ErrForbidden):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, orders.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, checkout.ErrPaymentDeclined):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{Error: "payment failed", Code: "payment_declined", Details: err.Error()})
	case errors.Is(err, checkout.ErrPaymentTimeout):
		respondError(w, http.StatusGatewayTimeout, "payment_timeout", "payment failed")
	case errors.Is(err, checkout.ErrPaymentUnavailable):
		respondError(w, http.StatusServiceUnavailable, "payment_unavailable", "payment failed")
	case errors.Is(err, checkout.ErrDuplicateOrder):
		log.Error("order number collisions exhausted", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "duplicate_order", "could not place order, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
