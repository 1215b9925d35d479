package checkout

import (
	"errors"

	"github.com/healthymarket/healthy-market/internal/orders"
	"github.com/healthymarket/healthy-market/internal/payment"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrPaymentDeclined    = payment.ErrDeclined
	ErrPaymentTimeout     = errors.New("payment timed out")
	ErrPaymentUnavailable = payment.ErrUnavailable
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is in progress")
	ErrDuplicateOrder     = orders.ErrDuplicateOrder
)
