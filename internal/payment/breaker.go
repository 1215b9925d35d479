package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthymarket/healthy-market/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway fails fast with ErrUnavailable once the wrapped gateway keeps
// erroring. Declines are business outcomes and never trip it.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[ChargeResult]
}

func NewBreakerGateway(next Gateway, settings circuitbreaker.Settings, log *zap.Logger) *BreakerGateway {
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrDeclined) || errors.Is(err, context.Canceled)
	}
	return &BreakerGateway{
		next: next,
		cb:   circuitbreaker.New[ChargeResult](settings, log),
	}
}

func (b *BreakerGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	result, err := b.cb.Execute(func() (ChargeResult, error) {
		return b.next.Charge(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ChargeResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, err
}

// Refund bypasses the breaker so money already taken can always be returned.
func (b *BreakerGateway) Refund(ctx context.Context, paymentID string) error {
	return b.next.Refund(ctx, paymentID)
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}
