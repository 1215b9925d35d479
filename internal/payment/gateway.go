// Package payment charges orders through a payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrDeclined    = errors.New("payment declined")
	ErrUnavailable = errors.New("payment provider unavailable")
)

type Refusal string

const (
	RefusalNone              Refusal = ""
	RefusalInsufficientFunds Refusal = "insufficient_funds"
	RefusalCardExpired       Refusal = "card_expired"
	RefusalFraudSuspected    Refusal = "fraud_suspected"
	RefusalLimitExceeded     Refusal = "limit_exceeded"
	RefusalInvalidAmount     Refusal = "invalid_amount"
	RefusalUnknown           Refusal = "unknown"
)

// DeclineError carries the provider's refusal reason and matches ErrDeclined.
type DeclineError struct {
	Reason Refusal
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDeclined, e.Reason)
}

func (e *DeclineError) Is(target error) bool {
	return target == ErrDeclined
}

type ChargeRequest struct {
	Reference string
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
}

type ChargeResult struct {
	PaymentID string
	Amount    decimal.Decimal
	ChargedAt time.Time
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, paymentID string) error
}

// Decider picks the outcome of a simulated charge.
type Decider interface {
	Decide() Refusal
}

// RandomDecider approves ApprovePercent of charges and spreads the rest over
// the known refusal reasons.
type RandomDecider struct {
	ApprovePercent int
}

func (r RandomDecider) Decide() Refusal {
	return decide(rand.Intn(101), r.ApprovePercent) // 0..100 inclusive
}

var refusals = []Refusal{
	RefusalInsufficientFunds,
	RefusalCardExpired,
	RefusalFraudSuspected,
	RefusalLimitExceeded,
}

func decide(roll, approvePercent int) Refusal {
	if roll < approvePercent {
		return RefusalNone
	}
	other := roll - approvePercent
	if other == 0 || other > len(refusals) {
		return RefusalUnknown
	}
	return refusals[other-1]
}

type ApproveAll struct{}

func (ApproveAll) Decide() Refusal { return RefusalNone }

// SimulatedGateway stands in for a real provider.
type SimulatedGateway struct {
	decider Decider
	latency time.Duration
	now     func() time.Time
}

func NewSimulatedGateway(decider Decider, latency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{decider: decider, latency: latency, now: time.Now}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	if !req.Amount.IsPositive() {
		return ChargeResult{}, &DeclineError{Reason: RefusalInvalidAmount}
	}
	if reason := g.decider.Decide(); reason != RefusalNone {
		return ChargeResult{}, &DeclineError{Reason: reason}
	}

	return ChargeResult{
		PaymentID: "TXN-" + uuid.NewString(),
		Amount:    req.Amount,
		ChargedAt: g.now().UTC(),
	}, nil
}

// Refund always succeeds for the simulated provider.
func (g *SimulatedGateway) Refund(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return errors.New("refund: empty payment id")
	}
	return ctx.Err()
}
