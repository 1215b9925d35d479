// Package analytics records trader sustainability logs and sales, and joins
// them into per-day summaries.
package analytics

import (
	"context"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
)

// Range is a half-open [From, To) time window. Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	AddEmission(ctx context.Context, log *domain.EmissionLog) error
	// ListEmissions returns logs newest first. An empty traderID lists every trader.
	ListEmissions(ctx context.Context, traderID string, r Range) ([]*domain.EmissionLog, error)
	AddWaste(ctx context.Context, log *domain.WasteLog) error
	ListWaste(ctx context.Context, traderID string, r Range) ([]*domain.WasteLog, error)
	// RecordSales stores sales idempotently per order, trader and product.
	RecordSales(ctx context.Context, sales []domain.SaleRecord) error
	ListSales(ctx context.Context, traderID string, r Range) ([]*domain.SaleRecord, error)
}
