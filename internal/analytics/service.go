package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultSummaryWindow = 30 * 24 * time.Hour

var ErrInvalidRange = errors.New("summary range start must be before its end")

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

type EmissionInput struct {
	ProductID      string
	ActivityType   domain.ActivityType
	CarbonEmission float64
	Notes          string
	Date           time.Time
}

func (s *Service) AddEmission(ctx context.Context, traderID string, in EmissionInput) (*domain.EmissionLog, error) {
	if !in.ActivityType.Valid() {
		return nil, domain.NewValidationError("activityType", "must be one of transport, production, packaging, other")
	}
	if math.IsNaN(in.CarbonEmission) || math.IsInf(in.CarbonEmission, 0) || in.CarbonEmission < 0 {
		return nil, domain.NewValidationError("carbonEmission", "must be a non-negative number")
	}

	now := s.now().UTC()
	log := &domain.EmissionLog{
		TraderID:       traderID,
		ProductID:      in.ProductID,
		ActivityType:   in.ActivityType,
		CarbonEmission: in.CarbonEmission,
		Notes:          in.Notes,
		Date:           orNow(in.Date, now),
		CreatedAt:      now,
	}
	if err := s.repo.AddEmission(ctx, log); err != nil {
		s.log.Error("failed to add emission log", zap.String("trader_id", traderID), zap.Error(err))
		return nil, err
	}
	return log, nil
}

type WasteInput struct {
	WasteType domain.WasteType
	Quantity  float64
	Notes     string
	Date      time.Time
}

func (s *Service) AddWaste(ctx context.Context, traderID string, in WasteInput) (*domain.WasteLog, error) {
	if !in.WasteType.Valid() {
		return nil, domain.NewValidationError("wasteType", "must be one of organic, plastic, paper, metal, other")
	}
	if math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity < 0 {
		return nil, domain.NewValidationError("quantity", "must be a non-negative number")
	}

	now := s.now().UTC()
	log := &domain.WasteLog{
		TraderID:  traderID,
		WasteType: in.WasteType,
		Quantity:  in.Quantity,
		Notes:     in.Notes,
		Date:      orNow(in.Date, now),
		CreatedAt: now,
	}
	if err := s.repo.AddWaste(ctx, log); err != nil {
		s.log.Error("failed to add waste log", zap.String("trader_id", traderID), zap.Error(err))
		return nil, err
	}
	return log, nil
}

func (s *Service) ListEmissions(ctx context.Context, traderID string) ([]*domain.EmissionLog, error) {
	return s.repo.ListEmissions(ctx, traderID, Range{})
}

func (s *Service) ListWaste(ctx context.Context, traderID string) ([]*domain.WasteLog, error) {
	return s.repo.ListWaste(ctx, traderID, Range{})
}

// TraderSummary loads the three ledgers concurrently and joins them by day.
// A zero range covers the last DefaultSummaryWindow.
func (s *Service) TraderSummary(ctx context.Context, traderID string, r Range) (TraderSummary, error) {
	if r.To.IsZero() {
		r.To = s.now().UTC()
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-DefaultSummaryWindow)
	}
	if !r.From.Before(r.To) {
		return TraderSummary{}, ErrInvalidRange
	}

	var (
		emissions []*domain.EmissionLog
		waste     []*domain.WasteLog
		sales     []*domain.SaleRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emissions, err = s.repo.ListEmissions(gctx, traderID, r)
		return err
	})
	g.Go(func() error {
		var err error
		waste, err = s.repo.ListWaste(gctx, traderID, r)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, traderID, r)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("failed to load trader summary", zap.String("trader_id", traderID), zap.Error(err))
		return TraderSummary{}, err
	}

	return Summarize(traderID, r, emissions, waste, sales), nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
