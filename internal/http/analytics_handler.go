package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/healthymarket/healthy-market/internal/analytics"
	"github.com/healthymarket/healthy-market/internal/domain"
	"go.uber.org/zap"
)

type AnalyticsService interface {
	AddEmission(ctx context.Context, traderID string, in analytics.EmissionInput) (*domain.EmissionLog, error)
	AddWaste(ctx context.Context, traderID string, in analytics.WasteInput) (*domain.WasteLog, error)
	ListEmissions(ctx context.Context, traderID string) ([]*domain.EmissionLog, error)
	ListWaste(ctx context.Context, traderID string) ([]*domain.WasteLog, error)
	TraderSummary(ctx context.Context, traderID string, r analytics.Range) (analytics.TraderSummary, error)
}

type AnalyticsHandler struct {
	analytics AnalyticsService
	timeout   time.Duration
	maxBody   int64
	log       *zap.Logger
}

func NewAnalyticsHandler(svc AnalyticsService, timeout time.Duration, maxBody int64, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: svc,
		timeout:   timeout,
		maxBody:   maxBody,
		log:       log,
	}
}

type EmissionRequestDTO struct {
	ProductID      string     `json:"productId"`
	ActivityType   string     `json:"activityType"`
	CarbonEmission float64    `json:"carbonEmission"`
	Notes          string     `json:"notes"`
	Date           *time.Time `json:"date"`
}

type WasteRequestDTO struct {
	WasteType string     `json:"wasteType"`
	Quantity  float64    `json:"quantity"`
	Notes     string     `json:"notes"`
	Date      *time.Time `json:"date"`
}

// POST /api/emissions
func (h *AnalyticsHandler) AddEmission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req EmissionRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	log, err := h.analytics.AddEmission(ctx, id.UserID, analytics.EmissionInput{
		ProductID:      req.ProductID,
		ActivityType:   domain.ActivityType(req.ActivityType),
		CarbonEmission: req.CarbonEmission,
		Notes:          req.Notes,
		Date:           derefTime(req.Date),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, log)
}

// GET /api/emissions/mine
func (h *AnalyticsHandler) MyEmissions(w http.ResponseWriter, r *http.Request) {
	h.listEmissions(w, r, true)
}

// GET /api/emissions (admin)
func (h *AnalyticsHandler) AllEmissions(w http.ResponseWriter, r *http.Request) {
	h.listEmissions(w, r, false)
}

func (h *AnalyticsHandler) listEmissions(w http.ResponseWriter, r *http.Request, mine bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	traderID, ok := h.scope(w, r, mine)
	if !ok {
		return
	}
	logs, err := h.analytics.ListEmissions(ctx, traderID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// POST /api/waste
func (h *AnalyticsHandler) AddWaste(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req WasteRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	log, err := h.analytics.AddWaste(ctx, id.UserID, analytics.WasteInput{
		WasteType: domain.WasteType(req.WasteType),
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		Date:      derefTime(req.Date),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, log)
}

// GET /api/waste/mine
func (h *AnalyticsHandler) MyWaste(w http.ResponseWriter, r *http.Request) {
	h.listWaste(w, r, true)
}

// GET /api/waste (admin)
func (h *AnalyticsHandler) AllWaste(w http.ResponseWriter, r *http.Request) {
	h.listWaste(w, r, false)
}

func (h *AnalyticsHandler) listWaste(w http.ResponseWriter, r *http.Request, mine bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	traderID, ok := h.scope(w, r, mine)
	if !ok {
		return
	}
	logs, err := h.analytics.ListWaste(ctx, traderID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// GET /api/analytics/traders/{traderId}/summary?from=&to=
// Dates are YYYY-MM-DD (to is inclusive) or RFC 3339 instants.
func (h *AnalyticsHandler) TraderSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	traderID := chi.URLParam(r, "traderId")
	if traderID == "me" {
		traderID = id.UserID
	}
	if id.Role != RoleAdmin && traderID != id.UserID {
		respondError(w, http.StatusForbidden, "permission_denied", "traders may only view their own summary")
		return
	}

	var rng analytics.Range
	var err error
	if rng.From, err = parseBound(r.URL.Query().Get("from"), false); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid date", Code: "validation_error", Details: "from"})
		return
	}
	if rng.To, err = parseBound(r.URL.Query().Get("to"), true); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid date", Code: "validation_error", Details: "to"})
		return
	}

	summary, err := h.analytics.TraderSummary(ctx, traderID, rng)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// scope returns the trader filter for a list call. Admin listings are unfiltered.
func (h *AnalyticsHandler) scope(w http.ResponseWriter, r *http.Request, mine bool) (string, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false
	}
	if mine {
		return id.UserID, true
	}
	return "", true
}

func parseBound(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.Add(24 * time.Hour)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
