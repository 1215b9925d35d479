// Package http is the market's REST surface.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/metrics"
	"github.com/healthymarket/healthy-market/internal/orders"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret          []byte
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	RateLimitPerMinute int
}

type Deps struct {
	Carts     CartService
	Checkout  OrderSubmitter
	Orders    orders.Repository
	Products  catalog.Repository
	Analytics AnalyticsService
	// Health reports whether backing stores are reachable.
	Health  func(ctx context.Context) error
	Metrics *metrics.HTTP
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig, deps Deps, log *zap.Logger) chi.Router {
	cartHandler := NewCartHandler(deps.Carts, cfg.RequestTimeout, cfg.MaxRequestBodySize, log)
	ordersHandler := NewOrdersHandler(deps.Checkout, deps.Orders, cfg.RequestTimeout, cfg.MaxRequestBodySize, log)
	productHandler := NewProductHandler(deps.Products, cfg.RequestTimeout, cfg.MaxRequestBodySize, log)
	analyticsHandler := NewAnalyticsHandler(deps.Analytics, cfg.RequestTimeout, cfg.MaxRequestBodySize, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(Instrument(deps.Metrics))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Health(ctx); err != nil {
				log.Warn("health check failed", zap.Error(err))
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	limiter := NewRateLimiter(cfg.RateLimitPerMinute)
	auth := Authenticate(cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Use(RequireRole(RoleTrader))
				r.Get("/mine", productHandler.MyProducts)
				r.Post("/", productHandler.CreateProduct)
				r.Delete("/{id}", productHandler.DeleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{productId}", cartHandler.UpdateQuantity)
				r.Delete("/items/{productId}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersHandler.SubmitOrder)
				r.Get("/my-orders", ordersHandler.MyOrders)
				r.With(RequireRole(RoleTrader)).Get("/trader", ordersHandler.TraderOrders)
				r.Get("/{orderNumber}", ordersHandler.GetOrder)
				r.With(RequireRole(RoleTrader)).Patch("/{orderNumber}/status", ordersHandler.UpdateStatus)
			})

			r.Route("/emissions", func(r chi.Router) {
				r.With(RequireRole(RoleTrader)).Post("/", analyticsHandler.AddEmission)
				r.With(RequireRole(RoleTrader)).Get("/mine", analyticsHandler.MyEmissions)
				r.With(RequireRole(RoleAdmin)).Get("/", analyticsHandler.AllEmissions)
			})

			r.Route("/waste", func(r chi.Router) {
				r.With(RequireRole(RoleTrader)).Post("/", analyticsHandler.AddWaste)
				r.With(RequireRole(RoleTrader)).Get("/mine", analyticsHandler.MyWaste)
				r.With(RequireRole(RoleAdmin)).Get("/", analyticsHandler.AllWaste)
			})

			r.With(RequireRole(RoleTrader)).Get("/analytics/traders/{traderId}/summary", analyticsHandler.TraderSummary)
		})
	})

	return r
}
