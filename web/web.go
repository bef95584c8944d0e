// Package web provides the HTTP API: the metered product endpoint,
// usage and tier read endpoints, billing session endpoints, and the
// billing webhook receiver.
package web

import (
	"net/http"

	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/app"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// AuthConfig controls how the principal and tier are extracted from a
// request.
type AuthConfig struct {
	Mode            string // "jwt" or "header"
	JWTSecret       string
	PrincipalHeader string
	TierHeader      string
	EmailHeader     string
}

// Handler provides the HTTP endpoints.
type Handler struct {
	meter    *app.MeterService
	limiter  *app.RateLimitService
	billing  *app.BillingService
	sync     *app.EntitlementSyncService
	payments ports.PaymentProvider
	clock    ports.Clock
	idgen    ports.IDGenerator
	auth     AuthConfig
	cors     []string
	logger   zerolog.Logger
	metrics  *metrics.Collector
	registry *prometheus.Registry // nil disables /metrics
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Meter    *app.MeterService
	Limiter  *app.RateLimitService
	Billing  *app.BillingService
	Sync     *app.EntitlementSyncService
	Payments ports.PaymentProvider
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Auth     AuthConfig
	CORS     []string
	Logger   zerolog.Logger
	Metrics  *metrics.Collector   // optional
	Registry *prometheus.Registry // optional
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		meter:    deps.Meter,
		limiter:  deps.Limiter,
		billing:  deps.Billing,
		sync:     deps.Sync,
		payments: deps.Payments,
		clock:    deps.Clock,
		idgen:    deps.IDGen,
		auth:     deps.Auth,
		cors:     deps.CORS,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		registry: deps.Registry,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(h.requestID)
	r.Use(h.securityHeaders)
	r.Use(h.corsMiddleware)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.Health)
	if h.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	// Webhook endpoints authenticate by signature, not by principal.
	r.Post("/webhooks/billing", h.BillingWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/proxy", h.Proxy)
		r.Get("/usage", h.Usage)
		r.Get("/tiers", h.Tiers)
		r.Post("/checkout", h.Checkout)
		r.Post("/portal", h.Portal)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Router().ServeHTTP(w, r)
}
