package inventory

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ShopLedger/internal/auth"
	"ShopLedger/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// Tokens authenticates callers on every mutation route. The ledger's
	// own owner check decides which of them may use the gated operations.
	Tokens *auth.TokenMaker

	// Auth, when set, is mounted at /auth (register/login/whoami).
	Auth http.Handler

	CORSOrigins []string

	// BuyLimiter, when set, throttles the public buy/refund routes per IP.
	BuyLimiter *kit.IPRateLimiter
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)
	r.Get("/status", s.status)

	if deps.Auth != nil {
		r.Mount("/auth", deps.Auth)
	}

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
	r.Get("/products/{id}/buyers", s.buyers)
	r.Get("/policy/refund-window", s.getRefundWindow)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(deps.Tokens))

		pr.Post("/products", s.add)
		pr.Put("/products/{id}/quantity", s.updateQuantity)
		pr.Put("/policy/refund-window", s.setRefundWindow)
		pr.Post("/owner/transfer", s.transferOwner)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(deps.Tokens))
		if deps.BuyLimiter != nil {
			pr.Use(deps.BuyLimiter.Middleware)
		}

		pr.Post("/products/{id}/buy", s.buy)
		pr.Post("/products/{id}/refund", s.refund)
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}
