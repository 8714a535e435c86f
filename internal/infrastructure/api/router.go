package api

import (
	"net/http"

	"shopify-customer-sync/internal/infrastructure/metrics"
	securitymiddleware "shopify-customer-sync/internal/infrastructure/middleware"
	"shopify-customer-sync/internal/infrastructure/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds the cross-cutting HTTP settings
type RouterConfig struct {
	CORSAllowedOrigins []string
	FrameAncestors     []string
	SwaggerFile        string
}

// NewRouter wires every route of the app
func NewRouter(
	h *Handler,
	auth *session.Authenticator,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	cfg RouterConfig,
) http.Handler {
	if cfg.SwaggerFile == "" {
		cfg.SwaggerFile = "./docs/swagger.json"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)
	r.Use(securitymiddleware.SecurityHeadersMiddleware(cfg.FrameAncestors...))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, cfg.SwaggerFile)
	})

	// OAuth install of the home store
	r.Get("/auth", h.AuthStart)
	r.Get("/auth/callback", h.AuthCallback)

	r.Route("/app", func(r chi.Router) {
		// External store routes use the login cookie only
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/customers", h.Customers)
		r.Get("/products", h.Products)

		// Home store routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", h.Dashboard)
			r.Post("/", h.DashboardAction)
			r.Post("/customers", h.ImportCustomers)
		})
	})

	return r
}
