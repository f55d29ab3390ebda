package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/walletsync/internal/transport/httpapi/handler"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger           *logger.Logger
	AllowedOrigins   []string
	DashboardHandler *handler.DashboardHandler
	ContactHandler   *handler.ContactHandler
	KycHandler       *handler.KycHandler
	HealthHandler    *handler.HealthHandler
	MetricsHandler   http.Handler
	JWTMiddleware    func(http.Handler) http.Handler
	RateLimit        func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	rateLimit := cfg.RateLimit
	if rateLimit == nil {
		rateLimit = middleware.RateLimit() // 100 req/s with burst of 20
	}

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(rateLimit)

	// Unauthenticated endpoints
	r.Get("/health", cfg.HealthHandler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.JWTMiddleware)

		r.Get("/dashboard", cfg.DashboardHandler.GetDashboard)
		r.Post("/dashboard/refresh", cfg.DashboardHandler.Refresh)
		r.Get("/dashboard/events", cfg.DashboardHandler.Events)

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", cfg.ContactHandler.ListContacts)
			r.Post("/", cfg.ContactHandler.CreateContact)
			r.Post("/delete", cfg.ContactHandler.DeleteContacts)
			r.Get("/{id}", cfg.ContactHandler.GetContact)
			r.Put("/{id}", cfg.ContactHandler.UpdateContact)
			r.Delete("/{id}", cfg.ContactHandler.DeleteContact)
		})

		r.Route("/kyc", func(r chi.Router) {
			r.Get("/", cfg.KycHandler.ListKyc)
			r.Post("/", cfg.KycHandler.UpsertKyc)
			r.Put("/", cfg.KycHandler.UpdateKycMany)
			r.Delete("/", cfg.KycHandler.ClearKyc)
			r.Put("/{field}", cfg.KycHandler.UpdateKyc)
			r.Delete("/{field}", cfg.KycHandler.DeleteKyc)
		})
	})

	return r
}
