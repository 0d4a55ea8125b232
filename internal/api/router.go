package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/auth"
)

// RouterConfig holds everything the HTTP routes depend on.
type RouterConfig struct {
	DB          Pinger
	Users       auth.UserQueries
	Sessions    auth.SessionStore
	Throttle    *auth.LoginThrottle
	FlashSigner *auth.FlashSigner
	Subscriber  Subscriber
	Publisher   Publisher
	SessionTTL  time.Duration
	Log         zerolog.Logger
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))
	r.Use(MetricsMiddleware)

	flashes := NewFlashes(cfg.FlashSigner, cfg.Log)
	login := LoginConfig{
		Users:      cfg.Users,
		Sessions:   cfg.Sessions,
		Throttle:   cfg.Throttle,
		Flashes:    flashes,
		SessionTTL: cfg.SessionTTL,
		Log:        cfg.Log,
	}
	admin := AdminConfig{
		Users:     cfg.Users,
		Publisher: cfg.Publisher,
		Flashes:   flashes,
		Log:       cfg.Log,
	}

	// Health endpoints
	r.Get("/health_check", HealthCheckHandler())
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(cfg.DB))
	r.Handle("/metrics", promhttp.Handler())

	// Public subscription flow
	r.Post("/subscriptions", SubscribeHandler(cfg.Subscriber, cfg.Log))
	r.Get("/subscriptions/confirm", ConfirmHandler(cfg.Subscriber, cfg.Log))

	r.Get("/login", LoginFormHandler(login))
	r.Post("/login", LoginHandler(login))

	// Admin area (session required)
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireOperator(cfg.Sessions, cfg.Log))

		r.Get("/dashboard", DashboardHandler(admin))
		r.Get("/newsletters", NewsletterFormHandler(admin))
		r.Post("/newsletters", PublishHandler(admin))
		r.Get("/password", PasswordFormHandler(admin))
		r.Post("/password", ChangePasswordHandler(admin))
		r.Post("/logout", LogoutHandler(login))
	})

	return r
}
