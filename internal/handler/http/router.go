package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelkov/account-service/pkg/health"
	"github.com/avelkov/account-service/pkg/middleware"
)

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Guard          func(http.Handler) http.Handler
	Health         *health.Handler
	Logger         *slog.Logger
	AllowedOrigins []string
	ServiceName    string
}

// NewRouter builds the chi router with the shared middleware chain, the
// operational endpoints and the account API under /api/v1/users.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/users", func(r chi.Router) {
		// Multipart endpoint, no JSON content-type check.
		r.Post("/register", cfg.Auth.Register)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/refreshAccessToken", cfg.Auth.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Guard)
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/me", cfg.Users.Me)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/change-password", cfg.Users.ChangePassword)
				r.Patch("/me", cfg.Users.UpdateAccount)
			})
		})
	})

	return r
}
