package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenlist/authgate/internal/handlers"
	"github.com/lumenlist/authgate/internal/middleware"
)

// MountPoint is the gateway's browser-facing prefix; everything under it is
// classified and forwarded by the gateway handler.
const MountPoint = "/api/auth"

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, gateway *handlers.Gateway, rateLimit middleware.RateLimitConfig) {
	router.Route(MountPoint, func(r chi.Router) {
		// Coarse per-IP limit over the whole mount; the loop guard applies
		// the per-path budgets behind it.
		r.Use(middleware.RateLimitByIP(rateLimit))
		r.Handle("/*", gateway)
	})

	router.Handle("/metrics", promhttp.Handler())
}
