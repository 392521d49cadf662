// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/Bibleyou/RemoveBG-Pro/internal/config"
	"github.com/Bibleyou/RemoveBG-Pro/internal/handler"
	"github.com/Bibleyou/RemoveBG-Pro/internal/middleware"
)

// Handlers groups the handlers the routes dispatch to.
// Dependencies are passed explicitly; there is no DI container.
type Handlers struct {
	Health   *handler.HealthHandler
	Sessions *handler.SessionHandler
	Admin    *handler.AdminHandler
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, h Handlers) {
	// CORS sits on the engine, not the group: preflight OPTIONS requests match
	// no route, and only engine-level middleware runs for those.
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Public endpoints
	r.GET("/healthz", h.Health.Healthz)

	api := r.Group("/api/v1")

	// Session endpoints are anonymous; the limiter keeps one client from
	// burning through the account's credits.
	sessions := api.Group("/sessions")
	sessions.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		sessions.POST("", h.Sessions.Create)
		sessions.GET("/:id", h.Sessions.Get)
		sessions.PUT("/:id/image", h.Sessions.Upload)
		sessions.POST("/:id/process", h.Sessions.Process)
		sessions.GET("/:id/download", h.Sessions.Download)
		sessions.DELETE("/:id", h.Sessions.Delete)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/calls", h.Admin.RecentCalls)
	}
}
