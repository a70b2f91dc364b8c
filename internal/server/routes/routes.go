package routes

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/osa911/proxydesk/internal/api/middleware"
)

// Setup configures all route groups
func Setup(router *gin.Engine, h *Handlers, m *Middleware) {
	// Console and probes (not rate limited)
	SetupUIRoutes(router, h.UI)
	SetupHealthRoutes(router, h.Health, m)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(m.RateLimit))

	SetupProxyRoutes(api, h.Proxy, h.Nginx)
	SetupBackupRoutes(api, h.Backup)
	SetupSystemRoutes(api, h.System)

	m.Logger.Info("All routes have been set up successfully")
}

// SetupGlobalMiddleware configures middleware that applies to all routes
func SetupGlobalMiddleware(router *gin.Engine, m *Middleware) {
	router.Use(middleware.Recovery(m.Logger))
	router.Use(middleware.RequestID())
	if m.Tracing {
		router.Use(otelgin.Middleware(m.ServiceName))
	}
	if m.Metrics != nil {
		router.Use(middleware.Metrics(m.Metrics))
	}
	router.Use(middleware.RequestLogger(m.Logger))
	router.Use(middleware.SecurityHeaders())
}
