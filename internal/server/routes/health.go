package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/handlers"
)

// SetupHealthRoutes configures health check and metrics endpoints
func SetupHealthRoutes(router *gin.Engine, health *handlers.HealthHandler, m *Middleware) {
	router.GET("/health", health.Check)
	if m.Metrics != nil {
		router.GET("/metrics", gin.WrapH(m.Metrics.Handler()))
	}
}

// SetupUIRoutes serves the embedded console
func SetupUIRoutes(router *gin.Engine, ui *handlers.UIHandler) {
	if ui == nil {
		return
	}
	router.GET("/", ui.Index)
	router.StaticFS("/ui", ui.Assets())
}
