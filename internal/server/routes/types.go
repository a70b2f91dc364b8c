package routes

import (
	"github.com/osa911/proxydesk/internal/api/handlers"
	"github.com/osa911/proxydesk/internal/api/middleware"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
)

// Handlers contains all the route handlers
type Handlers struct {
	Health *handlers.HealthHandler
	Proxy  *handlers.ProxyHandler
	Nginx  *handlers.NginxHandler
	Backup *handlers.BackupHandler
	System *handlers.SystemHandler
	UI     *handlers.UIHandler
}

// Middleware contains the settings for the global and API middleware
type Middleware struct {
	Logger    *logging.Logger
	Metrics   *metrics.Collector
	RateLimit middleware.RateLimitConfig
	// Tracing enables otelgin spans; the tracer provider is global.
	Tracing     bool
	ServiceName string
}
