package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/constants"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/utils"
)

// RequestLogger logs every finished request. The logger decides whether
// request logging is enabled (LOG_REQUESTS).
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		// Process request
		c.Next()

		logger.LogHTTPRequest(
			c.Request.Method,
			path,
			utils.GetRealIP(c),
			c.GetString(constants.ContextKeyRequestID),
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start).String(),
		)
	}
}
