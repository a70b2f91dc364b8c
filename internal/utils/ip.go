package utils

import (
	"github.com/gin-gonic/gin"
)

// GetRealIP returns the client address for logs. The console does not
// trust forwarding headers, so this is the peer address gin resolved.
func GetRealIP(c *gin.Context) string {
	return c.ClientIP()
}
