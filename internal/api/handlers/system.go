package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/utils"
)

// SystemService reports on the host and the nginx logs.
type SystemService interface {
	SystemInfo(ctx context.Context) (models.SystemInfo, error)
	Logs(ctx context.Context, kind string, lines int) (models.LogTail, error)
}

// SystemHandler handles host overview and log requests
type SystemHandler struct {
	systemService SystemService
}

// NewSystemHandler creates a new system handler instance
func NewSystemHandler(systemService SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// SystemInfo reports the host overview
func (h *SystemHandler) SystemInfo(c *gin.Context) {
	info, err := h.systemService.SystemInfo(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleSuccess(c, info)
}

// Logs returns the tail of the access or error log. An unparsable lines
// parameter falls back to the default count.
func (h *SystemHandler) Logs(c *gin.Context) {
	lines, _ := strconv.Atoi(c.Query("lines"))

	tail, err := h.systemService.Logs(c.Request.Context(), c.Param("type"), lines)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleSuccess(c, tail)
}
