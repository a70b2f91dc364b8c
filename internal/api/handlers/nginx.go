package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/utils"
)

// ServerService reports on and reloads the proxy server.
type ServerService interface {
	Status(ctx context.Context) models.RunningState
	Reload(ctx context.Context) (string, error)
}

// ReloadResponse is returned by a successful reload
type ReloadResponse struct {
	Message    string `json:"message"`
	Diagnostic string `json:"diagnostic"`
}

// NginxHandler handles server status and reload requests
type NginxHandler struct {
	serverService ServerService
}

// NewNginxHandler creates a new nginx handler instance
func NewNginxHandler(serverService ServerService) *NginxHandler {
	return &NginxHandler{
		serverService: serverService,
	}
}

// Status reports the aggregated running state. Probe failures are part of
// the payload, so this always answers 200.
func (h *NginxHandler) Status(c *gin.Context) {
	utils.HandleSuccess(c, h.serverService.Status(c.Request.Context()))
}

// Reload tests the configuration and reloads the server
func (h *NginxHandler) Reload(c *gin.Context) {
	diagnostic, err := h.serverService.Reload(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleSuccess(c, ReloadResponse{
		Message:    "Nginx reloaded successfully",
		Diagnostic: diagnostic,
	})
}
