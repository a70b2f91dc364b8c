package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/dto/common"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/utils"
)

// ProxyService is the part of the reconciliation service the proxy
// endpoints drive.
type ProxyService interface {
	List(ctx context.Context) ([]models.Fragment, error)
	Add(ctx context.Context, def models.ProxyDefinition) (models.AddResult, error)
	Delete(ctx context.Context, filename string) (models.DeleteResult, error)
}

// ProxyHandler handles proxy fragment requests
type ProxyHandler struct {
	proxyService ProxyService
}

// NewProxyHandler creates a new proxy handler instance
func NewProxyHandler(proxyService ProxyService) *ProxyHandler {
	return &ProxyHandler{
		proxyService: proxyService,
	}
}

// ListProxies lists every fragment in the fragment directory
func (h *ProxyHandler) ListProxies(c *gin.Context) {
	proxies, err := h.proxyService.List(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleSuccess(c, proxies)
}

// CreateProxy adds a proxy and applies it
func (h *ProxyHandler) CreateProxy(c *gin.Context) {
	var req models.ProxyDefinition
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeValidation, "Invalid request data", nil)
		return
	}

	result, err := h.proxyService.Add(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	logging.GetGlobalLogger().Info("CreateProxy: %s created from %s", result.Filename, utils.GetRealIP(c))
	utils.HandleCreated(c, result)
}

// DeleteProxy removes a proxy by fragment file name
func (h *ProxyHandler) DeleteProxy(c *gin.Context) {
	result, err := h.proxyService.Delete(c.Request.Context(), c.Param("filename"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	logging.GetGlobalLogger().Info("DeleteProxy: %s deleted from %s", result.Filename, utils.GetRealIP(c))
	utils.HandleSuccess(c, result)
}
