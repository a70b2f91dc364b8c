package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/dto/common"
	"github.com/osa911/proxydesk/internal/utils"
	"github.com/osa911/proxydesk/internal/version"
)

// DirChecker reports whether the fragment directory is usable.
type DirChecker interface {
	CheckDir() error
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type HealthHandler struct {
	store DirChecker
}

func NewHealthHandler(store DirChecker) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check answers 200 while the fragment directory is reachable. It does not
// run nginx, so it is cheap enough for frequent polling.
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.store.CheckDir(); err != nil {
		utils.HandleAPIError(c, err, http.StatusServiceUnavailable, common.ErrCodeInternalServer, "Fragment directory unavailable", nil)
		return
	}

	utils.HandleSuccess(c, HealthResponse{
		Status:  "ok",
		Version: version.Version,
	})
}
