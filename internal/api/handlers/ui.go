package handlers

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UIHandler serves the embedded operator console
type UIHandler struct {
	assets fs.FS
	index  []byte
}

// NewUIHandler loads index.html from assets once.
func NewUIHandler(assets fs.FS) (*UIHandler, error) {
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return nil, fmt.Errorf("load console index: %w", err)
	}
	return &UIHandler{assets: assets, index: index}, nil
}

// Index serves the console page
func (h *UIHandler) Index(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.index)
}

// Assets returns the filesystem behind /ui
func (h *UIHandler) Assets() http.FileSystem {
	return http.FS(h.assets)
}
