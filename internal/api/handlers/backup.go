package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/utils"
)

// TriggerManual labels snapshots requested through the API.
const TriggerManual = "manual"

// BackupService creates, lists and resolves configuration snapshots.
type BackupService interface {
	CreateBackup(ctx context.Context, trigger string) (models.BackupArtifact, error)
	ListBackups(ctx context.Context) ([]models.BackupArtifact, error)
	BackupPath(name string) (string, error)
}

// BackupHandler handles snapshot requests
type BackupHandler struct {
	backupService BackupService
}

// NewBackupHandler creates a new backup handler instance
func NewBackupHandler(backupService BackupService) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
	}
}

// CreateBackup snapshots the nginx configuration
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	artifact, err := h.backupService.CreateBackup(c.Request.Context(), TriggerManual)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleCreated(c, artifact)
}

// ListBackups lists snapshots, newest first
func (h *BackupHandler) ListBackups(c *gin.Context) {
	artifacts, err := h.backupService.ListBackups(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.HandleSuccess(c, artifacts)
}

// DownloadBackup streams one snapshot as an attachment
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	name := c.Param("name")
	path, err := h.backupService.BackupPath(name)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.FileAttachment(path, name)
}
