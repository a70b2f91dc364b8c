package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/dto/common"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
)

// HandleAPIError writes an error response with an explicit status and code
func HandleAPIError(c *gin.Context, err error, status int, code common.ErrorCode, message string, details interface{}) {
	logging.GetGlobalLogger().LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		GetRealIP(c),
		status,
		message,
		err,
	)
	c.AbortWithStatusJSON(status, common.NewErrorResponse(code, message, details))
}

// HandleServiceError classifies a service error and writes the matching
// response. Configuration test failures carry nginx's diagnostic as
// details so the operator can act on it.
func HandleServiceError(c *gin.Context, err error) {
	var fields models.FieldErrors
	var validationErr *models.ValidationError
	var processErr *models.ProcessError

	// a rejected dry run wins over anything joined to it by a failed rollback
	switch {
	case errors.As(err, &validationErr):
		HandleAPIError(c, err, http.StatusUnprocessableEntity, common.ErrCodeConfigTestFailed,
			"Nginx configuration test failed", validationErr.Diagnostic)
	case errors.As(err, &fields):
		HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeValidation, "Invalid proxy definition", fields)
	case errors.Is(err, models.ErrInvalidArgument):
		HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, models.ErrNotFound):
		HandleAPIError(c, err, http.StatusNotFound, common.ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrConflict):
		HandleAPIError(c, err, http.StatusConflict, common.ErrCodeConflict, err.Error(), nil)
	case errors.As(err, &processErr):
		HandleAPIError(c, err, http.StatusBadGateway, common.ErrCodeExternalProcess,
			"Nginx command failed", processErr.Output)
	default:
		// filesystem and unexpected errors stay opaque in release mode
		var details interface{}
		if gin.Mode() != gin.ReleaseMode {
			details = err.Error()
		}
		HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Internal server error", details)
	}
}
