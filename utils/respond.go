package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/booking_models"
)

const genericErrorMessage = "Something went wrong. Please try again."

// RespondError maps validation, auth, backend and network failures onto the JSON error
// shape used by every handler. Callers map their own sentinel errors first.
func RespondError(c *gin.Context, err error) {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, clients.ErrUnauthorized):
		Redirect(c, http.StatusUnauthorized, "/login")
	case errors.Is(err, booking_models.ErrInvalidPhone),
		errors.Is(err, booking_models.ErrInvalidEmail),
		errors.Is(err, booking_models.ErrInvalidDraft):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": err.Error()})
	case errors.As(err, &apiErr) && clients.IsBusinessRejection(err):
		status := http.StatusUnprocessableEntity
		if apiErr.Status == http.StatusConflict || apiErr.Status == http.StatusNotFound {
			status = apiErr.Status
		}
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		c.AbortWithStatusJSON(status, gin.H{"code": codeOr(apiErr.Code, "REJECTED"), "error": msg})
	case errors.Is(err, clients.ErrNetwork), errors.As(err, &apiErr):
		logger.ErrorLogger.Errorf("Upstream failure on %s: %v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"code": "UPSTREAM_ERROR", "error": genericErrorMessage})
	default:
		logger.ErrorLogger.Errorf("Unhandled error on %s: %v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "SERVER_ERROR", "error": genericErrorMessage})
	}
}

// BindError reports a malformed request body.
func BindError(c *gin.Context, err error) {
	logger.WarnLogger.Warnf("Invalid request body on %s: %v", c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": "Invalid request: " + err.Error()})
}

func codeOr(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}
