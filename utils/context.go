// academy/utils/context.go
package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/session_models"
)

const (
	SessionKey   = "session"
	SessionIDKey = "session_id"
)

// SetSession stores the loaded session and its id in the Gin context.
func SetSession(c *gin.Context, s *session_models.Session) {
	c.Set(SessionKey, s)
	c.Set(SessionIDKey, s.ID)
}

// GetSessionFromContext returns the session put there by the session middleware.
func GetSessionFromContext(c *gin.Context) (*session_models.Session, error) {
	v, exists := c.Get(SessionKey)
	if !exists {
		logger.ErrorLogger.Error("Session not found in context.")
		return nil, ErrSessionNotInContext
	}

	s, ok := v.(*session_models.Session)
	if !ok || s == nil {
		logger.ErrorLogger.Errorf("Session in context has unexpected type %T", v)
		return nil, fmt.Errorf("internal server error: invalid session in context")
	}
	return s, nil
}
