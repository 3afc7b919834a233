package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/guard"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/utils"
)

// CookieOptions controls the session cookie. Only the session id is ever sent to the browser.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// SessionMiddleware loads the browser session from the cookie, creating one on the
// first visit, and puts it in the Gin context. A token past its exp claim is dropped.
func SessionMiddleware(sessions *session_models.Manager, cookie CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *session_models.Session
		if id, err := c.Cookie(cookie.Name); err == nil && id != "" {
			sess, err = sessions.Load(ctx, id)
			if err != nil && !errors.Is(err, session_models.ErrSessionNotFound) {
				logger.ErrorLogger.Errorf("Failed to load session %s: %v", id, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "SESSION_ERROR", "error": "Unable to load your session."})
				return
			}
		}

		if sess == nil {
			var err error
			sess, err = sessions.Create(ctx)
			if err != nil {
				logger.ErrorLogger.Errorf("Failed to create session: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "SESSION_ERROR", "error": "Unable to start a session."})
				return
			}
			logger.InfoLogger.Debugf("Started session %s", sess.ID)
		}

		if sess.Token != "" && !sess.HasToken(time.Now()) {
			logger.InfoLogger.Infof("Token expired for session %s, clearing credentials", sess.ID)
			if err := sessions.ClearCredentials(ctx, sess.ID); err != nil {
				logger.ErrorLogger.Errorf("Failed to clear expired credentials for session %s: %v", sess.ID, err)
			}
			sess.ClearCredentials()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, sess.ID, int(cookie.MaxAge.Seconds()), "/", "", cookie.Secure, true)
		utils.SetSession(c, sess)
		c.Next()
	}
}

// RequireSession applies the page guard. A missing token remembers the requested
// path and redirects to login; a wrong role silently redirects home.
func RequireSession(sessions *session_models.Manager, req guard.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checkGuard(c, sessions, req) {
			c.Next()
		}
	}
}

// RequireActiveBooking sends sessions without a draft or hold back to slot selection.
func RequireActiveBooking() gin.HandlerFunc {
	return func(c *gin.Context) {
		if checkActiveBooking(c) {
			c.Next()
		}
	}
}

// RequirePaymentAccess sends sessions with no draft or hold back to slot selection,
// lets a guest with a hold of their own through, and asks everyone else to sign in.
func RequirePaymentAccess(sessions *session_models.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkActiveBooking(c) {
			return
		}
		sess, err := utils.GetSessionFromContext(c)
		if err == nil && sess.GuestBooking && sess.ActiveBookingID != "" {
			c.Next()
			return
		}
		if checkGuard(c, sessions, guard.AuthenticatedPage) {
			c.Next()
		}
	}
}

func checkGuard(c *gin.Context, sessions *session_models.Manager, req guard.Requirement) bool {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "SESSION_ERROR", "error": err.Error()})
		return false
	}

	switch guard.Decide(guard.Identity{HasToken: sess.HasToken(time.Now()), Role: sess.Role}, req) {
	case guard.Render:
		return true
	case guard.RedirectLogin:
		returnTo := utils.SafeReturnPath(c.Request.URL.RequestURI())
		if _, err := sessions.Update(c.Request.Context(), sess.ID, func(s *session_models.Session) error {
			s.ReturnTo = returnTo
			return nil
		}); err != nil {
			logger.WarnLogger.Warnf("Failed to remember return path for session %s: %v", sess.ID, err)
		}
		utils.Redirect(c, http.StatusUnauthorized, utils.LoginRedirect(returnTo))
	case guard.RedirectHome:
		logger.WarnLogger.Warnf("Session %s with role %q denied %s", sess.ID, sess.Role, c.Request.URL.Path)
		utils.Redirect(c, http.StatusForbidden, "/")
	}
	return false
}

func checkActiveBooking(c *gin.Context) bool {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil || !sess.HasActiveBooking() {
		utils.Redirect(c, http.StatusConflict, "/booking")
		return false
	}
	return true
}
