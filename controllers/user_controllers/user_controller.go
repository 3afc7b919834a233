package user_controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/utils"
	"github.com/joy095/academy/utils/jwt_parse"
)

// AuthBackend is the part of the backend that issues tokens.
type AuthBackend interface {
	Login(ctx context.Context, req clients.LoginRequest) (*clients.AuthResponse, error)
	Signup(ctx context.Context, req clients.SignupRequest) (*clients.AuthResponse, error)
	CompleteOnboarding(ctx context.Context, sess *session_models.Session, req clients.OnboardingRequest) (*clients.AuthResponse, error)
}

// UserController handles login, signup, onboarding and logout for the browser session.
type UserController struct {
	Backend  AuthBackend
	Sessions *session_models.Manager
}

// NewUserController creates a new UserController
func NewUserController(backend AuthBackend, sessions *session_models.Manager) *UserController {
	return &UserController{Backend: backend, Sessions: sessions}
}

// Me reports who the session belongs to.
func (uc *UserController) Me(c *gin.Context) {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": sess.HasToken(time.Now()),
		"role":          sess.Role,
		"hasBooking":    sess.HasActiveBooking(),
		"flowState":     sess.FlowState,
	})
}

// LoginPage returns where the user will land after signing in.
func (uc *UserController) LoginPage(c *gin.Context) {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	next := c.Query("next")
	if next == "" {
		next = sess.ReturnTo
	}
	c.JSON(http.StatusOK, gin.H{"next": utils.SafeReturnPath(next)})
}

// Login exchanges credentials for a backend token and stores it in the session.
func (uc *UserController) Login(c *gin.Context) {
	logger.InfoLogger.Info("Login function called")

	var req clients.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := uc.Backend.Login(c.Request.Context(), req)
	if err != nil {
		logger.WarnLogger.Warnf("Login failed for %s: %v", req.Email, err)
		utils.RespondError(c, err)
		return
	}

	uc.signIn(c, resp, "/")
}

// Signup registers a new account and signs it in; onboarding usually follows.
func (uc *UserController) Signup(c *gin.Context) {
	logger.InfoLogger.Info("Signup function called")

	var req clients.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := uc.Backend.Signup(c.Request.Context(), req)
	if err != nil {
		logger.WarnLogger.Warnf("Signup failed for %s: %v", req.Email, err)
		utils.RespondError(c, err)
		return
	}
	if resp.Token != "" {
		resp.OnboardingRequired = true
	}

	uc.signIn(c, resp, "/onboarding")
}

// CompleteOnboarding submits the player profile. The backend may reissue the token.
func (uc *UserController) CompleteOnboarding(c *gin.Context) {
	logger.InfoLogger.Info("CompleteOnboarding function called")

	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req clients.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := uc.Backend.CompleteOnboarding(c.Request.Context(), sess, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if resp.Token == "" {
		resp.Token, resp.Role = sess.Token, sess.Role
	}
	resp.OnboardingRequired = false

	uc.signIn(c, resp, "/")
}

// Logout drops credentials and any booking in progress, keeping the session id.
func (uc *UserController) Logout(c *gin.Context) {
	sessionID := c.GetString(utils.SessionIDKey)
	ctx := c.Request.Context()

	if err := uc.Sessions.ClearCredentials(ctx, sessionID); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := uc.Sessions.ClearBooking(ctx, sessionID); err != nil {
		utils.RespondError(c, err)
		return
	}

	logger.InfoLogger.Infof("Session %s logged out", sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully", "redirect": "/login"})
}

// signIn stores the token, reads role and expiry from it, and answers with the
// remembered return path (or fallback).
func (uc *UserController) signIn(c *gin.Context, resp *clients.AuthResponse, fallback string) {
	if resp.Token == "" {
		logger.ErrorLogger.Error("Backend accepted credentials but returned no token")
		utils.RespondError(c, clients.ErrNetwork)
		return
	}

	claims, err := jwt_parse.ParseUpstreamToken(resp.Token)
	if err != nil {
		logger.WarnLogger.Warnf("Could not read access token claims: %v", err)
	}
	role := resp.Role
	if role == "" {
		role = claims.Role
	}

	var next string
	sess, err := uc.Sessions.Update(c.Request.Context(), c.GetString(utils.SessionIDKey), func(s *session_models.Session) error {
		s.SetCredentials(resp.Token, role, claims.ExpiresAt)
		next = s.ReturnTo
		s.ReturnTo = ""
		return nil
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if q := c.Query("next"); q != "" {
		next = q
	}
	redirect := utils.SafeReturnPath(next)
	if redirect == "/" {
		redirect = fallback
	}
	if resp.OnboardingRequired {
		redirect = "/onboarding"
	}

	logger.InfoLogger.Infof("Session %s signed in with role %q", sess.ID, sess.Role)
	c.JSON(http.StatusOK, gin.H{
		"role":     sess.Role,
		"user":     resp.User,
		"redirect": redirect,
	})
}
