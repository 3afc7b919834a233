package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/guard"
	"github.com/joy095/academy/middlewares/auth"
)

func RegisterUserRoutes(router *gin.Engine, deps Dependencies) {
	uc := deps.Users

	// Public routes
	router.GET("/me", uc.Me)
	router.GET("/login", uc.LoginPage)
	router.POST("/login", deps.Limits.CombinedRateLimiter("login", "10-2m", "30-30m"), uc.Login)
	router.POST("/signup", deps.Limits.CombinedRateLimiter("signup", "5-2m", "20-60m"), uc.Signup)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.RequireSession(deps.Sessions, guard.AuthenticatedPage))
	{
		protected.POST("/onboarding", deps.Limits.NewRateLimiter("10-5m", "onboarding"), uc.CompleteOnboarding)
		protected.POST("/logout", uc.Logout)
	}
}
