package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/guard"
	"github.com/joy095/academy/middlewares/auth"
)

// AdminRole is the backend role allowed into the console.
const AdminRole = "ADMIN"

func RegisterAdminRoutes(router *gin.Engine, deps Dependencies) {
	ac := deps.Admin

	admin := router.Group("/admin")
	admin.Use(auth.RequireSession(deps.Sessions, guard.RolesPage(AdminRole)))
	{
		admin.GET("/moderation/words", ac.ListWords)
		admin.POST("/moderation/words", ac.AddWord)
		admin.DELETE("/moderation/words/:word", ac.RemoveWord)
		admin.POST("/moderation/check", ac.CheckText)

		admin.POST("/media", deps.Limits.NewRateLimiter("30-1m", "admin-media"), ac.UploadMedia)

		admin.GET("/:resource", ac.List)
		admin.POST("/:resource", ac.Create)
		admin.GET("/:resource/:id", ac.Get)
		admin.PUT("/:resource/:id", ac.Update)
		admin.PATCH("/:resource/:id", ac.Update)
		admin.DELETE("/:resource/:id", ac.Delete)
	}
}
