package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/controllers/admin_controller"
	"github.com/joy095/academy/controllers/booking_controller"
	"github.com/joy095/academy/controllers/content_controller"
	"github.com/joy095/academy/controllers/user_controllers"
	middleware "github.com/joy095/academy/middlewares"
	"github.com/joy095/academy/middlewares/auth"
	"github.com/joy095/academy/models/session_models"
)

// Dependencies are the controllers and shared middleware state the routes need.
type Dependencies struct {
	Sessions *session_models.Manager
	Cookie   auth.CookieOptions
	Limits   *middleware.RateLimiters

	Users    *user_controllers.UserController
	Bookings *booking_controller.BookingController
	Content  *content_controller.ContentController
	Admin    *admin_controller.AdminController
}

// Register mounts every route. The session middleware runs first on all of them.
func Register(router *gin.Engine, deps Dependencies) {
	router.Use(auth.SessionMiddleware(deps.Sessions, deps.Cookie))

	RegisterContentRoutes(router, deps)
	RegisterUserRoutes(router, deps)
	RegisterBookingRoutes(router, deps)
	RegisterAdminRoutes(router, deps)
}

func RegisterContentRoutes(router *gin.Engine, deps Dependencies) {
	cc := deps.Content

	router.GET("/", cc.HomePage)
	router.GET("/star-performers", cc.StarPerformers)
	router.GET("/content/:section", cc.Section)
	router.POST("/enquiries", deps.Limits.CombinedRateLimiter("enquiries", "3-1m", "10-60m"), cc.SubmitEnquiry)
}
