package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/guard"
	"github.com/joy095/academy/middlewares/auth"
)

func RegisterBookingRoutes(router *gin.Engine, deps Dependencies) {
	bc := deps.Bookings

	// Slot selection is open to guests.
	router.GET("/booking", bc.BookingPage)
	router.POST("/booking/draft", bc.SelectSlot)
	router.DELETE("/booking/draft", bc.CancelDraft)
	router.POST("/booking/confirm", auth.RequireActiveBooking(), deps.Limits.CombinedRateLimiter("booking-confirm", "5-1m", "20-60m"), bc.ConfirmDraft)

	payment := router.Group("/payment")
	payment.Use(auth.RequirePaymentAccess(deps.Sessions))
	{
		payment.GET("", bc.PaymentPage)
		payment.GET("/countdown", bc.PaymentCountdown)
		payment.POST("/verify", deps.Limits.NewRateLimiter("10-1m", "payment-verify"), bc.VerifyPayment)
	}

	confirmation := router.Group("/booking/confirmation/:id")
	{
		confirmation.GET("", bc.ConfirmationPage)
		confirmation.GET("/status", deps.Limits.NewRateLimiter("60-1m", "booking-status"), bc.ConfirmationStatus)
		confirmation.GET("/ws", bc.ConfirmationStream)
	}

	protected := router.Group("/")
	protected.Use(auth.RequireSession(deps.Sessions, guard.AuthenticatedPage))
	{
		protected.GET("/my-bookings", bc.MyBookings)
	}
}
