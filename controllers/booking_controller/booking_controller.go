package booking_controller

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/controllers/booking_flow_controller"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/booking_models"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/utils"
	"golang.org/x/sync/errgroup"
)

// BookingController serves the booking, payment and confirmation pages.
type BookingController struct {
	Flow     *booking_flow_controller.BookingFlowService
	Backend  *clients.Backend
	Sessions *session_models.Manager
	Poller   *booking_flow_controller.Poller
	upgrader websocket.Upgrader
}

// NewBookingController creates a new instance of BookingController.
func NewBookingController(flow *booking_flow_controller.BookingFlowService, backend *clients.Backend, poller *booking_flow_controller.Poller, allowedOrigins []string) *BookingController {
	return &BookingController{
		Flow:     flow,
		Backend:  backend,
		Sessions: flow.Sessions,
		Poller:   poller,
		upgrader: newUpgrader(allowedOrigins),
	}
}

type ConfirmDraftRequest struct {
	Guest *booking_models.GuestContact `json:"guest"`
}

// respond maps booking-flow errors, then falls back to the shared mapping.
func respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking_flow_controller.ErrNoActiveBooking):
		utils.Redirect(c, http.StatusConflict, "/booking")
	case errors.Is(err, booking_flow_controller.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"code": "INVALID_STEP", "error": err.Error()})
	case errors.Is(err, booking_flow_controller.ErrHoldExpired):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"code": "HOLD_EXPIRED", "error": booking_flow_controller.ErrHoldExpired.Error(), "redirect": "/booking"})
	case errors.Is(err, booking_flow_controller.ErrHoldCancelled):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"code": "HOLD_CANCELLED", "error": booking_flow_controller.ErrHoldCancelled.Error(), "redirect": "/booking"})
	case errors.Is(err, booking_flow_controller.ErrHoldSettled):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"code": "ALREADY_PAID", "error": err.Error(), "redirect": "/my-bookings"})
	case errors.Is(err, session_models.ErrSessionNotFound):
		utils.Redirect(c, http.StatusUnauthorized, "/")
	default:
		utils.RespondError(c, err)
	}
}

func confirmationURL(bookingID string) string {
	return "/booking/confirmation/" + url.PathEscape(bookingID)
}

// BookingPage is the slot-selection view: public settings, availability for the chosen
// date and whatever the session already holds.
func (bc *BookingController) BookingPage(c *gin.Context) {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		respond(c, err)
		return
	}

	query := url.Values{}
	if date := c.Query("date"); date != "" {
		query.Set("date", date)
	}
	if resource := c.Query("resourceId"); resource != "" {
		query.Set("resourceId", resource)
	}

	var settings, slots any
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		raw, err := bc.Backend.PublicGet(ctx, "/settings", nil)
		settings = raw
		return err
	})
	g.Go(func() error {
		if len(query) == 0 {
			return nil
		}
		raw, err := bc.Backend.PublicGet(ctx, "/slots", query)
		slots = raw
		return err
	})
	if err := g.Wait(); err != nil {
		respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":        settings,
		"slots":           slots,
		"draft":           sess.Draft,
		"flowState":       sess.FlowState,
		"activeBookingId": sess.ActiveBookingID,
		"authenticated":   sess.Token != "",
	})
}

// SelectSlot stores the chosen date, resource and slot as the session's draft.
func (bc *BookingController) SelectSlot(c *gin.Context) {
	var draft booking_models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		utils.BindError(c, err)
		return
	}

	sess, err := bc.Flow.SelectSlot(c.Request.Context(), c.GetString(utils.SessionIDKey), draft)
	if err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": sess.Draft, "flowState": sess.FlowState})
}

// CancelDraft drops a draft that never reached the backend.
func (bc *BookingController) CancelDraft(c *gin.Context) {
	if err := bc.Flow.CancelDraft(c.Request.Context(), c.GetString(utils.SessionIDKey)); err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flowState": booking_models.FlowSelecting})
}

// ConfirmDraft creates the backend hold. Guests send their contact details in the body.
func (bc *BookingController) ConfirmDraft(c *gin.Context) {
	var req ConfirmDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BindError(c, err)
			return
		}
	}

	hold, err := bc.Flow.ConfirmDraft(c.Request.Context(), c.GetString(utils.SessionIDKey), req.Guest)
	if err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bookingId": hold.ID, "hold": hold, "redirect": "/payment"})
}

// PaymentPage opens the payment window for the session's active hold.
func (bc *BookingController) PaymentPage(c *gin.Context) {
	page, err := bc.Flow.OpenPayment(c.Request.Context(), c.GetString(utils.SessionIDKey))
	if err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// VerifyPayment receives the checkout widget's success callback.
func (bc *BookingController) VerifyPayment(c *gin.Context) {
	var result booking_models.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		utils.BindError(c, err)
		return
	}

	bookingID, err := bc.Flow.VerifyPayment(c.Request.Context(), c.GetString(utils.SessionIDKey), result)
	if errors.Is(err, booking_flow_controller.ErrVerificationFailed) {
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"code":      "VERIFICATION_FAILED",
			"error":     err.Error(),
			"bookingId": bookingID,
			"paymentId": result.PaymentID,
		})
		return
	}
	if err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": bookingID, "redirect": confirmationURL(bookingID)})
}

// PaymentCountdown pushes one tick per second until the hold expires or the socket closes.
// Expiry clears the session's booking state.
func (bc *BookingController) PaymentCountdown(c *gin.Context) {
	sessionID := c.GetString(utils.SessionIDKey)
	sess, err := bc.Sessions.Load(c.Request.Context(), sessionID)
	if err != nil {
		respond(c, err)
		return
	}
	if sess.ActiveBookingID == "" {
		respond(c, booking_flow_controller.ErrNoActiveBooking)
		return
	}
	hold, err := bc.Backend.GetBooking(c.Request.Context(), sess, sess.ActiveBookingID)
	if err != nil {
		respond(c, err)
		return
	}

	conn, err := bc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorLogger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	st := newStream(context.WithoutCancel(c.Request.Context()), conn)
	defer st.close()

	// Stop when the booking is settled or abandoned elsewhere.
	unsubscribe := bc.Sessions.Subscribe(sessionID, func(ev session_models.Event) {
		if ev.Kind == session_models.EventDestroyed || ev.Kind == session_models.EventBookingCleared ||
			ev.Session == nil || ev.Session.ActiveBookingID != hold.ID {
			st.cancel()
		}
	})
	defer unsubscribe()

	cd := booking_flow_controller.NewCountdown(hold.ExpiresAt)
	err = cd.Run(st.ctx, func(tick booking_flow_controller.CountdownTick) error {
		return st.send(StreamEvent{Type: "tick", Data: tick})
	})
	if err != nil {
		return
	}

	if err := bc.Flow.ExpireHold(context.WithoutCancel(st.ctx), sessionID, hold.ID); err != nil {
		logger.ErrorLogger.Errorf("Failed to expire hold %s: %v", hold.ID, err)
	}
	_ = st.send(StreamEvent{Type: "expired", Data: gin.H{"message": booking_flow_controller.ErrHoldExpired.Error(), "redirect": "/booking"}})
}

// ConfirmationPage renders the confirmation view shell for a booking id.
func (bc *BookingController) ConfirmationPage(c *gin.Context) {
	bookingID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"bookingId":    bookingID,
		"statusUrl":    confirmationURL(bookingID) + "/status",
		"streamUrl":    confirmationURL(bookingID) + "/ws",
		"pollInterval": bc.Poller.Interval.Milliseconds(),
		"maxAttempts":  bc.Poller.MaxAttempts,
		"message":      booking_flow_controller.MsgPending,
	})
}

// ConfirmationStatus performs one poll attempt. The browser passes ?attempt=n; once n
// reaches the attempt cap a still-pending booking reports "taking longer than expected".
// The endpoint stays callable after that, so a later "check again" works.
func (bc *BookingController) ConfirmationStatus(c *gin.Context) {
	bookingID := c.Param("id")
	sessionID := c.GetString(utils.SessionIDKey)

	attempt, err := strconv.Atoi(c.DefaultQuery("attempt", "1"))
	if err != nil || attempt < 1 {
		attempt = 1
	}

	st, err := bc.Flow.PollStatus(sessionID, bookingID)(c.Request.Context())
	if err != nil {
		if errors.Is(err, clients.ErrUnauthorized) {
			respond(c, err)
			return
		}
		logger.WarnLogger.Warnf("Status check for booking %s failed: %v", bookingID, err)
		c.JSON(http.StatusOK, booking_flow_controller.PollResult{
			Attempt: attempt,
			Outcome: booking_flow_controller.PollFailed,
			Message: booking_flow_controller.MsgFailed,
			Done:    true,
		})
		return
	}

	res := booking_flow_controller.Classify(attempt, st.Status)
	if !res.Done && attempt >= bc.Poller.MaxAttempts {
		res.Outcome, res.Message, res.Done = booking_flow_controller.PollTimedOut, booking_flow_controller.MsgTimedOut, true
	}
	if err := bc.Flow.RecordPollResult(c.Request.Context(), sessionID, bookingID, res); err != nil {
		logger.ErrorLogger.Errorf("Failed to record poll result for booking %s: %v", bookingID, err)
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmationStream runs the poll loop server-side and pushes every observation.
// Reopening the socket after a timeout starts a fresh round of attempts.
func (bc *BookingController) ConfirmationStream(c *gin.Context) {
	bookingID := c.Param("id")
	sessionID := c.GetString(utils.SessionIDKey)

	conn, err := bc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorLogger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	st := newStream(context.WithoutCancel(c.Request.Context()), conn)
	defer st.close()

	res := bc.Poller.Run(st.ctx, bc.Flow.PollStatus(sessionID, bookingID), func(r booking_flow_controller.PollResult) {
		if err := st.send(StreamEvent{Type: "status", Data: r}); err != nil {
			st.cancel()
		}
	})
	if !res.Done {
		return
	}
	if err := bc.Flow.RecordPollResult(context.WithoutCancel(st.ctx), sessionID, bookingID, res); err != nil {
		logger.ErrorLogger.Errorf("Failed to record poll result for booking %s: %v", bookingID, err)
	}
}

// MyBookings lists the signed-in user's bookings.
func (bc *BookingController) MyBookings(c *gin.Context) {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		respond(c, err)
		return
	}
	bookings, err := bc.Backend.MyBookings(c.Request.Context(), sess)
	if err != nil {
		respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
