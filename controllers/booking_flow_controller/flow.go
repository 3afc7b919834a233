package booking_flow_controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/booking_models"
	"github.com/joy095/academy/models/session_models"
)

var (
	ErrInvalidTransition  = errors.New("this step is not available right now")
	ErrNoActiveBooking    = errors.New("no active booking, please select a slot")
	ErrHoldExpired        = errors.New("your booking hold has expired, please select a slot again")
	ErrHoldCancelled      = errors.New("this booking was cancelled, please select a slot again")
	ErrHoldSettled        = errors.New("this booking has already been paid for")
	ErrVerificationFailed = errors.New("we could not verify your payment, please contact support")
)

// transitions lists the states reachable from each state. Going back to slot
// selection (DraftHeld) is always allowed; once a hold exists it just lapses.
var transitions = map[booking_models.FlowState][]booking_models.FlowState{
	booking_models.FlowSelecting: {booking_models.FlowDraftHeld, booking_models.FlowSelecting},
	booking_models.FlowDraftHeld: {
		booking_models.FlowDraftHeld,
		booking_models.FlowSelecting,
		booking_models.FlowAwaitingConfirmation,
	},
	booking_models.FlowAwaitingConfirmation: {
		booking_models.FlowDraftHeld,
		booking_models.FlowPaying,
		booking_models.FlowExpired,
		booking_models.FlowCancelled,
		booking_models.FlowConfirmed,
	},
	booking_models.FlowPaying: {
		booking_models.FlowDraftHeld,
		booking_models.FlowPaying,
		booking_models.FlowPolling,
		booking_models.FlowExpired,
		booking_models.FlowCancelled,
		booking_models.FlowConfirmed,
		booking_models.FlowFailed,
	},
	booking_models.FlowPolling: {
		booking_models.FlowDraftHeld,
		booking_models.FlowConfirmed,
		booking_models.FlowCancelled,
		booking_models.FlowExpired,
		booking_models.FlowFailed,
	},
	booking_models.FlowConfirmed: {booking_models.FlowDraftHeld, booking_models.FlowSelecting},
	booking_models.FlowExpired:   {booking_models.FlowDraftHeld, booking_models.FlowSelecting},
	booking_models.FlowCancelled: {booking_models.FlowDraftHeld, booking_models.FlowSelecting},
	booking_models.FlowFailed:    {booking_models.FlowDraftHeld, booking_models.FlowSelecting},
}

// CanTransition reports whether the flow may move from one state to another.
func CanTransition(from, to booking_models.FlowState) bool {
	if from == "" {
		from = booking_models.FlowSelecting
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(s *session_models.Session, to booking_models.FlowState) error {
	if !CanTransition(s.FlowState, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.FlowState, to)
	}
	s.FlowState = to
	return nil
}

// BookingBackend is the part of the backend the booking flow talks to.
type BookingBackend interface {
	CreateBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error)
	CreateGuestBooking(ctx context.Context, sess *session_models.Session, req booking_models.CreateBookingRequest) (*booking_models.BookingHold, error)
	GetBooking(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingHold, error)
	GetBookingStatus(ctx context.Context, sess *session_models.Session, id string) (*booking_models.BookingStatus, error)
	CreatePaymentOrder(ctx context.Context, sess *session_models.Session, bookingID string) (*booking_models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, sess *session_models.Session, req booking_models.VerifyPaymentRequest) (*booking_models.VerifyPaymentResponse, error)
}

// BookingFlowService drives one session through the booking flow.
type BookingFlowService struct {
	Backend  BookingBackend
	Sessions *session_models.Manager
	Checkout clients.CheckoutClientWrapper
	Now      func() time.Time
}

func NewBookingFlowService(backend BookingBackend, sessions *session_models.Manager, checkout clients.CheckoutClientWrapper) *BookingFlowService {
	return &BookingFlowService{
		Backend:  backend,
		Sessions: sessions,
		Checkout: checkout,
		Now:      time.Now,
	}
}

// PaymentPage is everything the payment view needs.
type PaymentPage struct {
	Hold             *booking_models.BookingHold  `json:"hold"`
	Order            *booking_models.PaymentOrder `json:"order"`
	Checkout         clients.CheckoutOptions      `json:"checkout"`
	RemainingSeconds int                          `json:"remainingSeconds"`
	Countdown        string                       `json:"countdown"`
	Guest            bool                         `json:"guest"`
}

// SelectSlot stores the draft in the session. No network call is made.
func (s *BookingFlowService) SelectSlot(ctx context.Context, sessionID string, draft booking_models.BookingDraft) (*session_models.Session, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		if err := transition(sess, booking_models.FlowDraftHeld); err != nil {
			return err
		}
		d := draft
		sess.Draft = &d
		sess.ActiveBookingID = ""
		sess.GuestBooking = false
		return nil
	})
}

// CancelDraft drops a draft that has not reached the backend yet.
func (s *BookingFlowService) CancelDraft(ctx context.Context, sessionID string) error {
	_, err := s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		if err := transition(sess, booking_models.FlowSelecting); err != nil {
			return err
		}
		sess.ClearBooking()
		return nil
	})
	return err
}

// ConfirmDraft turns the stored draft into a backend hold. Without a token the guest
// variant is used and guest must carry a valid phone. On failure the draft is kept.
func (s *BookingFlowService) ConfirmDraft(ctx context.Context, sessionID string, guest *booking_models.GuestContact) (*booking_models.BookingHold, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Draft == nil {
		return nil, ErrNoActiveBooking
	}
	if !CanTransition(sess.FlowState, booking_models.FlowAwaitingConfirmation) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.FlowState, booking_models.FlowAwaitingConfirmation)
	}

	isGuest := !sess.HasToken(s.Now())
	var hold *booking_models.BookingHold
	if isGuest {
		if guest == nil {
			return nil, booking_models.ErrInvalidPhone
		}
		if err := guest.Validate(); err != nil {
			return nil, err
		}
		hold, err = s.Backend.CreateGuestBooking(ctx, sess, booking_models.NewCreateBookingRequest(*sess.Draft, guest))
	} else {
		hold, err = s.Backend.CreateBooking(ctx, sess, booking_models.NewCreateBookingRequest(*sess.Draft, nil))
	}
	if err != nil {
		logger.WarnLogger.Warnf("Create booking failed for session %s: %v", sessionID, err)
		return nil, err
	}
	if hold.ID == "" {
		return nil, fmt.Errorf("%w: backend returned a hold without an id", clients.ErrNetwork)
	}

	_, err = s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		if err := transition(sess, booking_models.FlowAwaitingConfirmation); err != nil {
			return err
		}
		sess.ActiveBookingID = hold.ID
		sess.GuestBooking = isGuest
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoLogger.Infof("Booking hold %s created for session %s (guest=%t)", hold.ID, sessionID, isGuest)
	return hold, nil
}

// OpenPayment loads the active hold, checks it is still payable and opens a payment order.
func (s *BookingFlowService) OpenPayment(ctx context.Context, sessionID string) (*PaymentPage, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ActiveBookingID == "" {
		return nil, ErrNoActiveBooking
	}
	if !CanTransition(sess.FlowState, booking_models.FlowPaying) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.FlowState, booking_models.FlowPaying)
	}

	hold, err := s.Backend.GetBooking(ctx, sess, sess.ActiveBookingID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	remaining := booking_models.RemainingSeconds(hold.ExpiresAt, now)
	switch hold.EffectiveStatus(now) {
	case booking_models.HoldExpired:
		return nil, s.finish(ctx, sessionID, hold.ID, booking_models.FlowExpired, ErrHoldExpired)
	case booking_models.HoldCancelled:
		return nil, s.finish(ctx, sessionID, hold.ID, booking_models.FlowCancelled, ErrHoldCancelled)
	case booking_models.HoldConfirmed:
		return nil, s.finish(ctx, sessionID, hold.ID, booking_models.FlowConfirmed, ErrHoldSettled)
	}
	if remaining == 0 {
		return nil, s.finish(ctx, sessionID, hold.ID, booking_models.FlowExpired, ErrHoldExpired)
	}

	order, err := s.Backend.CreatePaymentOrder(ctx, sess, hold.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		return transition(sess, booking_models.FlowPaying)
	}); err != nil {
		return nil, err
	}

	return &PaymentPage{
		Hold:             hold,
		Order:            order,
		Checkout:         s.Checkout.CheckoutOptions(order, hold, clients.Prefill{}),
		RemainingSeconds: remaining,
		Countdown:        booking_models.FormatCountdown(remaining),
		Guest:            sess.GuestBooking,
	}, nil
}

// VerifyPayment settles the widget's success callback. On success local booking state is
// cleared and the caller moves to the confirmation page for the returned booking id.
func (s *BookingFlowService) VerifyPayment(ctx context.Context, sessionID string, result booking_models.PaymentResult) (string, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	bookingID := sess.ActiveBookingID
	if bookingID == "" {
		return "", ErrNoActiveBooking
	}
	if sess.FlowState != booking_models.FlowPaying {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.FlowState, booking_models.FlowPolling)
	}

	if s.Checkout.CanVerify() && !s.Checkout.VerifyPaymentSignature(result) {
		logger.ErrorLogger.Errorf("Payment signature mismatch for booking %s (order %s)", bookingID, result.OrderID)
		return bookingID, s.finish(ctx, sessionID, bookingID, booking_models.FlowFailed, ErrVerificationFailed)
	}

	resp, err := s.Backend.VerifyPayment(ctx, sess, booking_models.VerifyPaymentRequest{
		BookingID:     bookingID,
		PaymentResult: result,
	})
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) {
			logger.ErrorLogger.Errorf("Backend rejected payment for booking %s: %v", bookingID, err)
			return bookingID, s.finish(ctx, sessionID, bookingID, booking_models.FlowFailed, ErrVerificationFailed)
		}
		return bookingID, err
	}
	if !resp.Verified {
		logger.ErrorLogger.Errorf("Payment not verified for booking %s: %s", bookingID, resp.Message)
		return bookingID, s.finish(ctx, sessionID, bookingID, booking_models.FlowFailed, ErrVerificationFailed)
	}
	if resp.BookingID != "" {
		bookingID = resp.BookingID
	}

	_, err = s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		sess.ClearBooking()
		sess.FlowState = booking_models.FlowPolling
		sess.PollingBookingID = bookingID
		return nil
	})
	if err != nil {
		return bookingID, err
	}

	logger.InfoLogger.Infof("Payment verified for booking %s", bookingID)
	return bookingID, nil
}

// ExpireHold is called when the countdown for bookingID reaches zero.
func (s *BookingFlowService) ExpireHold(ctx context.Context, sessionID, bookingID string) error {
	return s.finish(ctx, sessionID, bookingID, booking_models.FlowExpired, nil)
}

// RecordPollResult moves a polling session to the terminal state the poller observed
// for bookingID. Results for any other booking leave the session alone.
func (s *BookingFlowService) RecordPollResult(ctx context.Context, sessionID, bookingID string, res PollResult) error {
	var to booking_models.FlowState
	switch res.Outcome {
	case PollConfirmed:
		to = booking_models.FlowConfirmed
	case PollCancelled:
		to = booking_models.FlowCancelled
	case PollExpired:
		to = booking_models.FlowExpired
	default:
		// Timed out or unreachable: the booking id stays usable for another check.
		return nil
	}
	_, err := s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		if sess.FlowState != booking_models.FlowPolling || sess.PollingBookingID != bookingID {
			return errSkip
		}
		sess.FlowState = to
		sess.PollingBookingID = ""
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return err
}

// PollStatus returns a fetcher bound to this session for use with Poller.
func (s *BookingFlowService) PollStatus(sessionID, bookingID string) StatusFetcher {
	return func(ctx context.Context) (*booking_models.BookingStatus, error) {
		sess, err := s.Sessions.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return s.Backend.GetBookingStatus(ctx, sess, bookingID)
	}
}

var errSkip = errors.New("skip")

// finish clears the booking keys when bookingID is still the active hold and moves to
// a terminal state, then returns cause.
func (s *BookingFlowService) finish(ctx context.Context, sessionID, bookingID string, to booking_models.FlowState, cause error) error {
	_, err := s.Sessions.Update(ctx, sessionID, func(sess *session_models.Session) error {
		if sess.ActiveBookingID != bookingID {
			return errSkip
		}
		if err := transition(sess, to); err != nil {
			return err
		}
		sess.ClearBooking()
		sess.FlowState = to
		return nil
	})
	if err != nil && !errors.Is(err, errSkip) {
		logger.ErrorLogger.Errorf("Failed to move session %s to %s: %v", sessionID, to, err)
		if cause == nil {
			return err
		}
	}
	return cause
}
