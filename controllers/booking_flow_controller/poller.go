package booking_flow_controller

import (
	"context"
	"time"

	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/booking_models"
)

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultPollMaxAttempts = 10
)

// PollOutcome is how a confirmation poll ended. Empty while still pending.
type PollOutcome string

const (
	PollPending   PollOutcome = ""
	PollConfirmed PollOutcome = "confirmed"
	PollCancelled PollOutcome = "cancelled"
	PollExpired   PollOutcome = "expired"
	PollTimedOut  PollOutcome = "timed_out"
	PollFailed    PollOutcome = "failed"
)

const (
	MsgConfirmed = "Your booking is confirmed!"
	MsgCancelled = "This booking was cancelled."
	MsgExpired   = "This booking hold has expired. Please select a slot again."
	MsgTimedOut  = "Confirmation is taking longer than expected. Please check again in a moment."
	MsgFailed    = "Unable to verify your booking status right now."
	MsgPending   = "Waiting for payment confirmation..."
)

// PollResult is one observation made by the poller.
type PollResult struct {
	Attempt int                       `json:"attempt"`
	Status  booking_models.HoldStatus `json:"status,omitempty"`
	Outcome PollOutcome               `json:"outcome,omitempty"`
	Message string                    `json:"message"`
	Done    bool                      `json:"done"`
}

// StatusFetcher reads the current status of one booking.
type StatusFetcher func(ctx context.Context) (*booking_models.BookingStatus, error)

// Poller checks a booking's status at a fixed interval up to MaxAttempts times.
// Any fetch error stops polling without retry.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
}

func NewPoller(interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts}
}

// Classify maps a backend status to the poll result for attempt.
func Classify(attempt int, status booking_models.HoldStatus) PollResult {
	res := PollResult{Attempt: attempt, Status: status, Done: true}
	switch status {
	case booking_models.HoldConfirmed:
		res.Outcome, res.Message = PollConfirmed, MsgConfirmed
	case booking_models.HoldCancelled:
		res.Outcome, res.Message = PollCancelled, MsgCancelled
	case booking_models.HoldExpired:
		res.Outcome, res.Message = PollExpired, MsgExpired
	default:
		res.Outcome, res.Message, res.Done = PollPending, MsgPending, false
	}
	return res
}

// Run polls until a terminal status, an error, attempt exhaustion or ctx cancellation.
// emit is never called once ctx is done, even if a fetch resolves afterwards. The
// returned result is the last one emitted; after cancellation it has Done unset.
func (p *Poller) Run(ctx context.Context, fetch StatusFetcher, emit func(PollResult)) PollResult {
	var last PollResult
	deliver := func(r PollResult) bool {
		if ctx.Err() != nil {
			return false
		}
		last = r
		emit(r)
		return true
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(p.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return last
			case <-timer.C:
			}
		}

		st, err := fetch(ctx)
		if ctx.Err() != nil {
			return last
		}
		if err != nil {
			logger.WarnLogger.Warnf("Booking status poll failed on attempt %d: %v", attempt, err)
			deliver(PollResult{Attempt: attempt, Outcome: PollFailed, Message: MsgFailed, Done: true})
			return last
		}

		res := Classify(attempt, st.Status)
		if res.Done || attempt == p.MaxAttempts {
			if !res.Done {
				res.Outcome, res.Message, res.Done = PollTimedOut, MsgTimedOut, true
			}
			deliver(res)
			return last
		}
		if !deliver(res) {
			return last
		}
	}
	return last
}
