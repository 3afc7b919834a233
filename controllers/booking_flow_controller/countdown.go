package booking_flow_controller

import (
	"context"
	"time"

	"github.com/joy095/academy/models/booking_models"
)

// CountdownTick is one update of the payment-window timer.
type CountdownTick struct {
	Remaining int    `json:"remaining"`
	Display   string `json:"display"`
	Expired   bool   `json:"expired"`
}

// Countdown ticks down to ExpiresAt. Remaining time is always derived from the clock,
// never decremented, so a slow consumer cannot drift.
type Countdown struct {
	ExpiresAt time.Time
	Interval  time.Duration
	Now       func() time.Time
}

func NewCountdown(expiresAt time.Time) *Countdown {
	return &Countdown{ExpiresAt: expiresAt, Interval: time.Second, Now: time.Now}
}

// Current computes the tick for the present instant.
func (c *Countdown) Current() CountdownTick {
	remaining := booking_models.RemainingSeconds(c.ExpiresAt, c.Now())
	return CountdownTick{
		Remaining: remaining,
		Display:   booking_models.FormatCountdown(remaining),
		Expired:   remaining == 0,
	}
}

// Run emits the current tick immediately and then once per Interval until the hold
// expires (the final tick has Expired set), ctx is done, or emit fails.
func (c *Countdown) Run(ctx context.Context, emit func(CountdownTick) error) error {
	interval := c.Interval
	if interval <= 0 {
		interval = time.Second
	}

	tick := c.Current()
	if err := emit(tick); err != nil {
		return err
	}
	if tick.Expired {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick = c.Current()
			if err := emit(tick); err != nil {
				return err
			}
			if tick.Expired {
				return nil
			}
		}
	}
}
