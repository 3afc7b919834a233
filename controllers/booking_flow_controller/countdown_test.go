package booking_flow_controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by step every time it is read.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestCountdown_FiveSecondsToExpiry(t *testing.T) {
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: start, step: time.Second}
	cd := &Countdown{ExpiresAt: start.Add(5 * time.Second), Interval: time.Millisecond, Now: clock.Now}

	var ticks []CountdownTick
	err := cd.Run(context.Background(), func(t CountdownTick) error {
		ticks = append(ticks, t)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, ticks, 6)
	assert.Equal(t, "0:05", ticks[0].Display)
	assert.Equal(t, "0:00", ticks[5].Display)
	assert.True(t, ticks[5].Expired)
	for i := 1; i < len(ticks); i++ {
		assert.LessOrEqual(t, ticks[i].Remaining, ticks[i-1].Remaining)
		assert.GreaterOrEqual(t, ticks[i].Remaining, 0)
	}
}

func TestCountdown_AlreadyExpired(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	cd := &Countdown{ExpiresAt: now.Add(-time.Minute), Interval: time.Millisecond, Now: func() time.Time { return now }}

	var ticks []CountdownTick
	err := cd.Run(context.Background(), func(t CountdownTick) error {
		ticks = append(ticks, t)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, CountdownTick{Remaining: 0, Display: "0:00", Expired: true}, ticks[0])
}

func TestCountdown_FloorsPartialSeconds(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	cd := &Countdown{ExpiresAt: now.Add(90*time.Second + 900*time.Millisecond), Now: func() time.Time { return now }}

	tick := cd.Current()
	assert.Equal(t, 90, tick.Remaining)
	assert.Equal(t, "1:30", tick.Display)
	assert.False(t, tick.Expired)
}

func TestCountdown_StopsOnCancel(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	cd := &Countdown{ExpiresAt: now.Add(time.Hour), Interval: time.Millisecond, Now: func() time.Time { return now }}

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err := cd.Run(ctx, func(CountdownTick) error {
		count++
		if count == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, count)
}

func TestCountdown_StopsOnEmitError(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	cd := &Countdown{ExpiresAt: now.Add(time.Hour), Interval: time.Millisecond, Now: func() time.Time { return now }}

	boom := errors.New("socket closed")
	err := cd.Run(context.Background(), func(CountdownTick) error { return boom })
	assert.ErrorIs(t, err, boom)
}
