package booking_models

import (
	"fmt"
	"time"
)

// RemainingSeconds returns max(0, floor((expiresAt-now)/1s)).
func RemainingSeconds(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatCountdown renders whole seconds as m:ss; negative input renders as 0:00.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
