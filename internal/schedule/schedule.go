// Package schedule runs time-of-day jobs on a dedicated goroutine with
// cooperative cancellation.
package schedule

import (
	"context"
	"fmt"
	"time"
)

// Daily invokes fn once per day at the given local "HH:MM" time until ctx is
// cancelled. It blocks; run it on its own goroutine.
func Daily(ctx context.Context, at string, fn func(context.Context)) error {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("schedule: parse time %q: %w", at, err)
	}
	hour, minute := t.Hour(), t.Minute()

	for {
		wait := time.Until(nextRun(time.Now(), hour, minute))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			fn(ctx)
		}
	}
}

// nextRun is the next occurrence of hour:minute strictly after now.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
