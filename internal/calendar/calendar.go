// Package calendar imports upcoming Google Calendar events into the task
// store.
package calendar

import (
	"context"
	"time"
)

// Event is the normalized shape of one upcoming calendar event.
type Event struct {
	Summary string
	// StartDate is set for all-day events ("2006-01-02"); StartDateTime for
	// timed events. At most one is set.
	StartDate     string
	StartDateTime time.Time
	ColorID       string
	Status        string
	// AttendeeAccepted reports whether any attendee accepted the invite.
	AttendeeAccepted bool
}

// Client fetches upcoming events. Implemented by the Google client and by
// fakes in tests.
type Client interface {
	UpcomingEvents(ctx context.Context, windowDays, maxResults int) ([]Event, error)
}
