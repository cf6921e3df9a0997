package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskbot/internal/task"
)

// syncCategory marks tasks that came from the calendar.
const syncCategory = "Google Calendar"

// Syncer maps upcoming events onto the task store, matching by name.
type Syncer struct {
	client     Client
	tasks      *task.Store
	logger     *slog.Logger
	windowDays int
	maxResults int
}

func NewSyncer(client Client, tasks *task.Store, logger *slog.Logger, windowDays, maxResults int) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client:     client,
		tasks:      tasks,
		logger:     logger,
		windowDays: windowDays,
		maxResults: maxResults,
	}
}

// Sync fetches upcoming events and upserts one task per event. Existing tasks
// with the same name are overwritten with the event-derived fields. Returns
// the number of newly created tasks.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	events, err := s.client.UpcomingEvents(ctx, s.windowDays, s.maxResults)
	if err != nil {
		return 0, fmt.Errorf("calendar sync: %w", err)
	}

	added := 0
	for _, ev := range events {
		name := strings.TrimSpace(ev.Summary)
		if name == "" {
			continue
		}
		created, err := s.tasks.UpsertByName(task.Fields{
			Name:     name,
			DueDate:  eventDueDate(ev),
			Priority: colorPriority(ev.ColorID),
			Category: syncCategory,
		}, eventCompleted(ev))
		if err != nil {
			s.logger.Warn("calendar_upsert_error", "name", name, "error", err.Error())
			continue
		}
		if created {
			added++
		}
	}
	s.logger.Info("calendar_sync_done", "events", len(events), "added", added)
	return added, nil
}

// eventDueDate derives the DD.MM.YYYY due date from the event start. An
// all-day date that fails to parse is passed through unchanged.
func eventDueDate(ev Event) string {
	if ev.StartDate != "" {
		t, err := time.Parse("2006-01-02", ev.StartDate)
		if err != nil {
			return ev.StartDate
		}
		return t.Format(task.DueDateLayout)
	}
	if !ev.StartDateTime.IsZero() {
		return ev.StartDateTime.Format(task.DueDateLayout)
	}
	return ""
}

// colorPriority maps the calendar color to a priority: 1 and 4 are high,
// 2 and 10 are low, anything else medium.
func colorPriority(colorID string) task.Priority {
	switch colorID {
	case "1", "4":
		return task.PriorityHigh
	case "2", "10":
		return task.PriorityLow
	}
	return task.PriorityMedium
}

// eventCompleted treats a confirmed event with at least one accepted attendee
// as done.
func eventCompleted(ev Event) bool {
	return ev.Status == "confirmed" && ev.AttendeeAccepted
}
