// Package task holds the task model and the persistent in-memory store.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Priority of a task. Empty means not set.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps user input to a priority, case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

// DueDateLayout is the wire and display format for due dates.
const DueDateLayout = "02.01.2006"

// ParseDueDate validates s against DueDateLayout and returns it normalized.
func ParseDueDate(s string) (string, error) {
	t, err := time.Parse(DueDateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("parse due date %q: %w", s, err)
	}
	return t.Format(DueDateLayout), nil
}

// Task is one tracked item. Name is unique within a store and doubles as the
// match key for calendar sync.
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Completed bool       `json:"completed"`
	DueDate   string     `json:"due_date,omitempty"`
	Priority  Priority   `json:"priority,omitempty"`
	Category  string     `json:"category,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Fields are the user-settable parts of a task used on create and upsert.
type Fields struct {
	Name     string
	DueDate  string
	Priority Priority
	Category string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Completed *bool
	DueDate   *string
	Priority  *Priority
	Category  *string
}

// Stats summarizes the store. CompletionRate is a percentage rounded to two
// decimals, 0 when the store is empty.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}
