// Package report renders the daily task summary.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskbot/internal/task"
)

const dateLayout = "02.01.2006"

// Build renders the daily report for the given snapshot. It is a pure
// function over its inputs and safe to call at any frequency.
func Build(tasks []task.Task, stats task.Stats, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Daily report (%s)\n", now.Format(dateLayout))

	if len(tasks) == 0 {
		b.WriteString("\nNo tasks for today.")
		return b.String()
	}

	var done, pending []task.Task
	for _, t := range tasks {
		if t.Completed {
			done = append(done, t)
		} else {
			pending = append(pending, t)
		}
	}

	if len(done) > 0 {
		b.WriteString("\n✅ Done:\n")
		for _, t := range done {
			b.WriteString(line(t))
		}
	}
	if len(pending) > 0 {
		b.WriteString("\n❌ Pending:\n")
		for _, t := range pending {
			b.WriteString(line(t))
		}
	}

	rate := strconv.FormatFloat(stats.CompletionRate, 'f', -1, 64)
	fmt.Fprintf(&b, "\n📊 Stats: %d/%d done (%s%%)", stats.Completed, stats.Total, rate)
	return b.String()
}

func line(t task.Task) string {
	s := "• " + t.Name
	if t.DueDate != "" {
		s += " (due " + t.DueDate + ")"
	}
	return s + "\n"
}
