package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskbot/internal/channel"
	"taskbot/internal/report"
	"taskbot/internal/task"
)

const (
	msgConfigureFirst = "⚙️ Please set your bot token first: send /settings."
	msgStaleList      = "⚠️ That task list is out of date. Send /tasks to refresh."
	msgNoTasks        = "No tasks found."
	msgSyncMissing    = "Calendar sync is not configured."
)

type listFilter int

const (
	filterAll listFilter = iota
	filterCompleted
	filterPending
)

func parseFilter(arg string) listFilter {
	switch strings.ToLower(arg) {
	case "completed", "done":
		return filterCompleted
	case "pending", "todo":
		return filterPending
	}
	return filterAll
}

// routeCommand dispatches a slash command arriving outside any conversation.
// Unknown commands are silently ignored.
func (e *Engine) routeCommand(ctx context.Context, sess *session, msg *channel.InboundMessage) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	// Group clients may address commands as /cmd@botname.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		e.sendMenu(ctx, msg.Channel, msg.ChatID)
	case "/settings":
		e.beginTokenEntry(ctx, sess, msg.Channel, msg.ChatID)
	case "/report":
		if !e.requireToken(ctx, msg) {
			return
		}
		text := report.Build(e.tasks.All(), e.tasks.Stats(), e.now())
		e.reply(ctx, msg.Channel, msg.ChatID, text, nil)
	case "/tasks":
		if !e.requireToken(ctx, msg) {
			return
		}
		filter := filterAll
		if len(fields) > 1 {
			filter = parseFilter(fields[1])
		}
		e.sendTaskList(ctx, msg.Channel, msg.ChatID, filter)
	case "/add_task":
		if !e.requireToken(ctx, msg) {
			return
		}
		e.beginWizard(ctx, sess, msg.Channel, msg.ChatID)
	case "/sync_calendar":
		if !e.requireToken(ctx, msg) {
			return
		}
		e.runCalendarSync(ctx, msg.Channel, msg.ChatID)
	}
}

// routeCallback dispatches an inline-button payload by prefix. Indices are
// positions in the insertion-ordered task list at render time; a press on a
// stale keyboard may land out of range and gets a refresh hint.
func (e *Engine) routeCallback(ctx context.Context, sess *session, ev *channel.CallbackEvent) {
	data := ev.Data
	switch {
	case data == "add_task":
		if !e.hasToken(ctx, ev.Channel, ev.ChatID) {
			return
		}
		e.beginWizard(ctx, sess, ev.Channel, ev.ChatID)
	case data == "filter_all":
		e.sendTaskList(ctx, ev.Channel, ev.ChatID, filterAll)
	case data == "filter_completed":
		e.sendTaskList(ctx, ev.Channel, ev.ChatID, filterCompleted)
	case data == "filter_pending":
		e.sendTaskList(ctx, ev.Channel, ev.ChatID, filterPending)
	case strings.HasPrefix(data, "complete_"):
		e.toggleAt(ctx, ev, strings.TrimPrefix(data, "complete_"), true)
	case strings.HasPrefix(data, "uncomplete_"):
		e.toggleAt(ctx, ev, strings.TrimPrefix(data, "uncomplete_"), false)
	case strings.HasPrefix(data, "delete_"):
		e.deleteAt(ctx, ev, strings.TrimPrefix(data, "delete_"))
	}
}

func (e *Engine) toggleAt(ctx context.Context, ev *channel.CallbackEvent, rawIdx string, completed bool) {
	idx, err := strconv.Atoi(rawIdx)
	if err != nil {
		e.logger.Warn("callback_bad_index", "data", ev.Data)
		return
	}
	t, err := e.tasks.SetCompletedAt(idx, completed)
	if err != nil {
		e.replyTaskOpError(ctx, ev, err)
		return
	}
	if completed {
		e.reply(ctx, ev.Channel, ev.ChatID, fmt.Sprintf("✅ Task '%s' marked as done.", t.Name), nil)
	} else {
		e.reply(ctx, ev.Channel, ev.ChatID, fmt.Sprintf("↩️ Task '%s' marked as pending.", t.Name), nil)
	}
}

func (e *Engine) deleteAt(ctx context.Context, ev *channel.CallbackEvent, rawIdx string) {
	idx, err := strconv.Atoi(rawIdx)
	if err != nil {
		e.logger.Warn("callback_bad_index", "data", ev.Data)
		return
	}
	t, err := e.tasks.DeleteAt(idx)
	if err != nil {
		e.replyTaskOpError(ctx, ev, err)
		return
	}
	e.reply(ctx, ev.Channel, ev.ChatID, fmt.Sprintf("🗑 Task '%s' deleted.", t.Name), nil)
}

func (e *Engine) replyTaskOpError(ctx context.Context, ev *channel.CallbackEvent, err error) {
	if errors.Is(err, task.ErrIndexRange) {
		e.reply(ctx, ev.Channel, ev.ChatID, msgStaleList, nil)
		return
	}
	e.logger.Warn("callback_task_op_error", "data", ev.Data, "error", err.Error())
}

func (e *Engine) requireToken(ctx context.Context, msg *channel.InboundMessage) bool {
	return e.hasToken(ctx, msg.Channel, msg.ChatID)
}

func (e *Engine) hasToken(ctx context.Context, ch channel.ID, chatID string) bool {
	if e.config.HasToken(ch) {
		return true
	}
	e.reply(ctx, ch, chatID, msgConfigureFirst, nil)
	return false
}

func (e *Engine) sendMenu(ctx context.Context, ch channel.ID, chatID string) {
	text := "👋 Hi! I'm your task bot.\n\n" +
		"/add_task - add a new task\n" +
		"/tasks [done|todo] - list tasks\n" +
		"/report - daily report\n" +
		"/sync_calendar - import from Google Calendar\n" +
		"/settings - set the bot token"
	opts := &channel.SendOptions{
		Keyboard: &channel.Keyboard{
			Inline: true,
			Rows: [][]channel.Button{
				{{Label: "➕ Add task", Data: "add_task"}},
				{
					{Label: "📋 All", Data: "filter_all"},
					{Label: "✅ Done", Data: "filter_completed"},
					{Label: "❌ Pending", Data: "filter_pending"},
				},
			},
		},
	}
	e.reply(ctx, ch, chatID, text, opts)
}

// maxListButtonRows caps the inline keyboard under a task list. The text
// lists every matching task; only the first rows get buttons.
const maxListButtonRows = 5

// sendTaskList renders the filtered list with one button row per task, up to
// maxListButtonRows. The callback indices refer to positions in the full
// insertion-ordered list, so a filtered row still acts on the right task.
func (e *Engine) sendTaskList(ctx context.Context, ch channel.ID, chatID string, filter listFilter) {
	all := e.tasks.All()
	var b strings.Builder
	kb := &channel.Keyboard{Inline: true}
	shown := 0
	for i, t := range all {
		if filter == filterCompleted && !t.Completed {
			continue
		}
		if filter == filterPending && t.Completed {
			continue
		}
		shown++
		b.WriteString(taskLine(shown, t))

		if len(kb.Rows) >= maxListButtonRows {
			continue
		}
		toggle := channel.Button{Label: fmt.Sprintf("✅ %d", shown), Data: fmt.Sprintf("complete_%d", i)}
		if t.Completed {
			toggle = channel.Button{Label: fmt.Sprintf("↩️ %d", shown), Data: fmt.Sprintf("uncomplete_%d", i)}
		}
		kb.Rows = append(kb.Rows, []channel.Button{
			toggle,
			{Label: fmt.Sprintf("🗑 %d", shown), Data: fmt.Sprintf("delete_%d", i)},
		})
	}
	if shown == 0 {
		e.reply(ctx, ch, chatID, msgNoTasks, nil)
		return
	}

	header := "📋 All tasks:\n"
	switch filter {
	case filterCompleted:
		header = "✅ Completed tasks:\n"
	case filterPending:
		header = "❌ Pending tasks:\n"
	}
	e.reply(ctx, ch, chatID, header+b.String(), &channel.SendOptions{Keyboard: kb})
}

func taskLine(n int, t task.Task) string {
	mark := "❌"
	if t.Completed {
		mark = "✅"
	}
	s := fmt.Sprintf("%d. %s %s", n, mark, t.Name)
	if t.DueDate != "" {
		s += " (due " + t.DueDate + ")"
	}
	if t.Priority != "" {
		s += " [" + string(t.Priority) + "]"
	}
	return s + "\n"
}

func (e *Engine) runCalendarSync(ctx context.Context, ch channel.ID, chatID string) {
	if e.calendar == nil {
		e.reply(ctx, ch, chatID, msgSyncMissing, nil)
		return
	}
	added, err := e.calendar.Sync(ctx)
	if err != nil {
		e.logger.Warn("calendar_sync_error", "error", err.Error())
		e.reply(ctx, ch, chatID, "❌ Calendar sync failed.", nil)
		return
	}
	e.reply(ctx, ch, chatID, fmt.Sprintf("📅 Synced %d new task(s) from Google Calendar.", added), nil)
}
