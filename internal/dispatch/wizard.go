package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskbot/internal/channel"
	"taskbot/internal/task"
)

const (
	promptToken       = "🔑 Send me the bot token for this channel:"
	promptName        = "📝 What's the task called?"
	promptNameEmpty   = "Task name can't be empty. Please enter a name:"
	promptDueDate     = "📆 When is it due? Enter DD.MM.YYYY or 'skip':"
	promptDueInvalid  = "Invalid date. Please use DD.MM.YYYY or 'skip':"
	promptPriority    = "⭐ How important is it?"
	promptPriorityBad = "Please pick one of the options:"
	promptCategory    = "🏷 Add a category or 'skip':"
)

var priorityKeyboard = &channel.Keyboard{
	OneTime: true,
	Rows: [][]channel.Button{
		{{Label: "High 🔴"}, {Label: "Medium 🟡"}, {Label: "Low 🟢"}},
		{{Label: "Skip"}},
	},
}

var skipKeyboard = &channel.Keyboard{
	OneTime: true,
	Rows:    [][]channel.Button{{{Label: "Skip"}}},
}

func (e *Engine) beginTokenEntry(ctx context.Context, sess *session, ch channel.ID, chatID string) {
	sess.state = StateAwaitingToken
	e.reply(ctx, ch, chatID, promptToken, nil)
}

func (e *Engine) beginWizard(ctx context.Context, sess *session, ch channel.ID, chatID string) {
	sess.state = StateAwaitingTaskName
	sess.draft = Draft{}
	e.reply(ctx, ch, chatID, promptName, nil)
}

// stepWizard consumes one message as input for the active conversation state.
// Invalid input re-prompts without advancing; the terminal state is always
// Idle.
func (e *Engine) stepWizard(ctx context.Context, sess *session, msg *channel.InboundMessage) {
	text := strings.TrimSpace(msg.Text)

	switch sess.state {
	case StateAwaitingToken:
		if text == "" {
			e.reply(ctx, msg.Channel, msg.ChatID, promptToken, nil)
			return
		}
		if err := e.config.SetToken(msg.Channel, text); err != nil {
			e.reply(ctx, msg.Channel, msg.ChatID, "❌ Could not save the token.", nil)
			sess.reset()
			return
		}
		sess.reset()
		e.reply(ctx, msg.Channel, msg.ChatID, "✅ Token saved. You're all set.", nil)

	case StateAwaitingTaskName:
		if text == "" {
			e.reply(ctx, msg.Channel, msg.ChatID, promptNameEmpty, nil)
			return
		}
		sess.draft.Name = text
		sess.state = StateAwaitingDueDate
		e.reply(ctx, msg.Channel, msg.ChatID, promptDueDate, &channel.SendOptions{Keyboard: skipKeyboard})

	case StateAwaitingDueDate:
		if !strings.EqualFold(text, "skip") {
			due, err := task.ParseDueDate(text)
			if err != nil {
				e.reply(ctx, msg.Channel, msg.ChatID, promptDueInvalid, &channel.SendOptions{Keyboard: skipKeyboard})
				return
			}
			sess.draft.DueDate = due
		}
		sess.state = StateAwaitingPriority
		e.reply(ctx, msg.Channel, msg.ChatID, promptPriority, &channel.SendOptions{Keyboard: priorityKeyboard})

	case StateAwaitingPriority:
		// Keyboard labels carry an emoji suffix; match on the first word.
		word := text
		if fields := strings.Fields(text); len(fields) > 0 {
			word = fields[0]
		}
		if !strings.EqualFold(word, "skip") {
			p, ok := task.ParsePriority(word)
			if !ok {
				e.reply(ctx, msg.Channel, msg.ChatID, promptPriorityBad, &channel.SendOptions{Keyboard: priorityKeyboard})
				return
			}
			sess.draft.Priority = p
		}
		sess.state = StateAwaitingCategory
		e.reply(ctx, msg.Channel, msg.ChatID, promptCategory, &channel.SendOptions{Keyboard: skipKeyboard})

	case StateAwaitingCategory:
		if !strings.EqualFold(text, "skip") {
			sess.draft.Category = text
		}
		e.commitDraft(ctx, sess, msg.Channel, msg.ChatID)

	default:
		sess.reset()
	}
}

// commitDraft writes the finished draft to the store. Failure still ends the
// conversation; the user restarts with /add_task.
func (e *Engine) commitDraft(ctx context.Context, sess *session, ch channel.ID, chatID string) {
	draft := sess.draft
	sess.reset()

	t, err := e.tasks.Add(task.Fields{
		Name:     draft.Name,
		DueDate:  draft.DueDate,
		Priority: draft.Priority,
		Category: draft.Category,
	})
	opts := &channel.SendOptions{RemoveKeyboard: true}
	switch {
	case errors.Is(err, task.ErrDuplicateName):
		e.reply(ctx, ch, chatID, fmt.Sprintf("❌ A task named '%s' already exists.", draft.Name), opts)
	case err != nil:
		e.logger.Warn("task_commit_error", "name", draft.Name, "error", err.Error())
		e.reply(ctx, ch, chatID, "❌ Could not save the task.", opts)
	default:
		e.reply(ctx, ch, chatID, fmt.Sprintf("✅ Task '%s' added.", t.Name), opts)
	}
}
