// Package dispatch is the conversation core: it routes normalized inbound
// traffic to command handlers, drives the task-creation wizard, and pushes
// replies back through the right channel adapter.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"taskbot/internal/channel"
	"taskbot/internal/config"
	"taskbot/internal/report"
	"taskbot/internal/task"
)

// CalendarSync is the one-shot calendar import capability. Nil when the
// deployment has no calendar credentials.
type CalendarSync interface {
	Sync(ctx context.Context) (added int, err error)
}

type Options struct {
	Registry    *channel.Registry
	Tasks       *task.Store
	Config      *config.Store
	Calendar    CalendarSync
	Logger      *slog.Logger
	SendTimeout time.Duration
	Now         func() time.Time
}

// Engine implements channel.Sink.
type Engine struct {
	registry    *channel.Registry
	tasks       *task.Store
	config      *config.Store
	calendar    CalendarSync
	logger      *slog.Logger
	sendTimeout time.Duration
	now         func() time.Time
	sessions    *sessionStore
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		registry:    opts.Registry,
		tasks:       opts.Tasks,
		config:      opts.Config,
		calendar:    opts.Calendar,
		logger:      opts.Logger,
		sendTimeout: opts.SendTimeout,
		now:         opts.Now,
		sessions:    newSessionStore(),
	}
}

// HandleMessage processes one normalized text message. An active conversation
// consumes the message as wizard input; otherwise only commands are routed and
// free text is ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg *channel.InboundMessage) {
	if msg == nil || msg.UserID == "" || msg.ChatID == "" {
		return
	}
	e.captureChat(msg.Channel, msg.ChatID)

	sess := e.sessions.get(msg.Channel, msg.UserID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateIdle {
		e.stepWizard(ctx, sess, msg)
		return
	}
	if msg.IsCommand {
		e.routeCommand(ctx, sess, msg)
	}
}

// HandleCallback processes one inline-button press.
func (e *Engine) HandleCallback(ctx context.Context, ev *channel.CallbackEvent) {
	if ev == nil || ev.UserID == "" || ev.ChatID == "" || ev.Data == "" {
		return
	}
	e.captureChat(ev.Channel, ev.ChatID)

	sess := e.sessions.get(ev.Channel, ev.UserID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	e.routeCallback(ctx, sess, ev)
}

// BroadcastReport sends the daily report to every channel with a token and a
// captured chat.
func (e *Engine) BroadcastReport(ctx context.Context) {
	text := report.Build(e.tasks.All(), e.tasks.Stats(), e.now())
	targets := e.config.Configured()
	e.logger.Info("report_broadcast", "channels", len(targets))
	for _, id := range targets {
		cfg := e.config.Get(id)
		e.reply(ctx, id, cfg.ChatID, text, nil)
	}
}

// reply sends fire-and-log: a transport failure is logged and abandoned, never
// retried.
func (e *Engine) reply(ctx context.Context, ch channel.ID, chatID, text string, opts *channel.SendOptions) {
	a, ok := e.registry.Get(ch)
	if !ok {
		e.logger.Warn("reply_no_adapter", "channel", string(ch))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	if _, err := a.SendText(sendCtx, chatID, text, opts); err != nil {
		e.logger.Warn("send_reply_error", "channel", string(ch), "chat_id", chatID, "error", err.Error())
	}
}

func (e *Engine) captureChat(ch channel.ID, chatID string) {
	if e.config.Get(ch).ChatID != "" {
		return
	}
	if err := e.config.SetChatID(ch, chatID); err != nil {
		e.logger.Warn("chat_id_capture_error", "channel", string(ch), "error", err.Error())
		return
	}
	e.logger.Info("chat_id_captured", "channel", string(ch), "chat_id", chatID)
}
