package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"taskbot/internal/channel"
)

// Adapter bridges the Bot API client to the canonical channel contract.
type Adapter struct {
	api    *API
	logger *slog.Logger

	// PollTimeout is the getUpdates long-poll window.
	PollTimeout time.Duration
}

func NewAdapter(api *API, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:         api,
		logger:      logger,
		PollTimeout: 30 * time.Second,
	}
}

func (a *Adapter) ID() channel.ID { return channel.Telegram }

func (a *Adapter) SupportsPolling() bool { return true }

func (a *Adapter) SendText(ctx context.Context, chatID, text string, opts *channel.SendOptions) (channel.MessageRef, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return channel.MessageRef{}, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	req := SendMessageRequest{ChatID: id, Text: text}
	if opts != nil {
		req.ReplyMarkup = replyMarkup(opts)
	}
	msg, err := a.api.SendMessage(ctx, req)
	if err != nil {
		return channel.MessageRef{}, err
	}
	return channel.MessageRef{
		Channel:   channel.Telegram,
		ChatID:    chatID,
		MessageID: strconv.FormatInt(msg.MessageID, 10),
	}, nil
}

func replyMarkup(opts *channel.SendOptions) any {
	if opts.RemoveKeyboard {
		return ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	kb := opts.Keyboard
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	if kb.Inline {
		markup := InlineKeyboardMarkup{}
		for _, row := range kb.Rows {
			var r []InlineKeyboardButton
			for _, btn := range row {
				r = append(r, InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Data})
			}
			markup.InlineKeyboard = append(markup.InlineKeyboard, r)
		}
		return markup
	}
	markup := ReplyKeyboardMarkup{ResizeKeyboard: true, OneTimeKeyboard: kb.OneTime}
	for _, row := range kb.Rows {
		var r []KeyboardButton
		for _, btn := range row {
			r = append(r, KeyboardButton{Text: btn.Label})
		}
		markup.Keyboard = append(markup.Keyboard, r)
	}
	return markup
}

// Normalize converts one raw update into a canonical message or callback.
// Malformed or unsupported payloads yield (nil, nil).
func (a *Adapter) Normalize(raw []byte) (*channel.InboundMessage, *channel.CallbackEvent) {
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		a.logger.Warn("telegram_normalize_error", "error", err.Error())
		return nil, nil
	}
	return a.normalizeUpdate(&u)
}

func (a *Adapter) normalizeUpdate(u *Update) (*channel.InboundMessage, *channel.CallbackEvent) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil || cq.Data == "" {
			return nil, nil
		}
		return nil, &channel.CallbackEvent{
			Channel: channel.Telegram,
			UserID:  strconv.FormatInt(cq.From.ID, 10),
			ChatID:  strconv.FormatInt(cq.Message.Chat.ID, 10),
			Data:    cq.Data,
		}
	}
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return nil, nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, nil
	}
	return &channel.InboundMessage{
		Channel:   channel.Telegram,
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Text:      text,
		IsCommand: strings.HasPrefix(text, "/"),
	}, nil
}

// HandleUpdate normalizes one raw update and hands it to the sink. Callback
// queries are acknowledged best-effort before dispatch.
func (a *Adapter) HandleUpdate(ctx context.Context, raw []byte, sink channel.Sink) {
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		a.logger.Warn("telegram_update_decode_error", "error", err.Error())
		return
	}
	a.dispatchUpdate(ctx, &u, sink)
}

func (a *Adapter) dispatchUpdate(ctx context.Context, u *Update, sink channel.Sink) {
	if u.CallbackQuery != nil && u.CallbackQuery.ID != "" {
		if err := a.api.AnswerCallbackQuery(ctx, u.CallbackQuery.ID); err != nil {
			a.logger.Warn("telegram_answer_callback_error", "error", err.Error())
		}
	}
	msg, ev := a.normalizeUpdate(u)
	switch {
	case ev != nil:
		sink.HandleCallback(ctx, ev)
	case msg != nil:
		sink.HandleMessage(ctx, msg)
	}
}

// RunPolling long-polls getUpdates until ctx is cancelled. Iteration errors
// are logged and retried after a short pause. With no token configured yet,
// the loop waits until one is saved.
func (a *Adapter) RunPolling(ctx context.Context, sink channel.Sink) error {
	if !a.api.hasToken() {
		a.logger.Info("telegram_waiting_token")
		for !a.api.hasToken() {
			select {
			case <-ctx.Done():
				a.logger.Info("telegram_stop")
				return nil
			case <-time.After(1 * time.Second):
			}
		}
	}

	me, err := a.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	a.logger.Info("telegram_start", "bot", me.Username)

	var offset int64
	for {
		if ctx.Err() != nil {
			a.logger.Info("telegram_stop")
			return nil
		}
		updates, nextOffset, err := a.api.GetUpdates(ctx, offset, a.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				a.logger.Info("telegram_stop")
				return nil
			}
			a.logger.Warn("telegram_get_updates_error", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset
		for i := range updates {
			a.dispatchUpdate(ctx, &updates[i], sink)
		}
	}
}
