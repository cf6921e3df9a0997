package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskbot/internal/channel"
)

func TestNormalizeMessage(t *testing.T) {
	t.Parallel()

	a := NewAdapter(NewAPI(nil, "", "t"), nil)
	raw := []byte(`{"update_id":7,"message":{"message_id":1,"chat":{"id":42},"from":{"id":9},"text":"/tasks done"}}`)
	msg, ev := a.Normalize(raw)
	if ev != nil {
		t.Fatalf("Normalize() callback = %+v, want nil", ev)
	}
	if msg == nil {
		t.Fatalf("Normalize() message = nil")
	}
	if msg.Channel != channel.Telegram || msg.ChatID != "42" || msg.UserID != "9" {
		t.Fatalf("Normalize() = %+v", msg)
	}
	if !msg.IsCommand || msg.Text != "/tasks done" {
		t.Fatalf("Normalize() text = %q command = %v", msg.Text, msg.IsCommand)
	}
}

func TestNormalizeCallback(t *testing.T) {
	t.Parallel()

	a := NewAdapter(NewAPI(nil, "", "t"), nil)
	raw := []byte(`{"update_id":8,"callback_query":{"id":"cb1","from":{"id":9},"message":{"message_id":2,"chat":{"id":42}},"data":"complete_0"}}`)
	msg, ev := a.Normalize(raw)
	if msg != nil {
		t.Fatalf("Normalize() message = %+v, want nil", msg)
	}
	if ev == nil {
		t.Fatalf("Normalize() callback = nil")
	}
	if ev.Data != "complete_0" || ev.ChatID != "42" || ev.UserID != "9" {
		t.Fatalf("Normalize() = %+v", ev)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	t.Parallel()

	a := NewAdapter(NewAPI(nil, "", "t"), nil)
	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"update_id":1,"message":{"message_id":1}}`,
		`{"update_id":1,"message":{"message_id":1,"chat":{"id":1},"from":{"id":2,"is_bot":true},"text":"hi"}}`,
		`{"update_id":1,"callback_query":{"id":"x"}}`,
	} {
		msg, ev := a.Normalize([]byte(raw))
		if msg != nil || ev != nil {
			t.Fatalf("Normalize(%s) = %+v, %+v; want nil, nil", raw, msg, ev)
		}
	}
}

func TestSendTextKeyboards(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body decode error = %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":11,"chat":{"id":42}}}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewAPI(srv.Client(), srv.URL, "t"), nil)
	ref, err := a.SendText(context.Background(), "42", "pick one", &channel.SendOptions{
		Keyboard: &channel.Keyboard{
			Inline: true,
			Rows:   [][]channel.Button{{{Label: "All", Data: "filter_all"}}},
		},
	})
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if ref.MessageID != "11" || ref.ChatID != "42" {
		t.Fatalf("SendText() ref = %+v", ref)
	}
	markup, ok := got["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup missing in %v", got)
	}
	if _, ok := markup["inline_keyboard"]; !ok {
		t.Fatalf("inline_keyboard missing in %v", markup)
	}
}

func TestSendTextRejectsBadChatID(t *testing.T) {
	t.Parallel()

	a := NewAdapter(NewAPI(nil, "", "t"), nil)
	if _, err := a.SendText(context.Background(), "not-a-number", "x", nil); err == nil {
		t.Fatalf("SendText() error = nil, want parse error")
	}
}

func TestGetUpdatesOffsetAdvance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":5},{"update_id":9}]}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "t")
	updates, next, err := api.GetUpdates(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("GetUpdates() len = %d, want 2", len(updates))
	}
	if next != 10 {
		t.Fatalf("GetUpdates() next = %d, want 10", next)
	}
}

func TestRunPollingWaitsForToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s with no token configured", r.URL.Path)
	}))
	defer srv.Close()

	a := NewAdapter(NewAPIWithSource(srv.Client(), srv.URL, func() string { return "" }), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.RunPolling(ctx, &recordingSink{}); err != nil {
		t.Fatalf("RunPolling() error = %v, want nil", err)
	}
}

func TestAPITokenReadPerRequest(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":42}}}`))
	}))
	defer srv.Close()

	token := "first"
	api := NewAPIWithSource(srv.Client(), srv.URL, func() string { return token })
	if _, err := api.SendMessage(context.Background(), SendMessageRequest{ChatID: 42, Text: "a"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	token = "second"
	if _, err := api.SendMessage(context.Background(), SendMessageRequest{ChatID: 42, Text: "b"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	want := []string{"/botfirst/sendMessage", "/botsecond/sendMessage"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("request paths = %v, want %v", paths, want)
	}
}

type recordingSink struct {
	messages  []*channel.InboundMessage
	callbacks []*channel.CallbackEvent
}

func (s *recordingSink) HandleMessage(_ context.Context, msg *channel.InboundMessage) {
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) HandleCallback(_ context.Context, ev *channel.CallbackEvent) {
	s.callbacks = append(s.callbacks, ev)
}

func TestHandleUpdateAcksCallback(t *testing.T) {
	t.Parallel()

	acked := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bott/answerCallbackQuery" {
			acked = true
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewAPI(srv.Client(), srv.URL, "t"), nil)
	sink := &recordingSink{}
	raw := []byte(`{"update_id":1,"callback_query":{"id":"cb","from":{"id":9},"message":{"message_id":2,"chat":{"id":42}},"data":"add_task"}}`)
	a.HandleUpdate(context.Background(), raw, sink)

	if !acked {
		t.Fatalf("answerCallbackQuery not called")
	}
	if len(sink.callbacks) != 1 || sink.callbacks[0].Data != "add_task" {
		t.Fatalf("sink callbacks = %+v", sink.callbacks)
	}
}
