// Package viber implements the webhook-only Viber channel adapter.
package viber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"taskbot/internal/channel"
)

const defaultBaseURL = "https://chatapi.viber.com/pa"

// Adapter talks to the Viber Public Account API. Keyboards are not supported;
// sends are plain text. The token is read per request so a token saved
// mid-session takes effect without a restart.
type Adapter struct {
	http    *http.Client
	baseURL string
	token   func() string
	logger  *slog.Logger
}

func NewAdapter(httpClient *http.Client, baseURL, token string, logger *slog.Logger) *Adapter {
	return NewAdapterWithSource(httpClient, baseURL, func() string { return token }, logger)
}

func NewAdapterWithSource(httpClient *http.Client, baseURL string, token func() string, logger *slog.Logger) *Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

func (a *Adapter) ID() channel.ID { return channel.Viber }

func (a *Adapter) SupportsPolling() bool { return false }

type sendMessageRequest struct {
	Receiver string `json:"receiver"`
	Type     string `json:"type"`
	Text     string `json:"text"`
}

func (a *Adapter) SendText(ctx context.Context, chatID, text string, _ *channel.SendOptions) (channel.MessageRef, error) {
	payload, err := json.Marshal(sendMessageRequest{Receiver: chatID, Type: "text", Text: text})
	if err != nil {
		return channel.MessageRef{}, err
	}
	url := a.baseURL + "/send_message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return channel.MessageRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Viber-Auth-Token", a.token())
	resp, err := a.http.Do(req)
	if err != nil {
		return channel.MessageRef{}, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return channel.MessageRef{}, fmt.Errorf("viber http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if status := gjson.GetBytes(raw, "status"); status.Int() != 0 {
		return channel.MessageRef{}, fmt.Errorf("viber send_message status %d: %s",
			status.Int(), gjson.GetBytes(raw, "status_message").String())
	}
	return channel.MessageRef{
		Channel:   channel.Viber,
		ChatID:    chatID,
		MessageID: gjson.GetBytes(raw, "message_token").String(),
	}, nil
}

// Normalize unwraps a Viber callback envelope. Only "message" events with a
// text message carry user input; everything else (handshake, delivery
// receipts, subscriptions) is dropped.
func (a *Adapter) Normalize(raw []byte) *channel.InboundMessage {
	if !gjson.ValidBytes(raw) {
		a.logger.Warn("viber_normalize_error", "error", "invalid json")
		return nil
	}
	if gjson.GetBytes(raw, "event").String() != "message" {
		return nil
	}
	senderID := gjson.GetBytes(raw, "sender.id").String()
	text := strings.TrimSpace(gjson.GetBytes(raw, "message.text").String())
	if senderID == "" || text == "" {
		return nil
	}
	return &channel.InboundMessage{
		Channel:   channel.Viber,
		UserID:    senderID,
		ChatID:    senderID,
		Text:      text,
		IsCommand: strings.HasPrefix(text, "/"),
	}
}

func (a *Adapter) HandleUpdate(ctx context.Context, raw []byte, sink channel.Sink) {
	if msg := a.Normalize(raw); msg != nil {
		sink.HandleMessage(ctx, msg)
	}
}
