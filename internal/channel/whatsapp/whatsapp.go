// Package whatsapp implements the webhook-only WhatsApp Cloud API channel
// adapter.
package whatsapp

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

const defaultBaseURL = "https://graph.facebook.com/v17.0"

// Adapter talks to the Meta Graph API for one WhatsApp business phone number.
// Keyboards are not supported; sends are plain text. Token and phone number
// are read per request so credentials saved mid-session take effect without a
// restart.
type Adapter struct {
	http          *http.Client
	baseURL       string
	token         func() string
	phoneNumberID func() string
	logger        *slog.Logger
}

func NewAdapter(httpClient *http.Client, baseURL, token, phoneNumberID string, logger *slog.Logger) *Adapter {
	return NewAdapterWithSource(httpClient, baseURL,
		func() string { return token },
		func() string { return phoneNumberID },
		logger)
}

func NewAdapterWithSource(httpClient *http.Client, baseURL string, token, phoneNumberID func() string, logger *slog.Logger) *Adapter {
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
		http:          httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		phoneNumberID: phoneNumberID,
		logger:        logger,
	}
}

func (a *Adapter) ID() channel.ID { return channel.WhatsApp }

func (a *Adapter) SupportsPolling() bool { return false }

type sendMessageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

func (a *Adapter) SendText(ctx context.Context, chatID, text string, _ *channel.SendOptions) (channel.MessageRef, error) {
	payload, err := json.Marshal(sendMessageRequest{
		MessagingProduct: "whatsapp",
		To:               chatID,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return channel.MessageRef{}, err
	}
	url := fmt.Sprintf("%s/%s/messages", a.baseURL, a.phoneNumberID())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return channel.MessageRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token())
	resp, err := a.http.Do(req)
	if err != nil {
		return channel.MessageRef{}, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return channel.MessageRef{}, fmt.Errorf("whatsapp http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return channel.MessageRef{
		Channel:   channel.WhatsApp,
		ChatID:    chatID,
		MessageID: gjson.GetBytes(raw, "messages.0.id").String(),
	}, nil
}

// Normalize unwraps the Cloud API webhook envelope down to the first text
// message. Status notifications and non-text messages are dropped.
func (a *Adapter) Normalize(raw []byte) *channel.InboundMessage {
	if !gjson.ValidBytes(raw) {
		a.logger.Warn("whatsapp_normalize_error", "error", "invalid json")
		return nil
	}
	msg := gjson.GetBytes(raw, "entry.0.changes.0.value.messages.0")
	if !msg.Exists() || msg.Get("type").String() != "text" {
		return nil
	}
	from := msg.Get("from").String()
	text := strings.TrimSpace(msg.Get("text.body").String())
	if from == "" || text == "" {
		return nil
	}
	return &channel.InboundMessage{
		Channel:   channel.WhatsApp,
		UserID:    from,
		ChatID:    from,
		Text:      text,
		IsCommand: strings.HasPrefix(text, "/"),
	}
}

func (a *Adapter) HandleUpdate(ctx context.Context, raw []byte, sink channel.Sink) {
	if msg := a.Normalize(raw); msg != nil {
		sink.HandleMessage(ctx, msg)
	}
}
