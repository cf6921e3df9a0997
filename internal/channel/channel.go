// Package channel defines the canonical message types shared by every
// messaging integration and the adapter contract they implement.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ID names one of the supported messaging channels. The set is closed;
// adapters register against one of these values.
type ID string

const (
	Telegram ID = "telegram"
	Viber    ID = "viber"
	WhatsApp ID = "whatsapp"
)

// All IDs in registration order.
var IDs = []ID{Telegram, Viber, WhatsApp}

func (id ID) Valid() bool {
	switch id {
	case Telegram, Viber, WhatsApp:
		return true
	}
	return false
}

// InboundMessage is the channel-agnostic form of a user text message.
type InboundMessage struct {
	Channel   ID
	UserID    string
	ChatID    string
	Text      string
	IsCommand bool
	Raw       []byte
}

// CallbackEvent is an inline-button press. Only channels with interactive
// keyboards produce these.
type CallbackEvent struct {
	Channel ID
	UserID  string
	ChatID  string
	Data    string
}

// MessageRef identifies a sent message for logging.
type MessageRef struct {
	Channel   ID
	ChatID    string
	MessageID string
}

// Button is one keyboard cell. Data is the callback payload for inline
// keyboards and ignored for reply keyboards.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of buttons. Inline keyboards attach to the message and
// produce CallbackEvents; reply keyboards replace the user's input keyboard.
type Keyboard struct {
	Inline  bool
	OneTime bool
	Rows    [][]Button
}

// SendOptions carries the optional parts of an outbound send. Channels
// without keyboard support drop the keyboard and send plain text.
type SendOptions struct {
	Keyboard       *Keyboard
	RemoveKeyboard bool
}

// Adapter is the uniform outbound contract per channel.
type Adapter interface {
	ID() ID
	SupportsPolling() bool
	SendText(ctx context.Context, chatID, text string, opts *SendOptions) (MessageRef, error)
}

// Receiver is implemented by adapters that can turn a raw webhook or polling
// payload into dispatch calls. Malformed payloads are dropped, never returned
// as errors.
type Receiver interface {
	HandleUpdate(ctx context.Context, raw []byte, sink Sink)
}

// Sink receives normalized inbound traffic. The dispatch engine implements it.
type Sink interface {
	HandleMessage(ctx context.Context, msg *InboundMessage)
	HandleCallback(ctx context.Context, ev *CallbackEvent)
}

var (
	ErrUnknownChannel      = errors.New("channel: unknown channel")
	ErrDuplicateAdapter    = errors.New("channel: adapter already registered")
	ErrPollingNotSupported = errors.New("channel: polling not supported")
)

// Registry holds the adapters active in this process, keyed by channel ID.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ID]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[ID]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	id := a.ID()
	if !id.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAdapter, id)
	}
	r.adapters[id] = a
	return nil
}

func (r *Registry) Get(id ID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// All returns the registered adapters in the fixed channel order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, id := range IDs {
		if a, ok := r.adapters[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
