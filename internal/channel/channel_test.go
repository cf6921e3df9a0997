package channel

import (
	"context"
	"errors"
	"testing"
)

type stubAdapter struct {
	id ID
}

func (s *stubAdapter) ID() ID                { return s.id }
func (s *stubAdapter) SupportsPolling() bool { return false }

func (s *stubAdapter) SendText(_ context.Context, chatID, _ string, _ *SendOptions) (MessageRef, error) {
	return MessageRef{Channel: s.id, ChatID: chatID}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubAdapter{id: Telegram}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	a, ok := r.Get(Telegram)
	if !ok {
		t.Fatalf("Get(telegram) ok = false, want true")
	}
	if a.ID() != Telegram {
		t.Fatalf("Get(telegram) id = %s, want telegram", a.ID())
	}
	if _, ok := r.Get(Viber); ok {
		t.Fatalf("Get(viber) ok = true, want false")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubAdapter{id: Viber}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&stubAdapter{id: Viber}); !errors.Is(err, ErrDuplicateAdapter) {
		t.Fatalf("Register() error = %v, want ErrDuplicateAdapter", err)
	}
}

func TestRegistryRejectsUnknownID(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&stubAdapter{id: ID("smoke")}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("Register() error = %v, want ErrUnknownChannel", err)
	}
}

func TestRegistryAllOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, id := range []ID{WhatsApp, Telegram, Viber} {
		if err := r.Register(&stubAdapter{id: id}); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}
	all := r.All()
	want := []ID{Telegram, Viber, WhatsApp}
	if len(all) != len(want) {
		t.Fatalf("All() len = %d, want %d", len(all), len(want))
	}
	for i, a := range all {
		if a.ID() != want[i] {
			t.Fatalf("All()[%d] = %s, want %s", i, a.ID(), want[i])
		}
	}
}
