package config

import (
	"path/filepath"
	"testing"

	"taskbot/internal/channel"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "messenger_config.json")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SetToken(channel.Telegram, "123:abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if err := s.SetChatID(channel.Telegram, "42"); err != nil {
		t.Fatalf("SetChatID() error = %v", err)
	}
	if err := s.Set(channel.WhatsApp, ChannelConfig{
		Token: "wa-token",
		Extra: map[string]string{"phone_number_id": "555"},
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reloaded, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() reload error = %v", err)
	}
	tg := reloaded.Get(channel.Telegram)
	if tg.Token != "123:abc" || tg.ChatID != "42" {
		t.Fatalf("Get(telegram) = %+v", tg)
	}
	wa := reloaded.Get(channel.WhatsApp)
	if wa.Extra["phone_number_id"] != "555" {
		t.Fatalf("Get(whatsapp) = %+v", wa)
	}
}

func TestConfigured(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "cfg.json"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := s.Configured(); len(got) != 0 {
		t.Fatalf("Configured() = %v, want empty", got)
	}
	if err := s.SetToken(channel.Viber, "v-token"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	// Token without a captured chat is not a broadcast target.
	if got := s.Configured(); len(got) != 0 {
		t.Fatalf("Configured() = %v, want empty", got)
	}
	if err := s.SetChatID(channel.Viber, "viber-user"); err != nil {
		t.Fatalf("SetChatID() error = %v", err)
	}
	got := s.Configured()
	if len(got) != 1 || got[0] != channel.Viber {
		t.Fatalf("Configured() = %v, want [viber]", got)
	}
}

func TestHasToken(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "cfg.json"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.HasToken(channel.Telegram) {
		t.Fatalf("HasToken() = true, want false")
	}
	if err := s.SetToken(channel.Telegram, "t"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if !s.HasToken(channel.Telegram) {
		t.Fatalf("HasToken() = false, want true")
	}
}
