package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"taskbot/internal/channel"
	"taskbot/internal/config"
)

func TestRegisterAdaptersWithEmptyConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Open(filepath.Join(t.TempDir(), "messenger_config.json"), nil)
	if err != nil {
		t.Fatalf("config.Open() error = %v", err)
	}

	registry := channel.NewRegistry()
	tg := registerAdapters(registry, cfg, 30*time.Second, slog.Default())
	if tg == nil {
		t.Fatalf("registerAdapters() telegram adapter = nil")
	}
	// Every channel is registered even before any token is saved, so the
	// settings conversation can run on an unconfigured channel.
	if got := len(registry.All()); got != len(channel.IDs) {
		t.Fatalf("registered adapters = %d, want %d", got, len(channel.IDs))
	}
	for _, id := range channel.IDs {
		if _, ok := registry.Get(id); !ok {
			t.Fatalf("channel %s not registered", id)
		}
	}
}
