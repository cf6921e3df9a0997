// Package config persists per-channel messenger configuration as one JSON
// document. Every change is written through immediately.
package config

import (
	"fmt"
	"log/slog"
	"sync"

	"taskbot/internal/channel"
	"taskbot/internal/fsstore"
)

// ChannelConfig is the stored state for one messaging channel. ChatID is
// captured from the first inbound message when empty.
type ChannelConfig struct {
	Token      string            `json:"token,omitempty"`
	ChatID     string            `json:"chat_id,omitempty"`
	WebhookURL string            `json:"webhook_url,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

type document struct {
	Channels map[channel.ID]ChannelConfig `json:"channels"`
}

// Store is the lock-guarded channel configuration set.
type Store struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	channels map[channel.ID]ChannelConfig
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:     path,
		logger:   logger,
		channels: make(map[channel.ID]ChannelConfig),
	}
	var doc document
	found, err := fsstore.ReadJSON(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	if found && doc.Channels != nil {
		s.channels = doc.Channels
	}
	return s, nil
}

func (s *Store) save() error {
	if err := fsstore.WriteJSONAtomic(s.path, document{Channels: s.channels}); err != nil {
		s.logger.Error("config_store_save_error", "path", s.path, "error", err)
		return err
	}
	return nil
}

// Get returns the configuration for id, zero-valued when unset.
func (s *Store) Get(id channel.ID) ChannelConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[id]
}

// Set replaces the whole configuration for id.
func (s *Store) Set(id channel.ID, cfg ChannelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[id] = cfg
	return s.save()
}

func (s *Store) SetToken(id channel.ID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.channels[id]
	cfg.Token = token
	s.channels[id] = cfg
	return s.save()
}

func (s *Store) SetChatID(id channel.ID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.channels[id]
	cfg.ChatID = chatID
	s.channels[id] = cfg
	return s.save()
}

// HasToken reports whether a bot token is configured for id.
func (s *Store) HasToken(id channel.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[id].Token != ""
}

// Configured returns the channels that have both a token and a chat captured,
// in the fixed channel order. These are the broadcast targets for the daily
// report.
func (s *Store) Configured() []channel.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []channel.ID
	for _, id := range channel.IDs {
		cfg := s.channels[id]
		if cfg.Token != "" && cfg.ChatID != "" {
			out = append(out, id)
		}
	}
	return out
}
