package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"taskbot/internal/calendar"
	"taskbot/internal/config"
	"taskbot/internal/task"
)

func stateDir() string {
	dir := strings.TrimSpace(viper.GetString("state_dir"))
	if dir == "" {
		dir = "state"
	}
	return dir
}

func tasksPath() string {
	return filepath.Join(stateDir(), "tasks.json")
}

func messengerConfigPath() string {
	return filepath.Join(stateDir(), "messenger_config.json")
}

func openTaskStore(logger *slog.Logger) (*task.Store, error) {
	return task.OpenStore(tasksPath(), logger)
}

func openConfigStore(logger *slog.Logger) (*config.Store, error) {
	return config.Open(messengerConfigPath(), logger)
}

func calendarCredentialPaths() (oauthClientPath, tokenPath string) {
	oauthClientPath = strings.TrimSpace(viper.GetString("calendar.oauth_client_path"))
	if oauthClientPath == "" {
		oauthClientPath = filepath.Join(stateDir(), "oauth_client.json")
	}
	tokenPath = strings.TrimSpace(viper.GetString("calendar.token_path"))
	if tokenPath == "" {
		tokenPath = filepath.Join(stateDir(), "token.json")
	}
	return oauthClientPath, tokenPath
}

// newCalendarSyncer wires the Google client when credentials are present on
// disk; otherwise calendar sync stays disabled.
func newCalendarSyncer(ctx context.Context, tasks *task.Store, logger *slog.Logger, windowDays, maxResults int) (*calendar.Syncer, error) {
	oauthClientPath, tokenPath := calendarCredentialPaths()
	if _, err := os.Stat(oauthClientPath); err != nil {
		return nil, nil
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, nil
	}
	client, err := calendar.NewGoogleClient(ctx, oauthClientPath, tokenPath)
	if err != nil {
		return nil, err
	}
	return calendar.NewSyncer(client, tasks, logger, windowDays, maxResults), nil
}
