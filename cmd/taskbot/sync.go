package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskbot/internal/logutil"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-shot Google Calendar import",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			tasks, err := openTaskStore(logger)
			if err != nil {
				return err
			}

			windowDays := flagOrViperInt(cmd, "window-days", "calendar.window_days")
			maxResults := flagOrViperInt(cmd, "max-results", "calendar.max_results")
			syncer, err := newCalendarSyncer(cmd.Context(), tasks, logger, windowDays, maxResults)
			if err != nil {
				return err
			}
			if syncer == nil {
				return fmt.Errorf("calendar credentials not found (expected oauth_client.json and token.json under %s)", stateDir())
			}

			added, err := syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d new task(s).\n", added)
			return err
		},
	}

	cmd.Flags().Int("window-days", 7, "Calendar sync window in days.")
	cmd.Flags().Int("max-results", 50, "Calendar sync max events per run.")
	return cmd
}
