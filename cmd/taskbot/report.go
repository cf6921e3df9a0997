package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskbot/internal/logutil"
	"taskbot/internal/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print today's task report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			tasks, err := openTaskStore(logger)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), report.Build(tasks.All(), tasks.Stats(), time.Now()))
			return err
		},
	}
}
