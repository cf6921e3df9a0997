package main

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskbot/internal/channel"
	"taskbot/internal/channel/telegram"
	"taskbot/internal/channel/viber"
	"taskbot/internal/channel/whatsapp"
	"taskbot/internal/config"
	"taskbot/internal/dispatch"
	"taskbot/internal/logutil"
	"taskbot/internal/schedule"
	"taskbot/internal/webhook"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot: polling, webhooks and the daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			tasks, err := openTaskStore(logger)
			if err != nil {
				return err
			}
			cfgStore, err := openConfigStore(logger)
			if err != nil {
				return err
			}

			pollTimeout := flagOrViperDuration(cmd, "telegram-poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}
			sendTimeout := flagOrViperDuration(cmd, "send-timeout", "send_timeout")
			if sendTimeout <= 0 {
				sendTimeout = 30 * time.Second
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := channel.NewRegistry()
			tgAdapter := registerAdapters(registry, cfgStore, pollTimeout, logger)

			windowDays := flagOrViperInt(cmd, "calendar-window-days", "calendar.window_days")
			maxResults := flagOrViperInt(cmd, "calendar-max-results", "calendar.max_results")
			syncer, err := newCalendarSyncer(ctx, tasks, logger, windowDays, maxResults)
			if err != nil {
				logger.Warn("calendar_init_error", "error", err.Error())
			}

			opts := dispatch.Options{
				Registry:    registry,
				Tasks:       tasks,
				Config:      cfgStore,
				Logger:      logger,
				SendTimeout: sendTimeout,
			}
			if syncer != nil {
				opts.Calendar = syncer
			}
			engine := dispatch.New(opts)

			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := tgAdapter.RunPolling(ctx, engine); err != nil {
					logger.Error("telegram_polling_error", "error", err.Error())
				}
			}()

			reportAt := flagOrViperString(cmd, "report-at", "report.at")
			if reportAt == "" {
				reportAt = "20:00"
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				logger.Info("report_schedule", "at", reportAt)
				if err := schedule.Daily(ctx, reportAt, engine.BroadcastReport); err != nil {
					logger.Error("report_schedule_error", "error", err.Error())
				}
			}()

			listen := flagOrViperString(cmd, "listen", "server.listen")
			srv := webhook.NewServer(listen, registry, engine, logger)
			srv.VerifyToken = flagOrViperString(cmd, "whatsapp-verify-token", "whatsapp.verify_token")
			err = srv.Run(ctx)

			stop()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().String("listen", "127.0.0.1:8080", "Webhook listen address.")
	cmd.Flags().String("report-at", "20:00", "Daily report time (HH:MM, local).")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().Duration("send-timeout", 30*time.Second, "Outbound send timeout per message.")
	cmd.Flags().Int("calendar-window-days", 7, "Calendar sync window in days.")
	cmd.Flags().Int("calendar-max-results", 50, "Calendar sync max events per run.")
	cmd.Flags().String("whatsapp-verify-token", "", "WhatsApp webhook verify token.")

	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("report.at", cmd.Flags().Lookup("report-at"))
	_ = viper.BindPFlag("telegram.poll_timeout", cmd.Flags().Lookup("telegram-poll-timeout"))
	_ = viper.BindPFlag("send_timeout", cmd.Flags().Lookup("send-timeout"))
	_ = viper.BindPFlag("calendar.window_days", cmd.Flags().Lookup("calendar-window-days"))
	_ = viper.BindPFlag("calendar.max_results", cmd.Flags().Lookup("calendar-max-results"))
	_ = viper.BindPFlag("whatsapp.verify_token", cmd.Flags().Lookup("whatsapp-verify-token"))

	return cmd
}

// registerAdapters builds one adapter per channel and returns the telegram
// adapter for polling. Every adapter reads its credentials from the config
// store per request, so a token saved through the /settings flow is used
// immediately and channels without a token can still carry the settings
// conversation.
func registerAdapters(registry *channel.Registry, cfgStore *config.Store, pollTimeout time.Duration, logger *slog.Logger) *telegram.Adapter {
	tokenFor := func(id channel.ID) func() string {
		return func() string { return cfgStore.Get(id).Token }
	}

	tgAdapter := telegram.NewAdapter(
		telegram.NewAPIWithSource(nil, "", tokenFor(channel.Telegram)), logger)
	tgAdapter.PollTimeout = pollTimeout

	adapters := []channel.Adapter{
		tgAdapter,
		viber.NewAdapterWithSource(nil, "", tokenFor(channel.Viber), logger),
		whatsapp.NewAdapterWithSource(nil, "", tokenFor(channel.WhatsApp),
			func() string { return cfgStore.Get(channel.WhatsApp).Extra["phone_number_id"] },
			logger),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			logger.Warn("adapter_register_error", "channel", string(a.ID()), "error", err.Error())
		}
	}
	return tgAdapter
}
