package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"slot-notifier/internal/bot"
	"slot-notifier/internal/config"
	"slot-notifier/internal/notify"
)

func newRootCmd() *cobra.Command {
	var visible bool

	root := &cobra.Command{
		Use:           "slot-notifier",
		Short:         "Polls the driving-test booking portal and reports free slots to Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd.Context(), visible)
		},
	}
	root.PersistentFlags().BoolVarP(&visible, "visible", "v", false, "show the browser window instead of running headless")

	root.AddCommand(newOnceCmd(&visible))
	root.AddCommand(newNotifyTestCmd())
	return root
}

func newOnceCmd(visible *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single appointment check and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, notifier, err := setup()
			if err != nil {
				return err
			}
			return bot.InitBot(appConfig, notifier, *visible).CheckAppointments(cmd.Context())
		},
	}
}

func newNotifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test message to the configured Telegram chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, notifier, err := setup()
			if err != nil {
				return err
			}
			return notifier.SendStartupMessage(cmd.Context(), appConfig.Locations, appConfig.CheckInterval)
		},
	}
}

func setup() (*config.AppConfig, *notify.Notifier, error) {
	appConfig, err := config.ParseConfiguration()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse configuration with error[%w]", err)
	}

	telegram, err := notify.NewTelegramSender(appConfig.TelegramBotToken, appConfig.TelegramChatId)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telegram bot with error[%w]", err)
	}

	var desktop notify.DesktopSender
	if appConfig.DesktopNotifications {
		desktop = notify.DesktopAlert{}
	}

	quiet := notify.QuietHours{
		Location: appConfig.Timezone,
		Start:    appConfig.QuietHourStart,
		End:      appConfig.QuietHourEnd,
	}
	return appConfig, notify.New(telegram, desktop, quiet), nil
}

// runPoller checks until ctx is cancelled by SIGINT or SIGTERM.
func runPoller(ctx context.Context, visible bool) error {
	appConfig, notifier, err := setup()
	if err != nil {
		return err
	}

	log.Println("🚀 Starting driving-test slot notifier...")
	slotBot := bot.InitBot(appConfig, notifier, visible)

	log.Printf("🎯 Regular checks starting with check-interval[%v]", appConfig.CheckInterval)
	bot.NewRunner(appConfig.CheckInterval, slotBot.CheckAppointments).Run(ctx)

	log.Println("Shutting down...")
	return nil
}
