package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test message to the configured Telegram chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.NotificationsEnabled() {
				return errors.New("telegram credentials are not configured")
			}
			defer ctx.close()
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if !newNotifier(cfg, logger).NotifyText(cmd.Context(), "🔔 reelcrop test notification") {
				return errors.New("notification not sent")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
