package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelcrop/internal/adapters/httpapi"
	"reelcrop/internal/adapters/telegram"
	"reelcrop/internal/deps"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var drainTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			p, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			logger := p.logger

			for _, missing := range deps.Missing(deps.CheckBinaries(deps.Requirements(p.cfg))) {
				logger.Warn("dependency unavailable",
					slog.String("name", missing.Name),
					slog.String("detail", missing.Detail),
				)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := httpapi.New(httpapi.Options{
				Listen:   p.cfg.Server.Listen,
				APIToken: p.cfg.Server.APIToken,
				Executor: p.executor,
				Cookies:  p.cookies,
			}, logger)

			errCh := make(chan error, 2)
			go func() { errCh <- server.Serve(runCtx) }()

			if p.cfg.NotificationsEnabled() && p.cfg.Telegram.Polling {
				bot, err := telegram.NewBot(p.cfg.Telegram.BotToken, p.cfg.Telegram.APIBaseURL, p.executor, logger)
				if err != nil {
					stop()
					<-errCh
					return err
				}
				go func() { errCh <- bot.Run(runCtx) }()
			}

			var runErr error
			select {
			case <-runCtx.Done():
			case runErr = <-errCh:
				stop()
			}
			logger.Info("shutting down, waiting for in-flight jobs")

			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := p.executor.Shutdown(drainCtx); err != nil {
				logger.Error("jobs still running at exit", slog.String("error", err.Error()))
			}
			if runErr != nil {
				return fmt.Errorf("serve: %w", runErr)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 10*time.Minute, "How long to wait for in-flight jobs on shutdown")
	return cmd
}
