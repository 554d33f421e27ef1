package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelcrop/internal/config"
	"reelcrop/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderDependencyTable(statuses))
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, configRows(cfg)))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return errors.New("required tools are missing")
			}
			return nil
		},
	}
}

func renderDependencyTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		detail := s.Path
		if !s.Available {
			state = "missing"
			detail = s.Detail
		}
		rows = append(rows, []string{s.Name, s.Command, state, detail})
	}
	return renderTable([]string{"Tool", "Command", "Status", "Detail"}, rows)
}

func configRows(cfg *config.Config) [][]string {
	cookieState := "not provisioned"
	if info, err := os.Stat(cfg.Paths.CookiesFile); err == nil {
		cookieState = fmt.Sprintf("%s (%s, updated %s)", cfg.Paths.CookiesFile,
			humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	return [][]string{
		{"Notifications", yesNo(cfg.NotificationsEnabled())},
		{"Bot polling", yesNo(cfg.NotificationsEnabled() && cfg.Telegram.Polling)},
		{"Listen", cfg.Server.Listen},
		{"Work dir", cfg.Paths.WorkDir},
		{"Cookies", cookieState},
		{"Workers", fmt.Sprint(cfg.Executor.Workers)},
		{"Queue size", fmt.Sprint(cfg.Executor.QueueSize)},
	}
}
