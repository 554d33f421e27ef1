package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelcrop/internal/core/domain"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <url>",
		Short: "Process one URL in the foreground and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			p, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer p.executor.Shutdown(cmd.Context())

			result, runErr := p.executor.Run(args[0], domain.OriginCLI)
			fmt.Fprintln(cmd.OutOrStdout(), renderJobSummary(result, runErr))
			return runErr
		},
	}
}

func renderJobSummary(result domain.JobResult, err error) string {
	rows := [][]string{
		{"Job ID", valueOr(result.Job.ID, "-")},
		{"URL", valueOr(result.Job.SourceURL, "-")},
		{"Status", valueOr(string(result.Job.Status), string(domain.JobStatusFailed))},
		{"Delivered", yesNo(result.Delivered)},
	}
	if !result.Job.CreatedAt.IsZero() && !result.CompletedAt.IsZero() {
		elapsed := result.CompletedAt.Sub(result.Job.CreatedAt).Round(time.Millisecond)
		rows = append(rows, []string{"Elapsed", elapsed.String()})
		rows = append(rows, []string{"Completed", humanize.Time(result.CompletedAt)})
	}
	if err != nil {
		rows = append(rows, []string{"Error", domain.UserMessage(err)})
	}
	return renderTable([]string{"Field", "Value"}, rows)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
