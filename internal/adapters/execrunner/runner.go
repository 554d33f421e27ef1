package execrunner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

// Runner implements ports.CommandRunner with os/exec.
type Runner struct {
	logger *slog.Logger
}

// New creates a Runner. A nil logger discards debug output.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger.With("component", "exec")}
}

// Run executes one command and captures stdout, stderr and exit code.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	r.logger.Debug("command finished",
		slog.String("command", name),
		slog.String("args", strings.Join(args, " ")),
		slog.Duration("elapsed", time.Since(started)),
	)

	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, &domain.ToolError{
			Command:  name,
			Args:     append([]string(nil), args...),
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}
	return result, nil
}
