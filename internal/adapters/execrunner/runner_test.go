package execrunner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"reelcrop/internal/core/domain"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesStreams(t *testing.T) {
	requireShell(t)
	r := New(nil)

	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Fatalf("stderr = %q", res.Stderr)
	}
}

func TestRunNonZeroExitReturnsToolError(t *testing.T) {
	requireShell(t)
	r := New(nil)

	res, err := r.Run(context.Background(), "sh", "-c", "echo boom 1>&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !errors.Is(err, domain.ErrToolExecution) {
		t.Fatalf("error %v should match ErrToolExecution", err)
	}
	var toolErr *domain.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *domain.ToolError, got %T", err)
	}
	if toolErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Fatalf("exit code = %d/%d, want 3", toolErr.ExitCode, res.ExitCode)
	}
	if !strings.Contains(toolErr.Stderr, "boom") {
		t.Fatalf("stderr not captured: %q", toolErr.Stderr)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := New(nil)
	_, err := r.Run(context.Background(), "reelcrop-definitely-missing-binary")
	if !errors.Is(err, domain.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
}
