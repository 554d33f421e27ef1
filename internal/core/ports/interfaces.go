package ports

import (
	"context"

	"reelcrop/internal/core/domain"
)

// CommandResult captures one external process invocation.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner executes an external tool as an isolated child process.
type CommandRunner interface {
	// Run starts exactly one process and waits for it. A non-zero exit is
	// returned as a *domain.ToolError alongside the captured result.
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// Fetcher resolves a source URL into a local raw media file.
type Fetcher interface {
	// Fetch stores the best combined audio+video representation of
	// sourceURL at destPath. One attempt, no retries.
	Fetch(ctx context.Context, sourceURL, destPath string, auth domain.AuthContext) (domain.Artifact, error)
}

// Transcoder renders a raw file into the fixed vertical layout.
type Transcoder interface {
	Transcode(ctx context.Context, rawPath, processedPath string) (domain.Artifact, error)
}

// Notifier delivers status text and artifacts to the single configured
// destination. Both calls are best-effort and report success as a bool.
type Notifier interface {
	NotifyText(ctx context.Context, message string) bool
	NotifyArtifact(ctx context.Context, path string) bool
}

// Workspace owns per-job temporary storage.
type Workspace interface {
	// InitJob creates the job directory.
	InitJob(ctx context.Context, jobID string) error

	// RawPath and ProcessedPath return artifact locations for a job.
	RawPath(jobID string) string
	ProcessedPath(jobID string) string

	// CookiePath returns where the job's auth snapshot lives.
	CookiePath(jobID string) string

	// Cleanup removes every file owned by the job. It attempts all removals
	// even when some fail and returns the joined errors.
	Cleanup(ctx context.Context, jobID string) error

	// GetJobPath returns the filesystem path for a given job ID.
	GetJobPath(jobID string) string
}

// CookieSource provides per-job immutable copies of the shared cookie file.
type CookieSource interface {
	// Snapshot copies the current cookie file to dst. ok is false when no
	// cookie file has been provisioned.
	Snapshot(ctx context.Context, dst string) (ok bool, err error)
}

// Submitter admits jobs into the executor. Front ends depend only on this.
type Submitter interface {
	Submit(sourceURL string, origin domain.Origin) (string, error)
}
