package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

// Defaults for the worker pool.
const (
	DefaultWorkers   = 3
	DefaultQueueSize = 32
)

const (
	msgStarted    = "🔥 Processing your video from %s...\nURL: %s"
	msgDone       = "✅ Done! Video processed successfully."
	msgSendFailed = "⚠️ Video processed but failed to send."
	msgFailed     = "⚠️ An error occurred: %s"
)

// Dependencies are the collaborators a job runs through. Cookies may be nil
// when no credential file is provisioned.
type Dependencies struct {
	Fetcher    ports.Fetcher
	Transcoder ports.Transcoder
	Notifier   ports.Notifier
	Workspace  ports.Workspace
	Cookies    ports.CookieSource
}

// Observer is called after every accepted status change. job.Status holds the
// new status.
type Observer func(job domain.Job, from domain.JobStatus)

// Options tune the pool.
type Options struct {
	Workers   int
	QueueSize int
	Observer  Observer
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
	Workers int `json:"workers"`
}

// Executor runs jobs through fetch, transcode and deliver on a fixed pool of
// workers fed by a bounded queue.
type Executor struct {
	deps     Dependencies
	logger   *slog.Logger
	observer Observer
	workers  int

	queue  chan domain.Job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	active atomic.Int32
}

// NewExecutor creates the executor and starts its workers.
func NewExecutor(deps Dependencies, opts Options, logger *slog.Logger) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Executor{
		deps:     deps,
		logger:   logger.With("component", "executor"),
		observer: opts.Observer,
		workers:  opts.Workers,
		queue:    make(chan domain.Job, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.logger.Info("executor started",
		slog.Int("workers", opts.Workers),
		slog.Int("queue_size", opts.QueueSize),
	)
	return e
}

// Submit validates sourceURL and enqueues a job. It returns the job id
// without waiting for processing.
func (e *Executor) Submit(sourceURL string, origin domain.Origin) (string, error) {
	job, err := newJob(sourceURL, origin)
	if err != nil {
		return "", err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return "", domain.ErrExecutorClosed
	}
	select {
	case e.queue <- job:
		e.logger.Info("job accepted",
			slog.String("job_id", job.ID),
			slog.String("origin", string(origin)),
			slog.String("url", job.SourceURL),
		)
		return job.ID, nil
	default:
		e.logger.Warn("job rejected, queue full", slog.String("url", job.SourceURL))
		return "", domain.ErrQueueFull
	}
}

// Run processes one job on the calling goroutine. It does not occupy a pool
// worker.
func (e *Executor) Run(sourceURL string, origin domain.Origin) (domain.JobResult, error) {
	job, err := newJob(sourceURL, origin)
	if err != nil {
		return domain.JobResult{}, err
	}
	result := e.process(job)
	return result, result.Err
}

// Stats reports queue depth and busy workers.
func (e *Executor) Stats() Stats {
	return Stats{
		Pending: len(e.queue),
		Active:  int(e.active.Load()),
		Workers: e.workers,
	}
}

// Shutdown stops admission and waits for queued and in-flight jobs to finish
// or for ctx to expire.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.logger.Info("executor drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown: %w", ctx.Err())
	}
}

func newJob(sourceURL string, origin domain.Origin) (domain.Job, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Job{}, domain.NewError(domain.ErrValidation, "submit", "invalid URL", err)
	}
	return domain.Job{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Origin:    origin,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (e *Executor) worker(n int) {
	defer e.wg.Done()
	for job := range e.queue {
		e.active.Add(1)
		e.process(job)
		e.active.Add(-1)
	}
	e.logger.Debug("worker exited", slog.Int("worker", n))
}

// jobRun tracks one job's mutable state while it is processed.
type jobRun struct {
	e      *Executor
	job    domain.Job
	logger *slog.Logger
}

func (r *jobRun) transition(to domain.JobStatus) bool {
	from := r.job.Status
	if !from.CanTransition(to) {
		r.logger.Error("invalid status transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		return false
	}
	r.job.Status = to
	r.logger.Debug("status changed", slog.String("from", string(from)), slog.String("to", string(to)))
	if r.e.observer != nil {
		r.e.observer(r.job, from)
	}
	return true
}

// process runs the full pipeline for job. Errors and panics never escape.
func (e *Executor) process(job domain.Job) (result domain.JobResult) {
	// Jobs are not cancelled by submitters going away.
	ctx := context.Background()
	r := &jobRun{e: e, job: job, logger: e.logger.With("job_id", job.ID)}
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic in pipeline: %v", rec)
			r.logger.Error("job panicked", slog.Any("panic", rec))
			r.fail(ctx, err)
			result.Err = err
		}
		result.Job = r.job
		result.CompletedAt = time.Now().UTC()
		r.logger.Info("job finished",
			slog.String("status", string(r.job.Status)),
			slog.Bool("delivered", result.Delivered),
			slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		)
	}()

	e.deps.Notifier.NotifyText(ctx, fmt.Sprintf(msgStarted, job.Origin.Label(), job.SourceURL))
	r.transition(domain.JobStatusFetching)

	if err := e.deps.Workspace.InitJob(ctx, job.ID); err != nil {
		result.Err = fmt.Errorf("init workspace: %w", err)
		r.fail(ctx, result.Err)
		return result
	}
	defer r.cleanup(ctx)

	raw, err := e.deps.Fetcher.Fetch(ctx, job.SourceURL, e.deps.Workspace.RawPath(job.ID), r.auth(ctx))
	if err != nil {
		result.Err = err
		r.fail(ctx, err)
		return result
	}
	raw.JobID = job.ID
	result.Artifacts = append(result.Artifacts, raw)
	r.logger.Info("source fetched", slog.String("size", fileSize(raw.Path)))

	r.transition(domain.JobStatusTranscoding)
	processed, err := e.deps.Transcoder.Transcode(ctx, raw.Path, e.deps.Workspace.ProcessedPath(job.ID))
	if err != nil {
		result.Err = err
		r.fail(ctx, err)
		return result
	}
	processed.JobID = job.ID
	result.Artifacts = append(result.Artifacts, processed)
	r.logger.Info("video rendered", slog.String("size", fileSize(processed.Path)))

	r.transition(domain.JobStatusDelivering)
	result.Delivered = e.deps.Notifier.NotifyArtifact(ctx, processed.Path)
	if result.Delivered {
		e.deps.Notifier.NotifyText(ctx, msgDone)
	} else {
		r.logger.Warn("processed video could not be delivered")
		e.deps.Notifier.NotifyText(ctx, msgSendFailed)
	}
	r.transition(domain.JobStatusSucceeded)
	return result
}

// auth snapshots the shared cookie file into the job directory. Snapshot
// failures downgrade to an anonymous fetch.
func (r *jobRun) auth(ctx context.Context) domain.AuthContext {
	cookies := r.e.deps.Cookies
	if cookies == nil {
		return domain.AuthContext{}
	}
	dst := r.e.deps.Workspace.CookiePath(r.job.ID)
	ok, err := cookies.Snapshot(ctx, dst)
	if err != nil {
		r.logger.Warn("cookie snapshot failed, fetching without cookies", slog.String("error", err.Error()))
		return domain.AuthContext{}
	}
	if !ok {
		return domain.AuthContext{}
	}
	return domain.AuthContext{CookieFile: dst}
}

func (r *jobRun) fail(ctx context.Context, err error) {
	if !r.transition(domain.JobStatusFailed) && !r.job.Status.IsTerminal() {
		r.job.Status = domain.JobStatusFailed
	}
	r.job.Error = err.Error()

	attrs := []any{slog.String("error", err.Error())}
	var toolErr *domain.ToolError
	if errors.As(err, &toolErr) {
		attrs = append(attrs, slog.Int("exit_code", toolErr.ExitCode), slog.String("stderr", toolErr.Stderr))
	}
	r.logger.Error("job failed", attrs...)
	r.e.deps.Notifier.NotifyText(ctx, fmt.Sprintf(msgFailed, domain.UserMessage(err)))
}

func (r *jobRun) cleanup(ctx context.Context) {
	if err := r.e.deps.Workspace.Cleanup(ctx, r.job.ID); err != nil {
		r.logger.Warn("cleanup incomplete", slog.String("error", err.Error()))
	}
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(info.Size()))
}
