package domain

import "time"

// Origin tags where a job submission came from.
type Origin string

const (
	OriginAPIGet  Origin = "API-GET"
	OriginAPIPost Origin = "API-POST"
	OriginMessage Origin = "MESSAGE"
	OriginCLI     Origin = "CLI"
)

// Label returns the origin as shown to the end user.
func (o Origin) Label() string {
	switch o {
	case OriginMessage:
		return "Telegram"
	case "":
		return "API"
	default:
		return string(o)
	}
}

// JobStatus is the lifecycle stage of a job.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusFetching    JobStatus = "fetching"
	JobStatusTranscoding JobStatus = "transcoding"
	JobStatusDelivering  JobStatus = "delivering"
	JobStatusSucceeded   JobStatus = "succeeded"
	JobStatusFailed      JobStatus = "failed"
)

// IsTerminal reports whether no further transitions follow this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// IsActive reports whether a worker slot is held in this status.
func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusFetching, JobStatusTranscoding, JobStatusDelivering:
		return true
	default:
		return false
	}
}

// CanTransition enforces the job state machine edges.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobStatusPending:
		return to == JobStatusFetching
	case JobStatusFetching:
		return to == JobStatusTranscoding || to == JobStatusFailed
	case JobStatusTranscoding:
		return to == JobStatusDelivering || to == JobStatusFailed
	case JobStatusDelivering:
		return to == JobStatusSucceeded
	default:
		return false
	}
}

// Job represents a single fetch-transcode-deliver request.
type Job struct {
	ID        string    `json:"job_id"`
	SourceURL string    `json:"url"`
	Origin    Origin    `json:"origin"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`
}

// ArtifactKind distinguishes downloaded from rendered media.
type ArtifactKind string

const (
	ArtifactRaw       ArtifactKind = "raw"
	ArtifactProcessed ArtifactKind = "processed"
)

// Artifact is a temporary media file owned by exactly one job.
type Artifact struct {
	Path  string
	Kind  ArtifactKind
	JobID string
}

// AuthContext points at the cookie material a fetch may use. The file is a
// per-job snapshot and is never rewritten while the job runs.
type AuthContext struct {
	CookieFile string
}

// JobResult holds the outcome of a completed job. Artifacts lists what the job
// produced in stage order; the files are already removed by then.
type JobResult struct {
	Job         Job
	Artifacts   []Artifact
	Delivered   bool
	Err         error
	CompletedAt time.Time
}
