package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrDownload          = errors.New("download failed")
	ErrAuth              = errors.New("authorization rejected")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrValidation        = errors.New("validation failed")
	ErrToolExecution     = errors.New("tool execution failed")
	ErrProcessing        = errors.New("processing failed")
	ErrDelivery          = errors.New("delivery failed")

	ErrQueueFull      = errors.New("job queue is full")
	ErrExecutorClosed = errors.New("executor is shut down")
)

// Error is a classified pipeline failure. Kind is one of the sentinel errors
// above; Message is safe to show to end users.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

// NewError builds a classified error.
func NewError(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return e != nil && e.Kind != nil && target == e.Kind
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ToolError reports a subprocess that exited non-zero or failed to start.
type ToolError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if stderr := lastLine(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Is matches ErrToolExecution.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolExecution
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage renders err as a short cause for end users. It never includes
// file paths or tool output.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) && pipelineErr.Message != "" {
		return pipelineErr.Message
	}
	switch {
	case errors.Is(err, ErrAuth):
		return "authorization failed: the source rejected the provided cookies"
	case errors.Is(err, ErrUnsupportedSource):
		return "the URL could not be resolved to a playable video"
	case errors.Is(err, ErrDownload):
		return "the video could not be downloaded"
	case errors.Is(err, ErrValidation):
		return "the request was invalid"
	case errors.Is(err, ErrProcessing), errors.Is(err, ErrToolExecution):
		return "video processing failed"
	case errors.Is(err, ErrDelivery):
		return "the video could not be delivered"
	default:
		return "unexpected internal error"
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
