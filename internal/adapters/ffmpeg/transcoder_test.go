package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

const probe1080p = `{
  "programs": [],
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080},
    {"codec_type": "audio", "sample_rate": "44100"}
  ],
  "format": {"duration": "10.000000"}
}`

const probeTiny = `{"streams": [{"codec_type": "video", "width": 640, "height": 360}], "format": {"duration": "0.300000"}}`

// fakeRunner answers ffprobe with canned JSON and simulates ffmpeg writes.
type fakeRunner struct {
	probeJSON string
	probeErr  error
	encodeErr error
	calls     []string
	lastArgs  []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (ports.CommandResult, error) {
	f.calls = append(f.calls, name)
	switch name {
	case "ffprobe-test":
		if f.probeErr != nil {
			return ports.CommandResult{ExitCode: 1}, f.probeErr
		}
		return ports.CommandResult{Stdout: f.probeJSON}, nil
	case "ffmpeg-test":
		f.lastArgs = append([]string(nil), args...)
		if f.encodeErr != nil {
			return ports.CommandResult{ExitCode: 1}, f.encodeErr
		}
		if err := os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644); err != nil {
			return ports.CommandResult{}, err
		}
		return ports.CommandResult{}, nil
	}
	return ports.CommandResult{}, errors.New("unexpected command " + name)
}

func newTestTranscoder(r *fakeRunner) *Transcoder {
	return NewTranscoder("ffmpeg-test", "ffprobe-test", r, nil)
}

func TestTranscodeSuccess(t *testing.T) {
	dir := t.TempDir()
	raw, out := filepath.Join(dir, "raw.mp4"), filepath.Join(dir, "processed.mp4")
	r := &fakeRunner{probeJSON: probe1080p}

	art, err := newTestTranscoder(r).Transcode(context.Background(), raw, out)
	if err != nil {
		t.Fatalf("Transcode error = %v", err)
	}
	if art.Kind != domain.ArtifactProcessed || art.Path != out {
		t.Fatalf("artifact = %+v", art)
	}
	if strings.Join(r.calls, ",") != "ffprobe-test,ffmpeg-test" {
		t.Fatalf("calls = %v", r.calls)
	}
	if argAfter(r.lastArgs, "-t") != "9.5" {
		t.Fatalf("-t = %q, want 9.5", argAfter(r.lastArgs, "-t"))
	}
	if !strings.Contains(argAfter(r.lastArgs, "-filter_complex"), "asetrate=44100*1.05") {
		t.Fatalf("filter graph = %s", argAfter(r.lastArgs, "-filter_complex"))
	}
}

func TestTranscodeShortSourceFailsValidation(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "processed.mp4")
	r := &fakeRunner{probeJSON: probeTiny}

	_, err := newTestTranscoder(r).Transcode(context.Background(), filepath.Join(dir, "raw.mp4"), out)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(domain.UserMessage(err), "too short") {
		t.Fatalf("user message = %q", domain.UserMessage(err))
	}
	if len(r.calls) != 1 {
		t.Fatalf("ffmpeg must not run for short sources, calls = %v", r.calls)
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Fatal("no processed artifact should exist")
	}
}

func TestTranscodeEncodeFailureIsProcessingError(t *testing.T) {
	dir := t.TempDir()
	toolErr := &domain.ToolError{Command: "ffmpeg-test", ExitCode: 1, Stderr: "/w/jobs/1/raw.mp4: Invalid data found when processing input"}
	r := &fakeRunner{probeJSON: probe1080p, encodeErr: toolErr}

	_, err := newTestTranscoder(r).Transcode(context.Background(), filepath.Join(dir, "raw.mp4"), filepath.Join(dir, "processed.mp4"))
	if !errors.Is(err, domain.ErrProcessing) {
		t.Fatalf("expected ErrProcessing, got %v", err)
	}
	var got *domain.ToolError
	if !errors.As(err, &got) || !strings.Contains(got.Stderr, "Invalid data") {
		t.Fatalf("diagnostics not wrapped: %v", err)
	}
	if msg := domain.UserMessage(err); strings.Contains(msg, "/w/jobs") {
		t.Fatalf("user message leaks a path: %q", msg)
	}
}

func TestTranscodeProbeFailure(t *testing.T) {
	tests := []struct {
		name string
		r    *fakeRunner
	}{
		{"tool error", &fakeRunner{probeErr: &domain.ToolError{Command: "ffprobe-test", ExitCode: 1}}},
		{"garbage output", &fakeRunner{probeJSON: "not json"}},
		{"missing duration", &fakeRunner{probeJSON: `{"format": {"duration": "N/A"}}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestTranscoder(tc.r).Transcode(context.Background(), "raw.mp4", filepath.Join(t.TempDir(), "processed.mp4"))
			if !errors.Is(err, domain.ErrProcessing) {
				t.Fatalf("expected ErrProcessing, got %v", err)
			}
		})
	}
}

func TestParseProbe(t *testing.T) {
	pr, err := ParseProbe([]byte(probe1080p))
	if err != nil {
		t.Fatalf("ParseProbe error = %v", err)
	}
	if pr.Duration != 10 || pr.Width != 1920 || pr.Height != 1080 || !pr.HasAudio || pr.SampleRate != 44100 {
		t.Fatalf("unexpected probe %+v", pr)
	}

	pr, err = ParseProbe([]byte(probeTiny))
	if err != nil {
		t.Fatalf("ParseProbe error = %v", err)
	}
	if pr.HasAudio {
		t.Fatal("tiny probe has no audio stream")
	}
}

func TestProbeArgs(t *testing.T) {
	args := probeArgs("/tmp/in.mp4")
	if args[len(args)-1] != "/tmp/in.mp4" || argAfter(args, "-of") != "json" {
		t.Fatalf("probe args = %v", args)
	}
	if !strings.Contains(argAfter(args, "-show_entries"), "format=duration") {
		t.Fatalf("probe must request duration: %v", args)
	}
}
