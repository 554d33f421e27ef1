package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

// Transcoder implements ports.Transcoder on top of ffprobe and ffmpeg.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	params      Parameters
	runner      ports.CommandRunner
	logger      *slog.Logger
}

// NewTranscoder creates a Transcoder with the fixed render parameters. Empty
// binary paths resolve from PATH.
func NewTranscoder(ffmpegPath, ffprobePath string, runner ports.CommandRunner, logger *slog.Logger) *Transcoder {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		params:      DefaultParameters(),
		runner:      runner,
		logger:      logger.With("component", "transcoder"),
	}
}

// Transcode probes rawPath, validates its duration and renders processedPath
// in a single ffmpeg pass.
func (t *Transcoder) Transcode(ctx context.Context, rawPath, processedPath string) (domain.Artifact, error) {
	probe, err := Probe(ctx, t.runner, t.ffprobePath, rawPath)
	if err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrProcessing, "probe",
			"the downloaded file could not be read as a video", err)
	}

	if OutputDuration(t.params, probe.Duration) <= 0 {
		return domain.Artifact{}, domain.NewError(domain.ErrValidation, "transcode",
			fmt.Sprintf("source too short: %.2fs video cannot lose its final %.1fs",
				probe.Duration, t.params.TrimTrailingSeconds), nil)
	}

	plan, err := BuildPlan(t.params, probe, rawPath, processedPath)
	if err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrValidation, "transcode", "source too short", err)
	}

	t.logger.Debug("rendering",
		slog.Float64("source_seconds", probe.Duration),
		slog.Float64("output_seconds", plan.Duration),
		slog.Int("source_width", probe.Width),
		slog.Int("source_height", probe.Height),
		slog.Bool("audio", probe.HasAudio),
	)

	if _, err := t.runner.Run(ctx, t.ffmpegPath, BuildArgs(plan)...); err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrProcessing, "transcode", "video processing failed", err)
	}

	if info, err := os.Stat(processedPath); err != nil || info.Size() == 0 {
		return domain.Artifact{}, domain.NewError(domain.ErrProcessing, "transcode",
			"video processing produced no output", err)
	}
	return domain.Artifact{Path: processedPath, Kind: domain.ArtifactProcessed}, nil
}
