package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reelcrop/internal/core/ports"
)

// ProbeResult is the subset of ffprobe output the render depends on.
type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	HasAudio   bool
	SampleRate int
}

// probeArgs asks for format duration plus the stream fields used by the plan.
func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height,sample_rate",
		"-of", "json",
		path,
	}
}

// Probe runs a single ffprobe JSON call against path.
func Probe(ctx context.Context, runner ports.CommandRunner, binary, path string) (ProbeResult, error) {
	res, err := runner.Run(ctx, binary, probeArgs(path)...)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe: %w", err)
	}
	return ParseProbe([]byte(res.Stdout))
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
}

// ParseProbe converts raw ffprobe JSON output into a ProbeResult.
func ParseProbe(data []byte) (ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(raw.Format.Duration), 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	if duration < 0 {
		return ProbeResult{}, errors.New("negative duration")
	}

	pr := ProbeResult{Duration: duration}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if pr.Width == 0 && s.Width > 0 && s.Height > 0 {
				pr.Width, pr.Height = s.Width, s.Height
			}
		case "audio":
			if !pr.HasAudio {
				pr.HasAudio = true
				pr.SampleRate, _ = strconv.Atoi(strings.TrimSpace(s.SampleRate))
			}
		}
	}
	return pr, nil
}
