package ffmpeg

import "strconv"

// BuildArgs constructs the ffmpeg argument list (without the binary name)
// for a plan.
func BuildArgs(plan Plan) []string {
	p := plan.Params
	args := make([]string, 0, 48)

	// --- Preamble ---
	args = append(args, "-hide_banner", "-nostdin", "-loglevel", "error", "-y")

	// --- Input (frame rate forced before decoding) ---
	args = append(args, "-r", p.FrameRate, "-i", plan.Input)

	// --- Filter graph and maps ---
	args = append(args, "-filter_complex", plan.FilterGraph())
	args = append(args, "-map", "["+plan.VideoLabel+"]")
	if plan.AudioLabel != "" {
		args = append(args, "-map", "["+plan.AudioLabel+"]")
	}

	// --- Trim ---
	args = append(args, "-ss", "0", "-t", formatSeconds(plan.Duration))

	// --- Codecs ---
	args = append(args,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
	)
	if plan.AudioLabel != "" {
		args = append(args, "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate)
	} else {
		args = append(args, "-an")
	}

	// --- Container: no metadata, moov atom up front ---
	args = append(args, "-map_metadata", "-1", "-movflags", "+faststart")

	return append(args, plan.Output)
}
