// Package ffmpeg renders raw source media into the fixed vertical short-form
// layout.
//
// The render is described by a Plan, a structured filter graph built from the
// fixed Parameters and the probed source. The plan is turned into an ffmpeg
// argument list by BuildArgs and executed through a ports.CommandRunner, so
// every stage (crop, background, foreground, overlay, speed and pitch, trim)
// can be inspected in tests without invoking real binaries.
package ffmpeg

// Parameters holds every numeric and codec setting of the render. They are
// constant across jobs; changing them changes output determinism.
type Parameters struct {
	// Layout.
	CropBandPx      int     // Rows removed from the source, half top and half bottom.
	CanvasWidth     int     // Output width.
	CanvasHeight    int     // Output height.
	ForegroundScale float64 // Foreground size relative to its fitted size.
	BlurSigma       float64 // Background gaussian blur sigma.
	NoiseStrength   int     // Foreground grain strength.

	// Timing.
	SpeedFactor         float64 // Video and audio tempo multiplier.
	PitchFactor         float64 // Audio pitch multiplier.
	TrimTrailingSeconds float64 // Seconds dropped from the end of the output.
	FrameRate           string  // Input frame rate forced before decoding.

	// Encoding.
	VideoCodec        string
	CRF               int
	Preset            string
	PixelFormat       string
	AudioCodec        string
	AudioBitrate      string
	DefaultSampleRate int // Used when the probe reports no sample rate.
}

// DefaultParameters returns the render settings used for every job.
func DefaultParameters() Parameters {
	return Parameters{
		CropBandPx:      300,
		CanvasWidth:     1080,
		CanvasHeight:    1920,
		ForegroundScale: 0.90,
		BlurSigma:       15,
		NoiseStrength:   10,

		SpeedFactor:         1.1,
		PitchFactor:         1.05,
		TrimTrailingSeconds: 0.5,
		FrameRate:           "29.97",

		VideoCodec:        "libx264",
		CRF:               23,
		Preset:            "fast",
		PixelFormat:       "yuv420p",
		AudioCodec:        "aac",
		AudioBitrate:      "192k",
		DefaultSampleRate: 44100,
	}
}
