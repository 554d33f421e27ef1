package config

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Telegram: Telegram{
			APIBaseURL: "https://api.telegram.org",
			Polling:    true,
		},
		Server: Server{
			Listen: "0.0.0.0:5000",
		},
		Executor: Executor{
			Workers:   3,
			QueueSize: 32,
		},
		Paths: Paths{
			WorkDir:     "./data",
			CookiesFile: "cookies.txt",
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}
