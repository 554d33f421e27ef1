package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

// DefaultUserAgent is sent to sources that gate content on browser UAs.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Precompiled stderr classifiers. Auth is checked first because sources
// often report a login wall as "unavailable".
var (
	reAuthIssue = regexp.MustCompile(
		`(?i)login required|log in|sign in to confirm|cookies.*(expired|invalid|no longer valid)|` +
			`HTTP Error 401|HTTP Error 403|private (video|account|post)|rate-limit reached or login`)

	reUnsupported = regexp.MustCompile(
		`(?i)Unsupported URL|No video formats found|is not a valid URL|HTTP Error 404|` +
			`There is no video in this post|Requested format is not available|This video is unavailable`)
)

// YtDlpDownloader fetches source media with the yt-dlp binary.
type YtDlpDownloader struct {
	binaryPath string
	userAgent  string
	runner     ports.CommandRunner
	logger     *slog.Logger
}

// NewYtDlpDownloader creates a new downloader. An empty binaryPath resolves
// yt-dlp from PATH.
func NewYtDlpDownloader(binaryPath string, runner ports.CommandRunner, logger *slog.Logger) *YtDlpDownloader {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = "yt-dlp"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &YtDlpDownloader{
		binaryPath: binaryPath,
		userAgent:  DefaultUserAgent,
		runner:     runner,
		logger:     logger.With("component", "ytdlp"),
	}
}

// WithUserAgent overrides the user agent sent to sources. Blank values keep
// the default.
func (d *YtDlpDownloader) WithUserAgent(ua string) *YtDlpDownloader {
	if ua = strings.TrimSpace(ua); ua != "" {
		d.userAgent = ua
	}
	return d
}

// Fetch downloads the best audio+video representation of sourceURL into
// destPath, merging separate streams into one mp4 container.
func (d *YtDlpDownloader) Fetch(ctx context.Context, sourceURL, destPath string, auth domain.AuthContext) (domain.Artifact, error) {
	args := d.buildArgs(sourceURL, destPath, auth)

	if _, err := d.runner.Run(ctx, d.binaryPath, args...); err != nil {
		return domain.Artifact{}, classify(err)
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return domain.Artifact{}, domain.NewError(domain.ErrDownload, "fetch",
			"the download finished without producing a video file", err)
	}

	d.logger.Debug("download complete", slog.String("url", sourceURL), slog.Int64("bytes", info.Size()))
	return domain.Artifact{Path: destPath, Kind: domain.ArtifactRaw}, nil
}

func (d *YtDlpDownloader) buildArgs(sourceURL, destPath string, auth domain.AuthContext) []string {
	// bestvideo+bestaudio/best: merge separate streams, else best combined
	args := []string{
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--quiet",
		"--user-agent", d.userAgent,
		"-o", destPath,
	}
	if auth.CookieFile != "" {
		args = append(args, "--cookies", auth.CookieFile)
	}
	return append(args, "--", sourceURL)
}

func classify(err error) error {
	var toolErr *domain.ToolError
	if !errors.As(err, &toolErr) {
		return domain.NewError(domain.ErrDownload, "fetch", "", err)
	}
	stderr := toolErr.Stderr
	switch {
	case reAuthIssue.MatchString(stderr):
		return domain.NewError(domain.ErrAuth, "fetch",
			"authorization failed: the source rejected the cookies (they may have expired)", err)
	case reUnsupported.MatchString(stderr):
		return domain.NewError(domain.ErrUnsupportedSource, "fetch",
			"the URL could not be resolved to a playable video", err)
	default:
		return domain.NewError(domain.ErrDownload, "fetch",
			fmt.Sprintf("the video could not be downloaded (yt-dlp exit code %d)", toolErr.ExitCode), err)
	}
}
