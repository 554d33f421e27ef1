package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"reelcrop/internal/adapters/cookies"
	"reelcrop/internal/core/domain"
)

// HTTPDownloader implements ports.Fetcher for URLs that point straight at a
// media file.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// NewHTTPDownloader creates a new HTTPDownloader.
func NewHTTPDownloader(userAgent string) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 30 * time.Minute, // Videos can be large
		},
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Fetch streams the media at sourceURL into destPath.
func (d *HTTPDownloader) Fetch(ctx context.Context, sourceURL, destPath string, auth domain.AuthContext) (domain.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrUnsupportedSource, "fetch",
			"the URL could not be resolved to a playable video", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if err := d.attachCookies(req, auth); err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrAuth, "fetch",
			"authorization failed: the cookie file could not be read", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrDownload, "fetch", "", fmt.Errorf("failed to download video: %w", err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return domain.Artifact{}, err
	}

	file, err := os.Create(destPath)
	if err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrDownload, "fetch", "", fmt.Errorf("failed to create video file: %w", err))
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrDownload, "fetch", "", fmt.Errorf("failed to write video file: %w", err))
	}
	if err := file.Close(); err != nil {
		return domain.Artifact{}, domain.NewError(domain.ErrDownload, "fetch", "", fmt.Errorf("failed to close video file: %w", err))
	}
	return domain.Artifact{Path: destPath, Kind: domain.ArtifactRaw}, nil
}

func (d *HTTPDownloader) attachCookies(req *http.Request, auth domain.AuthContext) error {
	if auth.CookieFile == "" {
		return nil
	}
	all, err := cookies.LoadFile(auth.CookieFile)
	if err != nil {
		return err
	}
	for _, c := range cookies.ForHost(all, req.URL.Hostname(), d.now()) {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.NewError(domain.ErrAuth, "fetch",
			"authorization failed: the source rejected the request", fmt.Errorf("unexpected status code: %d", code))
	case code == http.StatusNotFound || code == http.StatusGone:
		return domain.NewError(domain.ErrUnsupportedSource, "fetch",
			"the URL could not be resolved to a playable video", fmt.Errorf("unexpected status code: %d", code))
	default:
		return domain.NewError(domain.ErrDownload, "fetch", "", fmt.Errorf("unexpected status code: %d", code))
	}
}
