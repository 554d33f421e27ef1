package downloader

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

var errNoFetcher = errors.New("no fetcher configured")

var directExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mov":  {},
	".webm": {},
	".mkv":  {},
}

// Router sends direct media links to the HTTP downloader and everything else
// to the extractor.
type Router struct {
	direct    ports.Fetcher
	extractor ports.Fetcher
}

// NewRouter builds a Router. direct may be nil to send everything to the
// extractor.
func NewRouter(direct, extractor ports.Fetcher) *Router {
	return &Router{direct: direct, extractor: extractor}
}

// Fetch implements ports.Fetcher.
func (r *Router) Fetch(ctx context.Context, sourceURL, destPath string, auth domain.AuthContext) (domain.Artifact, error) {
	if r.direct != nil && isDirectMedia(sourceURL) {
		return r.direct.Fetch(ctx, sourceURL, destPath, auth)
	}
	if r.extractor == nil {
		return domain.Artifact{}, domain.NewError(domain.ErrUnsupportedSource, "fetch",
			"the URL could not be resolved to a playable video", errNoFetcher)
	}
	return r.extractor.Fetch(ctx, sourceURL, destPath, auth)
}

func lowerExt(p string) string {
	return strings.ToLower(path.Ext(p))
}

// isDirectMedia reports whether a URL path names a media file.
func isDirectMedia(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	_, ok := directExtensions[lowerExt(u.Path)]
	return ok
}
