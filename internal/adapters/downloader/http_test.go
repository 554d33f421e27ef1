package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelcrop/internal/core/domain"
)

func TestHTTPDownloaderWritesBodyAndSendsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sessionid")
		if err != nil || c.Value != "abc" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cookieFile := filepath.Join(dir, "cookies.txt")
	if err := os.WriteFile(cookieFile, []byte("# Netscape HTTP Cookie File\n127.0.0.1\tFALSE\t/\tFALSE\t0\tsessionid\tabc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "raw.mp4")
	d := NewHTTPDownloader("test-agent")
	art, err := d.Fetch(context.Background(), srv.URL+"/clip.mp4", dest, domain.AuthContext{CookieFile: cookieFile})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	data, _ := os.ReadFile(art.Path)
	if string(data) != "video-bytes" {
		t.Fatalf("downloaded %q", data)
	}
}

func TestHTTPDownloaderStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, domain.ErrAuth},
		{http.StatusUnauthorized, domain.ErrAuth},
		{http.StatusNotFound, domain.ErrUnsupportedSource},
		{http.StatusBadGateway, domain.ErrDownload},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "raw.mp4")
			_, err := NewHTTPDownloader("").Fetch(context.Background(), srv.URL+"/v.mp4", dest, domain.AuthContext{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if _, statErr := os.Stat(dest); statErr == nil {
				t.Fatal("failed download should not create the destination file")
			}
		})
	}
}

func TestHTTPDownloaderNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPDownloader("").Fetch(context.Background(), addr+"/v.mp4", filepath.Join(t.TempDir(), "raw.mp4"), domain.AuthContext{})
	if !errors.Is(err, domain.ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}

type recordingFetcher struct {
	calls int
}

func (f *recordingFetcher) Fetch(ctx context.Context, sourceURL, destPath string, auth domain.AuthContext) (domain.Artifact, error) {
	f.calls++
	return domain.Artifact{Path: destPath, Kind: domain.ArtifactRaw}, nil
}

func TestRouterDispatch(t *testing.T) {
	direct, extractor := &recordingFetcher{}, &recordingFetcher{}
	r := NewRouter(direct, extractor)
	ctx := context.Background()

	for _, u := range []string{"https://cdn.example.com/a/b/clip.MP4?sig=1", "https://cdn.example.com/x.webm"} {
		if _, err := r.Fetch(ctx, u, "/tmp/raw.mp4", domain.AuthContext{}); err != nil {
			t.Fatal(err)
		}
	}
	for _, u := range []string{"https://www.instagram.com/reel/abc/", "https://youtu.be/xyz"} {
		if _, err := r.Fetch(ctx, u, "/tmp/raw.mp4", domain.AuthContext{}); err != nil {
			t.Fatal(err)
		}
	}
	if direct.calls != 2 || extractor.calls != 2 {
		t.Fatalf("direct=%d extractor=%d, want 2/2", direct.calls, extractor.calls)
	}

	_, err := NewRouter(nil, nil).Fetch(ctx, "https://www.instagram.com/reel/abc/", "/tmp/raw.mp4", domain.AuthContext{})
	if !errors.Is(err, domain.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource without extractor, got %v", err)
	}
}
