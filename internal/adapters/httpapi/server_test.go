package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelcrop/internal/adapters/cookies"
	"reelcrop/internal/core/domain"
	"reelcrop/internal/service"
)

const sampleCookies = "# Netscape HTTP Cookie File\n.instagram.com\tTRUE\t/\tTRUE\t1999999999\tsessionid\tabc123\n"

type fakeExecutor struct {
	mu      sync.Mutex
	err     error
	urls    []string
	origins []domain.Origin
}

func (f *fakeExecutor) Submit(url string, origin domain.Origin) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.urls = append(f.urls, url)
	f.origins = append(f.origins, origin)
	return "job-123", nil
}

func (f *fakeExecutor) Stats() service.Stats {
	return service.Stats{Pending: 2, Active: 1, Workers: 3}
}

func newTestServer(t *testing.T, exec *fakeExecutor, token string) (*httptest.Server, *cookies.Store) {
	t.Helper()
	store := cookies.NewStore(filepath.Join(t.TempDir(), "cookies.txt"))
	s := New(Options{APIToken: token, Executor: exec, Cookies: store}, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 500000000) }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestProcessGetAndPost(t *testing.T) {
	exec := &fakeExecutor{}
	srv, _ := newTestServer(t, exec, "")

	resp, err := http.Get(srv.URL + "/process_instagram?url=https://www.instagram.com/reel/abc/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	var got SubmitResponse
	decode(t, resp, &got)
	if got.Message != "Video processing started successfully" || got.JobID != "job-123" {
		t.Fatalf("unexpected body %+v", got)
	}

	resp, err = http.Post(srv.URL+"/process_instagram", "application/json", strings.NewReader(`{"url":"https://example.test/v.mp4"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	if len(exec.origins) != 2 || exec.origins[0] != domain.OriginAPIGet || exec.origins[1] != domain.OriginAPIPost {
		t.Fatalf("origins = %v", exec.origins)
	}
	if exec.urls[1] != "https://example.test/v.mp4" {
		t.Fatalf("urls = %v", exec.urls)
	}
}

func TestProcessRejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		submitErr  error
		wantStatus int
		wantError  string
	}{
		{"get missing url", http.MethodGet, "/process_instagram", "", nil, http.StatusBadRequest, "Missing Instagram URL parameter"},
		{"post missing url", http.MethodPost, "/process_instagram", `{}`, nil, http.StatusBadRequest, "Missing Instagram URL in request"},
		{"post bad json", http.MethodPost, "/process_instagram", `nope`, nil, http.StatusBadRequest, "Missing Instagram URL in request"},
		{"bad prefix", http.MethodGet, "/process_instagram?url=ftp://x", "", nil, http.StatusBadRequest, "Invalid Instagram URL format"},
		{"executor rejects url", http.MethodGet, "/process_instagram?url=http//x", "", domain.ErrValidation, http.StatusBadRequest, "Invalid Instagram URL format"},
		{"queue full", http.MethodGet, "/process_instagram?url=https://x.test/a", "", domain.ErrQueueFull, http.StatusServiceUnavailable, domain.ErrQueueFull.Error()},
		{"wrong method", http.MethodDelete, "/process_instagram", "", nil, http.StatusMethodNotAllowed, "Invalid request method"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeExecutor{err: tc.submitErr}, "")
			req, err := http.NewRequest(tc.method, srv.URL+tc.target, strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var body ErrorResponse
			decode(t, resp, &body)
			if body.Error != tc.wantError {
				t.Fatalf("error = %q, want %q", body.Error, tc.wantError)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeExecutor{}, "")
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var got HealthResponse
	decode(t, resp, &got)
	if got.Status != "healthy" || got.Timestamp != 1700000000.5 {
		t.Fatalf("unexpected health %+v", got)
	}
	if got.Pending != 2 || got.Active != 1 || got.Workers != 3 {
		t.Fatalf("unexpected stats %+v", got.Stats)
	}
}

func TestCookieUploadRawAndMultipart(t *testing.T) {
	srv, store := newTestServer(t, &fakeExecutor{}, "")

	resp, err := http.Post(srv.URL+"/cookies", "text/plain", strings.NewReader(sampleCookies))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("raw upload status = %d", resp.StatusCode)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil || string(data) != sampleCookies {
		t.Fatalf("stored cookies = %q, err = %v", data, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("cookies", "cookies.txt")
	updated := strings.Replace(sampleCookies, "abc123", "def456", 1)
	_, _ = part.Write([]byte(updated))
	_ = mw.Close()

	resp, err = http.Post(srv.URL+"/cookies", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("multipart upload status = %d", resp.StatusCode)
	}
	data, _ = os.ReadFile(store.Path())
	if string(data) != updated {
		t.Fatalf("stored cookies = %q", data)
	}
}

func TestCookieUploadRejectsGarbage(t *testing.T) {
	srv, store := newTestServer(t, &fakeExecutor{}, "")
	resp, err := http.Post(srv.URL+"/cookies", "text/plain", strings.NewReader("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("cookie file should not exist, stat err = %v", err)
	}
}

func TestCookieUploadRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, &fakeExecutor{}, "s3cret")

	resp, err := http.Post(srv.URL+"/cookies", "text/plain", strings.NewReader(sampleCookies))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/cookies", strings.NewReader(sampleCookies))
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d", resp.StatusCode)
	}
}
