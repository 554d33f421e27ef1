package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"reelcrop/internal/adapters/cookies"
	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
	"reelcrop/internal/service"
)

// Executor is the part of the job executor the API drives.
type Executor interface {
	ports.Submitter
	Stats() service.Stats
}

// CookieReplacer swaps the shared cookie file.
type CookieReplacer interface {
	Replace(ctx context.Context, r io.Reader) error
}

// Options configure the server. Cookies may be nil to disable uploads.
type Options struct {
	Listen   string
	APIToken string
	Executor Executor
	Cookies  CookieReplacer
}

// Server exposes job submission, health and cookie upload over HTTP.
type Server struct {
	listen   string
	apiToken string
	executor Executor
	cookies  CookieReplacer
	logger   *slog.Logger
	server   *http.Server
	now      func() time.Time
}

// Response payloads.
type (
	SubmitResponse struct {
		Message string `json:"message"`
		JobID   string `json:"job_id"`
	}
	HealthResponse struct {
		Status    string  `json:"status"`
		Timestamp float64 `json:"timestamp"`
		service.Stats
	}
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

const maxCookieUpload = 1 << 20

// New builds the server and its routes.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		listen:   strings.TrimSpace(opts.Listen),
		apiToken: strings.TrimSpace(opts.APIToken),
		executor: opts.Executor,
		cookies:  opts.Cookies,
		logger:   logger.With("component", "api-server"),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/process_instagram", s.handleProcess)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/cookies", s.handleCookies)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var (
		sourceURL string
		origin    domain.Origin
	)
	switch r.Method {
	case http.MethodPost:
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
			s.writeError(w, http.StatusBadRequest, "Missing Instagram URL in request")
			return
		}
		sourceURL, origin = body.URL, domain.OriginAPIPost
	case http.MethodGet:
		sourceURL = r.URL.Query().Get("url")
		if strings.TrimSpace(sourceURL) == "" {
			s.writeError(w, http.StatusBadRequest, "Missing Instagram URL parameter")
			return
		}
		origin = domain.OriginAPIGet
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}

	sourceURL = strings.TrimSpace(sourceURL)
	if !strings.HasPrefix(sourceURL, "http") {
		s.writeError(w, http.StatusBadRequest, "Invalid Instagram URL format")
		return
	}

	jobID, err := s.executor.Submit(sourceURL, origin)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, SubmitResponse{Message: "Video processing started successfully", JobID: jobID})
	case errors.Is(err, domain.ErrValidation):
		s.writeError(w, http.StatusBadRequest, "Invalid Instagram URL format")
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrExecutorClosed):
		w.Header().Set("Retry-After", "30")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("submit failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now := s.now()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: float64(now.Unix()) + float64(now.Nanosecond())/1e9,
		Stats:     s.executor.Stats(),
	})
}

func (s *Server) handleCookies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cookies == nil {
		s.writeError(w, http.StatusNotFound, "cookie upload disabled")
		return
	}
	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCookieUpload+4096)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("cookies")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "missing cookies form field")
			return
		}
		defer file.Close()
		src = file
	}

	if err := s.cookies.Replace(r.Context(), src); err != nil {
		if errors.Is(err, cookies.ErrInvalidCookies) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("cookie replace failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "could not store cookies")
		return
	}
	s.logger.Info("cookie file replaced")
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Cookies updated"})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiToken == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.apiToken)) == 1
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
