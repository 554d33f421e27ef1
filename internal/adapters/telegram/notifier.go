package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"reelcrop/internal/core/domain"
)

const (
	// DefaultAPIBaseURL is the public Bot API endpoint.
	DefaultAPIBaseURL = "https://api.telegram.org"

	textTimeout  = 30 * time.Second
	videoTimeout = 120 * time.Second

	// maxMessageRunes is the Bot API limit for a single text message.
	maxMessageRunes = 4096
)

// Target identifies the single chat every notification goes to.
type Target struct {
	BotToken   string
	ChatID     string
	APIBaseURL string
}

// Notifier implements ports.Notifier against the Telegram Bot API.
type Notifier struct {
	target      Target
	textClient  *http.Client
	videoClient *http.Client
	logger      *slog.Logger
}

// NewNotifier creates a Notifier for target. An empty APIBaseURL uses the
// public endpoint.
func NewNotifier(target Target, logger *slog.Logger) *Notifier {
	if strings.TrimSpace(target.APIBaseURL) == "" {
		target.APIBaseURL = DefaultAPIBaseURL
	}
	target.APIBaseURL = strings.TrimRight(target.APIBaseURL, "/")
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		target:      target,
		textClient:  &http.Client{Timeout: textTimeout},
		videoClient: &http.Client{Timeout: videoTimeout},
		logger:      logger.With("component", "notifier"),
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NotifyText sends message to the configured chat.
func (n *Notifier) NotifyText(ctx context.Context, message string) bool {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.target.ChatID,
		"text":    truncate(message, maxMessageRunes),
	})
	if err != nil {
		n.fail("sendMessage", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		n.fail("sendMessage", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	if err := n.do(n.textClient, req); err != nil {
		n.fail("sendMessage", err)
		return false
	}
	return true
}

// NotifyArtifact uploads the file at path as a video.
func (n *Notifier) NotifyArtifact(ctx context.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		n.fail("sendVideo", err)
		return false
	}
	defer f.Close()

	var size uint64
	if info, statErr := f.Stat(); statErr == nil {
		size = uint64(info.Size())
	}

	// The form is streamed so the video is never held in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	written := make(chan error, 1)
	go func() {
		err := writeVideoForm(mw, n.target.ChatID, filepath.Base(path), f)
		pw.CloseWithError(err)
		written <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.methodURL("sendVideo"), pr)
	if err != nil {
		pr.CloseWithError(err)
		<-written
		n.fail("sendVideo", err)
		return false
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	started := time.Now()
	err = n.do(n.videoClient, req)
	// The transport closes the body on every path, which unblocks the writer.
	if writeErr := <-written; err == nil && writeErr != nil {
		err = writeErr
	}
	if err != nil {
		n.fail("sendVideo", err)
		return false
	}
	n.logger.Info("video delivered",
		slog.String("size", humanize.Bytes(size)),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return true
}

func writeVideoForm(mw *multipart.Writer, chatID, name string, video io.Reader) error {
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("video", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	return mw.Close()
}

func (n *Notifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.target.APIBaseURL, n.target.BotToken, method)
}

func (n *Notifier) do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return redact(err, n.target.BotToken)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope apiResponse
	_ = json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if envelope.Description != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Description)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if !envelope.OK {
		return fmt.Errorf("api rejected request: %s", envelope.Description)
	}
	return nil
}

func (n *Notifier) fail(method string, err error) {
	err = domain.NewError(domain.ErrDelivery, method, "", err)
	n.logger.Warn("notification failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
}

// redact keeps the bot token out of transport errors, which embed the URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

// Noop discards notifications. It is used when no bot token is configured;
// artifacts are reported as undelivered.
type Noop struct{}

func (Noop) NotifyText(context.Context, string) bool     { return true }
func (Noop) NotifyArtifact(context.Context, string) bool { return false }
