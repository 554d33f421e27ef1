package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With("component", "executor").Info("job accepted", slog.String("job_id", "abc"))
	logger.Debug("hidden")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "job accepted" || record["component"] != "executor" || record["job_id"] != "abc" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestAutoFormatFallsBackToJSONForPipes(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Format: "auto", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestConsoleFormatLiftsComponentAndJob(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With("component", "executor", "job_id", "0123456789abcdef").
		WithGroup("probe").
		Warn("source fetched", slog.String("size", "1.2 MB"), slog.Group("dims", slog.Int("w", 1920)))

	out := buf.String()
	for _, want := range []string{"WARN", "[executor]", "job=01234567", "source fetched", "    - probe.size: 1.2 MB", "    - probe.dims.w: 1920"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reelcrop.log")
	var buf bytes.Buffer
	logger, closeLog, err := New(Options{Format: "json", Writer: &buf, File: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("persisted")
	if err := closeLog(); err != nil {
		t.Fatalf("close log file: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	logger.Info("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "persisted") {
		t.Fatalf("log file missing record: %q", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Fatalf("records after close must not reach the file: %q", data)
	}
	if !strings.Contains(buf.String(), "after close") {
		t.Fatalf("stdout copy should keep logging after close: %q", buf.String())
	}
}

func TestCloseWithoutFileIsNoop(t *testing.T) {
	_, closeLog, err := New(Options{Format: "json", Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("close = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError,
		"": slog.LevelInfo, "verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
