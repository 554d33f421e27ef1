package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	rawFilename       = "raw.mp4"
	processedFilename = "processed.mp4"
	cookieFilename    = "cookies.txt"
)

// LocalStorage implements ports.Workspace on the local filesystem. Every job
// owns one directory named after its ID.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the job directory.
func (s *LocalStorage) InitJob(ctx context.Context, jobID string) error {
	path := s.GetJobPath(jobID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return nil
}

// RawPath returns the download destination for a job.
func (s *LocalStorage) RawPath(jobID string) string {
	return filepath.Join(s.GetJobPath(jobID), rawFilename)
}

// ProcessedPath returns the render destination for a job.
func (s *LocalStorage) ProcessedPath(jobID string) string {
	return filepath.Join(s.GetJobPath(jobID), processedFilename)
}

// CookiePath returns the location of the job's cookie snapshot.
func (s *LocalStorage) CookiePath(jobID string) string {
	return filepath.Join(s.GetJobPath(jobID), cookieFilename)
}

// Cleanup removes the known artifacts and then the job directory. yt-dlp can
// leave part files and per-format intermediates behind, so the directory is
// removed recursively last.
func (s *LocalStorage) Cleanup(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("cleanup: empty job id")
	}
	var errs []error
	for _, path := range []string{s.RawPath(jobID), s.ProcessedPath(jobID), s.CookiePath(jobID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(path), err))
		}
	}
	if err := os.RemoveAll(s.GetJobPath(jobID)); err != nil {
		errs = append(errs, fmt.Errorf("remove job directory: %w", err))
	}
	return errors.Join(errs...)
}

// GetJobPath returns the path for a job directory.
func (s *LocalStorage) GetJobPath(jobID string) string {
	return filepath.Join(s.BaseDir, "jobs", jobID)
}
