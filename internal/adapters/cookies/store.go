// Package cookies manages the shared cookie file used to authenticate source
// fetches.
//
// The file is provisioned out of band (or replaced through the HTTP API) and
// read by every job. Readers never open it directly: each job takes an
// immutable snapshot under a shared lock, and replacement writes a temporary
// file then renames it under an exclusive lock, so a fetch never observes a
// half-written cookie file.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// maxCookieBytes bounds uploads; real cookie exports are a few KiB.
const maxCookieBytes = 1 << 20

// ErrInvalidCookies reports an upload that is not a usable cookie file.
var ErrInvalidCookies = errors.New("invalid cookie file")

// Store guards a single cookie file on disk.
type Store struct {
	path     string
	lockPath string
}

// NewStore creates a Store for the cookie file at path.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Path returns the cookie file location.
func (s *Store) Path() string {
	return s.path
}

// Snapshot copies the current cookie file to dst under a shared lock. It
// returns false without error when no cookie file exists.
func (s *Store) Snapshot(ctx context.Context, dst string) (bool, error) {
	if err := s.ensureLockDir(); err != nil {
		return false, err
	}
	// A fresh Flock per call gives each operation its own descriptor, so
	// goroutines in this process contend like separate processes do.
	lock := flock.New(s.lockPath)
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return false, fmt.Errorf("acquire cookie read lock: %w", err)
	}
	if !locked {
		return false, errors.New("acquire cookie read lock: not acquired")
	}
	defer lock.Unlock()

	in, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open cookie file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return false, fmt.Errorf("create cookie snapshot: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, fmt.Errorf("copy cookie snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("close cookie snapshot: %w", err)
	}
	return true, nil
}

// Replace atomically swaps the cookie file with the content of r. In-flight
// jobs keep using their snapshots.
func (s *Store) Replace(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, maxCookieBytes+1))
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	if len(data) > maxCookieBytes {
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalidCookies, maxCookieBytes)
	}
	if _, err := Parse(data); err != nil {
		return err
	}

	if err := s.ensureLockDir(); err != nil {
		return err
	}
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire cookie write lock: %w", err)
	}
	if !locked {
		return errors.New("acquire cookie write lock: not acquired")
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cookie file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cookie file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp cookie file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cookie file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("install cookie file: %w", err)
	}
	return nil
}

func (s *Store) ensureLockDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cookie directory %s: %w", dir, err)
	}
	return nil
}
