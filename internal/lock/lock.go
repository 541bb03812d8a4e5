// Package lock provides process-scoped advisory file locks.
//
// Locks are flock(2) locks on a file that is created if missing and never
// removed. The kernel drops them when the holder exits, so a crashed
// process cannot leave a lock behind.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is how often Acquire retries a contended lock.
const pollInterval = 50 * time.Millisecond

// Lock is a held advisory lock.
type Lock struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire blocks until an exclusive lock on path is held or ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{path: path, file: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

// Locker hands out locks by name inside one directory.
type Locker interface {
	Acquire(ctx context.Context, name string) (*Lock, error)
}

// Dir is a Locker rooted at a directory.
type Dir string

// Acquire locks <dir>/<name>.
func (d Dir) Acquire(ctx context.Context, name string) (*Lock, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid lock name %q", name)
	}
	return Acquire(ctx, filepath.Join(string(d), name))
}
