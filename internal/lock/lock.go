// Package lock provides a per-stack filesystem lock so two sg processes
// cannot mutate the same stack concurrently. Acquisition never blocks: a held
// lock fails fast with LockContention instead of masking a stuck lock from a
// crashed process.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	sageerrors "sage.dev/sage/internal/errors"
)

// StackLock is an advisory flock on a per-stack file under .git/sage/locks/
type StackLock struct {
	stackName string
	path      string
	file      *os.File
	acquired  bool
}

// New creates a lock handle for the given stack. The lock is not acquired yet.
func New(gitDir, stackName string) *StackLock {
	return &StackLock{
		stackName: stackName,
		path:      filepath.Join(gitDir, "sage", "locks", stackName+".lock"),
	}
}

// Path returns the lock file path
func (l *StackLock) Path() string { return l.path }

// Acquire takes the lock without blocking. A lock held by another process
// fails with LockContention.
func (l *StackLock) Acquire() error {
	if l.acquired {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", l.path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return sageerrors.NewLockContentionError(l.stackName, l.path)
		}
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	// Record the holder for post-mortem debugging; the flock is the actual
	// mutual exclusion, so a stale pid is harmless.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	l.acquired = true
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired, so
// callers can defer it unconditionally.
func (l *StackLock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false

	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)

	if unlockErr != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock file %s: %w", l.path, closeErr)
	}
	return nil
}
