// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package lockfile provides an advisory exclusive flock(2) lock, the
// Controller's single-run guard (spec.md §4.8/§5): a non-blocking
// acquisition for maintenance ticks (a concurrent tick simply skips its
// run) and a blocking one for torrent-done callbacks (which must wait
// their turn rather than silently drop an event).
package lockfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by TryAcquire when another process already holds
// the lock.
var ErrLocked = fmt.Errorf("lockfile: already locked")

// Lock holds an open file descriptor with an active flock(2) lock. Release
// drops the lock and closes the descriptor.
type Lock struct {
	f *os.File
}

// TryAcquire attempts a non-blocking exclusive lock on path, creating it if
// necessary. Returns ErrLocked if another process holds it.
func TryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Acquire blocks until it obtains an exclusive lock on path.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file descriptor.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	if err != nil {
		return fmt.Errorf("lockfile: unlock: %w", err)
	}
	return closeErr
}
