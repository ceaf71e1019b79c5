// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

//go:build linux

package copytree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	reflinkRetryAttempts  = 5
	reflinkRetryBaseDelay = 25 * time.Millisecond
)

var (
	ioctlFileClone      = unix.IoctlFileClone
	ioctlFileCloneRange = unix.IoctlFileCloneRange
	sleepForRetry       = time.Sleep
)

// reflinkFile attempts a copy-on-write clone of src at dst via FICLONE,
// retrying on EAGAIN/EINVAL and falling back to FICLONERANGE when the
// filesystem rejects whole-file clones but supports ranged ones.
func reflinkFile(src, dst string, info fs.FileInfo) (retErr error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copytree: open source %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copytree: create destination %s: %w", dst, err)
	}
	defer func() {
		dstFile.Close()
		if retErr != nil {
			os.Remove(dst)
		}
	}()

	srcFd := int(srcFile.Fd())
	dstFd := int(dstFile.Fd())

	var cloneErr error
	for attempt := 0; attempt < reflinkRetryAttempts; attempt++ {
		cloneErr = ioctlFileClone(dstFd, srcFd)
		if cloneErr == nil {
			return os.Chtimes(dst, time.Now(), info.ModTime())
		}
		if !shouldRetryCloneError(cloneErr) {
			break
		}
		if attempt == reflinkRetryAttempts-1 {
			break
		}
		sleepForRetry(reflinkRetryBaseDelay * time.Duration(1<<attempt))
	}

	if shouldTryCloneRange(cloneErr) {
		cloneRange := unix.FileCloneRange{
			Src_fd:      int64(srcFd),
			Src_offset:  0,
			Src_length:  0,
			Dest_offset: 0,
		}
		if rangeErr := ioctlFileCloneRange(dstFd, &cloneRange); rangeErr == nil {
			return os.Chtimes(dst, time.Now(), info.ModTime())
		}
	}

	return fmt.Errorf("%w: %v", ErrReflinkUnsupported, cloneErr)
}

func shouldRetryCloneError(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINVAL)
}

func shouldTryCloneRange(err error) bool {
	return errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOTTY) ||
		errors.Is(err, unix.ENOSYS)
}
