// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package copytree recursively copies a file or directory tree, preserving
// mode and modification time, reflinking (Linux FICLONE/FICLONERANGE) when
// source and destination share a filesystem and falling back to a
// buffered io.Copy otherwise. Copy additionally supports an incremental
// mode that skips destination entries already matching the source by
// (size, mtime), so a relocate can be retried after a partial failure
// without re-copying everything.
package copytree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/libertypi/queersmission/pkg/fsid"
)

const copyBufferSize = 4 * 1024 * 1024

// Options configures a Copy call.
type Options struct {
	// Incremental skips a destination file that already matches source
	// by size and modification time, rather than recopying it.
	Incremental bool
}

// Copy recursively copies src to dst. src may be a file or a directory;
// when it is a directory, dst is created (and populated) as its mirror.
func Copy(src, dst string, opts Options) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("copytree: stat %s: %w", src, err)
	}
	reflinkable, _ := fsid.SameFilesystem(src, filepath.Dir(dst))
	return copyEntry(src, dst, info, opts, reflinkable)
}

func copyEntry(src, dst string, info fs.FileInfo, opts Options, reflinkable bool) error {
	switch {
	case info.IsDir():
		return copyDir(src, dst, opts, reflinkable)
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	default:
		return copyFile(src, dst, info, opts, reflinkable)
	}
}

func copyDir(src, dst string, opts Options, reflinkable bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copytree: stat dir %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copytree: mkdir %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("copytree: readdir %s: %w", src, err)
	}
	for _, entry := range entries {
		childSrc := filepath.Join(src, entry.Name())
		childDst := filepath.Join(dst, entry.Name())
		childInfo, err := entry.Info()
		if err != nil {
			return fmt.Errorf("copytree: stat %s: %w", childSrc, err)
		}
		if err := copyEntry(childSrc, childDst, childInfo, opts, reflinkable); err != nil {
			return err
		}
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("copytree: readlink %s: %w", src, err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("copytree: remove existing %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("copytree: symlink %s -> %s: %w", dst, target, err)
	}
	return nil
}

func copyFile(src, dst string, info fs.FileInfo, opts Options, reflinkable bool) error {
	if opts.Incremental && destMatches(dst, info) {
		return nil
	}

	if reflinkable {
		if err := reflinkFile(src, dst, info); err == nil {
			return nil
		}
		// Any reflink failure (unsupported fs, cross-device, exhausted
		// retries) falls back to a plain copy below.
	}
	return bufferedCopyFile(src, dst, info)
}

func destMatches(dst string, srcInfo fs.FileInfo) bool {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return dstInfo.Size() == srcInfo.Size() && dstInfo.ModTime().Equal(srcInfo.ModTime())
}

func bufferedCopyFile(src, dst string, info fs.FileInfo) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copytree: open %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copytree: create %s: %w", dst, err)
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(dstFile, srcFile, buf); err != nil {
		dstFile.Close()
		return fmt.Errorf("copytree: copy %s -> %s: %w", src, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("copytree: close %s: %w", dst, err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copytree: chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("copytree: chtimes %s: %w", dst, err)
	}
	return nil
}

// ErrReflinkUnsupported is returned by the platform reflink implementation
// when neither a whole-file nor a ranged clone succeeds.
var ErrReflinkUnsupported = errors.New("copytree: reflink unsupported")
