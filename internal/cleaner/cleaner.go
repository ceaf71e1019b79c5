// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package cleaner implements orphan cleanup (spec.md §4.7): entries in the
// seed directory that correspond to no known torrent, and empty .torrent
// files in a watch directory, deleted in batches bounded to limit argv/
// syscall size.
package cleaner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/libertypi/queersmission/internal/logger"
)

// batchSize bounds the number of paths removed per pass, per spec.md
// §4.7's "batches of at most 100 paths per system call".
const batchSize = 100

// Cleaner scans seedDir and watchDir for obsolete entries.
type Cleaner struct {
	seedDir  string
	watchDir string // empty disables watch-dir cleanup
	log      *logger.Logger
	dryRun   bool
}

// New builds a Cleaner. An empty watchDir disables the watch-dir pass.
func New(seedDir, watchDir string, log *logger.Logger, dryRun bool) *Cleaner {
	return &Cleaner{seedDir: seedDir, watchDir: watchDir, log: log, dryRun: dryRun}
}

// Clean runs both passes. knownNames is the set of torrent names the
// daemon currently reports (spec.md §4.7 pass 1).
func (c *Cleaner) Clean(knownNames map[string]struct{}) error {
	obsolete, err := c.scanSeedDir(knownNames)
	if err != nil {
		return err
	}
	watchObsolete, err := c.scanWatchDir()
	if err != nil {
		return err
	}
	obsolete = append(obsolete, watchObsolete...)

	return c.deleteAll(obsolete)
}

// scanSeedDir implements pass 1: an entry is obsolete when neither its own
// name nor its name with a trailing ".part" stripped is a known torrent
// name, and the name does not start with '.', '#', or '@' (editor/temp
// sentinels the daemon itself may create).
func (c *Cleaner) scanSeedDir(knownNames map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(c.seedDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cleaner: readdir %s: %w", c.seedDir, err)
	}

	var obsolete []string
	for _, entry := range entries {
		name := entry.Name()
		if hasIgnoredPrefix(name) {
			continue
		}
		stripped := strings.TrimSuffix(name, ".part")
		_, knownAsIs := knownNames[name]
		_, knownStripped := knownNames[stripped]
		if knownAsIs || knownStripped {
			continue
		}
		obsolete = append(obsolete, filepath.Join(c.seedDir, name))
	}
	return obsolete, nil
}

func hasIgnoredPrefix(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case '.', '#', '@':
		return true
	}
	return false
}

// scanWatchDir implements pass 2: empty *.torrent files in watch-dir.
func (c *Cleaner) scanWatchDir() ([]string, error) {
	if c.watchDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(c.watchDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cleaner: readdir %s: %w", c.watchDir, err)
	}

	var obsolete []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".torrent") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			obsolete = append(obsolete, filepath.Join(c.watchDir, entry.Name()))
		}
	}
	return obsolete, nil
}

func (c *Cleaner) deleteAll(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)

	if c.dryRun {
		for _, p := range paths {
			c.log.Info("would remove orphan %s (dry-run)", p)
		}
		return nil
	}

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]
		for _, p := range batch {
			if err := os.RemoveAll(p); err != nil {
				c.log.Error("", "remove orphan %s: %v", p, err)
				continue
			}
			c.log.Info("removed orphan %s", p)
		}
	}
	return nil
}
