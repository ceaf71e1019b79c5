// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package quota implements seed-space enforcement (spec.md §4.6): compute
// how many bytes must be freed from disk stats, select victim torrents
// oldest-activity-first, and evict them in a single batched
// torrent-remove call.
package quota

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/logger"
)

// RPC is the subset of internal/rpc.Client the QuotaEngine consumes.
type RPC interface {
	Remove(ctx context.Context, ids []domain.TorrentID) error
}

// Candidate is a completed torrent eligible for eviction, restricted by
// the caller to 100% complete torrents whose download directory is the
// seed directory (spec.md §4.6).
type Candidate struct {
	ID           domain.TorrentID
	Name         string
	Size         int64
	LastActivity time.Time
}

// Engine enforces a byte quota against the seed directory's filesystem.
type Engine struct {
	rpc     RPC
	quota   int64 // bytes; 0 disables enforcement
	seedDir string
	log     *logger.Logger
	statfs  func(path string, buf *unix.Statfs_t) error
	dryRun  bool
}

// New builds an Engine. quotaBytes == 0 disables enforcement entirely.
func New(rpc RPC, quotaBytes int64, seedDir string, log *logger.Logger, dryRun bool) *Engine {
	return &Engine{rpc: rpc, quota: quotaBytes, seedDir: seedDir, log: log, statfs: unix.Statfs, dryRun: dryRun}
}

// Enforce computes target = max(quota + total_size - disksize, quota - freespace)
// and, if positive, evicts candidates oldest-activity-first until the
// running freed sum reaches target. It returns the IDs actually evicted
// (nil in dry-run mode, since nothing was actually removed).
func (e *Engine) Enforce(ctx context.Context, candidates []Candidate) ([]domain.TorrentID, error) {
	if e.quota == 0 {
		return nil, nil
	}

	var stat unix.Statfs_t
	if err := e.statfs(e.seedDir, &stat); err != nil {
		return nil, fmt.Errorf("quota: statfs %s: %w", e.seedDir, err)
	}
	blockSize := int64(stat.Bsize) //nolint:gosec // filesystem block size is small and positive
	diskSize := int64(stat.Blocks) * blockSize
	freeSpace := int64(stat.Bavail) * blockSize

	var totalSize int64
	for _, c := range candidates {
		totalSize += c.Size
	}

	target := max(e.quota+totalSize-diskSize, e.quota-freeSpace)
	if target <= 0 {
		return nil, nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastActivity.Equal(sorted[j].LastActivity) {
			return sorted[i].LastActivity.Before(sorted[j].LastActivity)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var (
		victims []Candidate
		freed   int64
	)
	for _, c := range sorted {
		if freed >= target {
			break
		}
		victims = append(victims, c)
		freed += c.Size
	}

	if len(victims) == 0 {
		return nil, nil
	}

	ids := make([]domain.TorrentID, len(victims))
	for i, v := range victims {
		ids[i] = v.ID
	}

	if e.dryRun {
		for _, v := range victims {
			e.log.Remove(v.Name, "would evict (dry-run), %d bytes", v.Size)
		}
		return nil, nil
	}

	if err := e.rpc.Remove(ctx, ids); err != nil {
		return nil, fmt.Errorf("quota: torrent-remove: %w", err)
	}
	for _, v := range victims {
		e.log.Remove(v.Name, "evicted, %d bytes", v.Size)
	}
	return ids, nil
}
