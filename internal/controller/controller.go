// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package controller orchestrates one run of the engine (spec.md §4.8):
// optionally place a just-finished torrent, clean orphans, enforce the
// seed-space quota, and resume any paused torrents this run did not evict,
// all inside a single advisory-lock-guarded pass.
package controller

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/libertypi/queersmission/internal/cleaner"
	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/logger"
	"github.com/libertypi/queersmission/internal/placer"
	"github.com/libertypi/queersmission/internal/quota"
	"github.com/libertypi/queersmission/pkg/fsid"
	"github.com/libertypi/queersmission/pkg/lockfile"
)

// RPC is the subset of internal/rpc.Client the Controller consumes
// directly; Placer and quota.Engine hold their own narrower views of it.
type RPC interface {
	TorrentGet(ctx context.Context) ([]domain.Torrent, error)
	Start(ctx context.Context, ids []domain.TorrentID) error
}

// CompletedTorrent identifies a single torrent that just finished
// downloading, as reported by the daemon's torrent-done script
// invocation (spec.md §4.1). A zero value means "no torrent completed
// this run" - the Controller was invoked as a bare maintenance tick.
type CompletedTorrent struct {
	ID          domain.TorrentID
	Name        string
	DownloadDir string
}

func (c CompletedTorrent) present() bool {
	return c.ID != 0
}

// Controller wires the Placer, Cleaner, and quota.Engine together behind a
// single lock-guarded Run.
type Controller struct {
	rpc      RPC
	placer   *placer.Placer
	cleaner  *cleaner.Cleaner
	quota    *quota.Engine
	log      *logger.Logger
	lockPath string
	seedDir  string
}

// New builds a Controller. lockPath is the flock(2) guard file (spec.md
// §4.8); an empty lockPath disables locking, which tests rely on. seedDir
// restricts quota candidates to torrents actually seeding from it (spec.md
// §4.6).
func New(rpc RPC, p *placer.Placer, c *cleaner.Cleaner, q *quota.Engine, log *logger.Logger, lockPath, seedDir string) *Controller {
	return &Controller{rpc: rpc, placer: p, cleaner: c, quota: q, log: log, lockPath: lockPath, seedDir: filepath.Clean(seedDir)}
}

// Run executes one full pass. When completed.present() is true the
// completion is a torrent-done callback, which blocks for the lock rather
// than skipping; a bare maintenance tick never blocks, skipping quietly
// if another run already holds it (spec.md §4.8's two invocation modes).
func (ctl *Controller) Run(ctx context.Context, completed CompletedTorrent) error {
	lock, err := ctl.acquireLock(completed.present())
	if err != nil {
		if err == lockfile.ErrLocked {
			ctl.log.Info("skipped: another run holds the lock")
			return nil
		}
		return fmt.Errorf("controller: acquire lock: %w", err)
	}
	defer func() {
		if lock != nil {
			_ = lock.Release()
		}
		_ = ctl.log.Flush()
	}()

	if completed.present() {
		if err := ctl.placer.Place(ctx, completed.ID, completed.Name, completed.DownloadDir); err != nil {
			ctl.log.Error(completed.Name, "placement failed: %v", err)
			return fmt.Errorf("controller: place: %w", err)
		}
	}

	torrents, err := ctl.rpc.TorrentGet(ctx)
	if err != nil {
		return fmt.Errorf("controller: torrent-get: %w", err)
	}

	if err := ctl.runCleaner(torrents); err != nil {
		return err
	}

	evicted, err := ctl.runQuota(ctx, torrents)
	if err != nil {
		return err
	}

	return ctl.resumePaused(ctx, torrents, evicted)
}

func (ctl *Controller) acquireLock(blocking bool) (*lockfile.Lock, error) {
	if ctl.lockPath == "" {
		return nil, nil
	}
	if blocking {
		return lockfile.Acquire(ctl.lockPath)
	}
	return lockfile.TryAcquire(ctl.lockPath)
}

func (ctl *Controller) runCleaner(torrents []domain.Torrent) error {
	if ctl.cleaner == nil {
		return nil
	}
	known := make(map[string]struct{}, len(torrents))
	for _, t := range torrents {
		known[t.Name] = struct{}{}
	}
	if err := ctl.cleaner.Clean(known); err != nil {
		return fmt.Errorf("controller: clean: %w", err)
	}
	return nil
}

func (ctl *Controller) runQuota(ctx context.Context, torrents []domain.Torrent) (map[domain.TorrentID]struct{}, error) {
	if ctl.quota == nil {
		return nil, nil
	}

	var candidates []quota.Candidate
	for _, t := range torrents {
		if !t.Complete() {
			continue
		}
		if !fsid.SamePath(t.DownloadDir, ctl.seedDir) {
			continue
		}
		candidates = append(candidates, quota.Candidate{
			ID:           t.ID,
			Name:         t.Name,
			Size:         t.SizeWhenDone,
			LastActivity: t.ActivityDate,
		})
	}

	ids, err := ctl.quota.Enforce(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("controller: quota: %w", err)
	}
	evicted := make(map[domain.TorrentID]struct{}, len(ids))
	for _, id := range ids {
		evicted[id] = struct{}{}
	}
	return evicted, nil
}

// resumePaused issues torrent-start for every torrent the daemon reports
// paused, excluding any torrent this run just evicted (spec.md §4.8's
// final resume step, intended to restart seeding a torrent a prior tick
// paused for a reason that has since resolved, e.g. disk space freed).
func (ctl *Controller) resumePaused(ctx context.Context, torrents []domain.Torrent, evicted map[domain.TorrentID]struct{}) error {
	var ids []domain.TorrentID
	for _, t := range torrents {
		if !t.Status.Paused() {
			continue
		}
		if _, gone := evicted[t.ID]; gone {
			continue
		}
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := ctl.rpc.Start(ctx, ids); err != nil {
		return fmt.Errorf("controller: torrent-start: %w", err)
	}
	for _, t := range torrents {
		for _, id := range ids {
			if t.ID == id {
				ctl.log.Info("resumed %s", t.Name)
			}
		}
	}
	return nil
}
