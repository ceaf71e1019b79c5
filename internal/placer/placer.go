// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package placer implements the post-completion placement step (spec.md
// §4.5): classify a finished torrent's payload and copy it to a
// category-specific destination, or, if it was downloaded outside the
// seed directory, relocate it into the seed directory and tell the daemon.
package placer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/libertypi/queersmission/internal/categorizer"
	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/logger"
	"github.com/libertypi/queersmission/pkg/copytree"
	"github.com/libertypi/queersmission/pkg/fsid"
)

// RPC is the subset of internal/rpc.Client the Placer consumes.
type RPC interface {
	TorrentGetOne(ctx context.Context, id domain.TorrentID) (domain.Torrent, error)
	SetLocation(ctx context.Context, id domain.TorrentID, location string) error
}

// Destinations maps a category to its configured destination root.
type Destinations struct {
	Default string
	Movies  string
	TVShows string
	Music   string
	AV      string
}

func (d Destinations) forCategory(cat domain.Category) string {
	switch cat {
	case domain.CategoryFilm:
		return d.Movies
	case domain.CategoryTV:
		return d.TVShows
	case domain.CategoryMusic:
		return d.Music
	case domain.CategoryAV:
		return d.AV
	default:
		return d.Default
	}
}

// Placer ties the Categorizer to the filesystem and the daemon RPC.
type Placer struct {
	rpc          RPC
	categorizer  *categorizer.Categorizer
	seedDir      string
	destinations Destinations
	log          *logger.Logger
}

// New builds a Placer. seedDir must be an absolute, cleaned path.
func New(rpc RPC, c *categorizer.Categorizer, seedDir string, destinations Destinations, log *logger.Logger) *Placer {
	return &Placer{
		rpc:          rpc,
		categorizer:  c,
		seedDir:      filepath.Clean(seedDir),
		destinations: destinations,
		log:          log,
	}
}

// Place runs the full placement decision for one finished torrent. name and
// downloadDir may be supplied by the caller (e.g. from TR_TORRENT_* env
// vars); when either is empty, they are fetched via torrent-get.
func (p *Placer) Place(ctx context.Context, id domain.TorrentID, name, downloadDir string) error {
	if name == "" || downloadDir == "" {
		t, err := p.rpc.TorrentGetOne(ctx, id)
		if err != nil {
			p.log.Error(name, "torrent-get for placement: %v", err)
			return fmt.Errorf("placer: torrent-get %d: %w", id, err)
		}
		name = t.Name
		downloadDir = t.DownloadDir
	}

	src := filepath.Join(downloadDir, name)

	if fsid.SamePath(downloadDir, p.seedDir) {
		if err := p.copyOut(ctx, id, name, src); err != nil {
			p.log.Error(name, "%v", err)
			return err
		}
	} else {
		if err := p.relocate(ctx, id, name, src); err != nil {
			p.log.Error(name, "%v", err)
			return err
		}
	}

	p.log.Finish(name, "placed from %s", src)
	return nil
}

func (p *Placer) copyOut(ctx context.Context, id domain.TorrentID, name, src string) error {
	t, err := p.rpc.TorrentGetOne(ctx, id)
	if err != nil {
		return fmt.Errorf("placer: torrent-get %d: %w", id, err)
	}

	bag := domain.FromTorrentFiles(t.Files)
	cat, err := p.categorizer.Classify(bag, func(r domain.Record, reason string) {
		p.log.Error(name, "dropped malformed record %q: %s", r.Path, reason)
	})
	if err != nil {
		cat = domain.CategoryDefault
		p.log.Error(name, "categorize failed, falling back to default: %v", err)
	}

	destRoot := p.destinations.forCategory(cat)
	if destRoot == "" {
		destRoot = p.destinations.Default
	}
	destRoot = filepath.Clean(destRoot)

	// spec.md §4.5 says "dest = dest_root" for a directory payload, the
	// shorthand a shell "cp -a src dest_root" uses for "nest src under
	// dest_root by its own name" - made explicit here since copytree.Copy
	// takes a literal destination rather than inferring one.
	dest := filepath.Join(destRoot, filepath.Base(src))
	if !pathIsDir(src) {
		dest = filepath.Join(destRoot, stem(name))
	}

	incremental := pathExists(dest)
	if err := copytree.Copy(src, dest, copytree.Options{Incremental: incremental}); err != nil {
		return fmt.Errorf("placer: copy %s -> %s: %w", src, dest, err)
	}
	return nil
}

func (p *Placer) relocate(ctx context.Context, id domain.TorrentID, name, src string) error {
	dest := filepath.Join(p.seedDir, name)
	incremental := pathExists(dest)
	if err := copytree.Copy(src, dest, copytree.Options{Incremental: incremental}); err != nil {
		return fmt.Errorf("placer: relocate copy %s -> %s: %w", src, dest, err)
	}
	if err := p.rpc.SetLocation(ctx, id, p.seedDir); err != nil {
		return fmt.Errorf("placer: torrent-set-location %d: %w", id, err)
	}
	return nil
}

// stem strips the last extension from name, per spec.md §4.5 step 4.
func stem(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
