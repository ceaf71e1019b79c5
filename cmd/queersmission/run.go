// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/libertypi/queersmission/internal/categorizer"
	"github.com/libertypi/queersmission/internal/cleaner"
	"github.com/libertypi/queersmission/internal/config"
	"github.com/libertypi/queersmission/internal/controller"
	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/logger"
	"github.com/libertypi/queersmission/internal/placer"
	"github.com/libertypi/queersmission/internal/quota"
	"github.com/libertypi/queersmission/internal/regexloader"
	"github.com/libertypi/queersmission/internal/rpc"
)

// gibibyte converts a config quota-gib value to bytes.
const gibibyte = 1 << 30

func newRunCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one tick: torrent-done placement (if triggered) + cleanup + quota enforcement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runOnce(cmd.Context(), *configPath, dryRun)
		},
	}
	return cmd
}

func runOnce(ctx context.Context, configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Info().Str("config", configPath).Str("seed-dir", cfg.SeedDir).Bool("dry-run", dryRun).
		Msg("starting queersmission tick")

	avRegex, err := regexloader.Load(cfg.RegexFile)
	if err != nil {
		return err
	}
	cat, err := categorizer.New(avRegex)
	if err != nil {
		return err
	}

	client, err := rpc.New(ctx, rpc.Config{
		URL:      cfg.RPCURL,
		Port:     cfg.RPCPort,
		Path:     cfg.RPCPath,
		Username: cfg.RPCUsername,
		Password: cfg.RPCPassword,
	})
	if err != nil {
		return err
	}

	logPath := cfg.LogPath
	lg := logger.New(logPath)

	p := placer.New(client, cat, cfg.SeedDir, placer.Destinations{
		Default: cfg.Destinations.Default,
		Movies:  cfg.Destinations.Movies,
		TVShows: cfg.Destinations.TVShows,
		Music:   cfg.Destinations.Music,
		AV:      cfg.Destinations.AV,
	}, lg)

	// cleaner.New itself treats an empty watchDir as "skip the watch-dir
	// pass"; the seed-dir pass always runs.
	cl := cleaner.New(cfg.SeedDir, cfg.WatchDir, lg, dryRun)

	var q *quota.Engine
	if !cfg.QuotaDisabled() {
		q = quota.New(client, cfg.QuotaGiB*gibibyte, cfg.SeedDir, lg, dryRun)
	}

	lockPath := filepath.Join(filepath.Dir(logPath), ".queersmission.lock")
	if logPath == "" {
		lockPath = filepath.Join(os.TempDir(), "queersmission.lock")
	}

	ctl := controller.New(client, p, cl, q, lg, lockPath, cfg.SeedDir)

	completed, err := completedTorrentFromEnv()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if err := ctl.Run(ctx, completed); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// completedTorrentFromEnv reads the TR_TORRENT_* trigger env vars spec.md
// §6 documents. Their presence (TR_TORRENT_ID set) selects torrent-done
// mode; their absence yields the zero value, a bare maintenance tick.
func completedTorrentFromEnv() (controller.CompletedTorrent, error) {
	idStr := os.Getenv("TR_TORRENT_ID")
	if idStr == "" {
		return controller.CompletedTorrent{}, nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return controller.CompletedTorrent{}, fmt.Errorf("parse TR_TORRENT_ID=%q: %w", idStr, err)
	}
	return controller.CompletedTorrent{
		ID:          domain.TorrentID(id),
		Name:        os.Getenv("TR_TORRENT_NAME"),
		DownloadDir: os.Getenv("TR_TORRENT_DIR"),
	}, nil
}
