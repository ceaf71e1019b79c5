// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "queersmission", "config.toml")
	}
	return "/etc/queersmission/config.toml"
}

// version, commit, and date are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "queersmission",
		Short:         "Torrent categorization and seed-space maintenance engine",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config.toml")
	cmd.PersistentFlags().Bool("dry-run", false, "log intended orphan deletions and quota evictions instead of performing them (placement and resume still run)")

	cmd.AddCommand(
		newRunCommand(&configPath),
		newConfigCommand(&configPath),
		newCategorizeCommand(&configPath),
		newVersionCommand(),
	)

	return cmd
}
