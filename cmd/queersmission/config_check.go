// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/libertypi/queersmission/internal/categorizer"
	"github.com/libertypi/queersmission/internal/config"
	"github.com/libertypi/queersmission/internal/regexloader"
)

func newConfigCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
	}
	cmd.AddCommand(newConfigCheckCommand(configPath))
	return cmd
}

// newConfigCheckCommand validates config.toml and the configured regex
// file without touching the daemon or filesystem beyond reading them,
// exiting 0 on success and 1 (a setup error) on any validation failure
// (spec.md §7's "setup error, no RPC" rule).
func newConfigCheckCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config.toml and the regex file, without contacting the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			avRegex, err := regexloader.Load(cfg.RegexFile)
			if err != nil {
				return err
			}
			if _, err := categorizer.New(avRegex); err != nil {
				return err
			}

			cmd.Printf("config OK: %s\n", *configPath)
			cmd.Printf("  seed-dir:   %s\n", cfg.SeedDir)
			cmd.Printf("  watch-dir:  %s\n", cfg.WatchDir)
			cmd.Printf("  regex-file: %s\n", cfg.RegexFile)
			cmd.Printf("  quota-gib:  %d\n", cfg.QuotaGiB)
			return nil
		},
	}
}
