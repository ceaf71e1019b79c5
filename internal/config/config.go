// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package config loads the engine's flat TOML configuration, applying
// QM__-prefixed environment overrides (mirroring the corpus's own
// double-underscore env convention) and validating the required fields
// spec.md §6 lists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/libertypi/queersmission/pkg/errkind"
)

// Destinations holds the category -> directory mapping. Only Default is
// required; the rest fall back to it when empty.
type Destinations struct {
	Default string `mapstructure:"default"`
	Movies  string `mapstructure:"movies"`
	TVShows string `mapstructure:"tv-shows"`
	Music   string `mapstructure:"music"`
	AV      string `mapstructure:"av"`
}

// Config is the flat configuration surface spec.md §6 names.
type Config struct {
	SeedDir  string `mapstructure:"seed-dir"`
	WatchDir string `mapstructure:"watch-dir"`

	RPCURL      string `mapstructure:"rpc-url"`
	RPCPort     int    `mapstructure:"rpc-port"`
	RPCPath     string `mapstructure:"rpc-path"`
	RPCUsername string `mapstructure:"rpc-username"`
	RPCPassword string `mapstructure:"rpc-password"`

	QuotaGiB int64 `mapstructure:"quota-gib"`

	Destinations Destinations `mapstructure:"destinations"`

	RegexFile          string `mapstructure:"regex-file"`
	CategorizerProgram string `mapstructure:"categorizer-program"`

	LogPath string `mapstructure:"log-path"`
}

// envPrefix yields QM__-prefixed env vars (viper joins prefix and key with
// a single "_", so a trailing "_" here produces the double underscore).
const envPrefix = "QM_"

func defaults(v *viper.Viper) {
	v.SetDefault("rpc-url", "localhost")
	v.SetDefault("rpc-port", 9091)
	v.SetDefault("rpc-path", "/transmission/rpc")
	v.SetDefault("quota-gib", 0)
}

// Load reads path, applying QM__-prefixed environment overrides, and
// returns a validated Config. If path does not exist, a commented default
// template is written there first (see writeTemplate) and a setup error is
// returned so the operator can fill it in.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if werr := writeTemplate(path); werr != nil {
			return nil, errkind.NewSetup(fmt.Errorf("config: write template: %w", werr))
		}
		return nil, errkind.NewSetup(fmt.Errorf("config: %s did not exist; wrote a default template, fill it in and re-run", path))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errkind.NewSetup(fmt.Errorf("config: read %s: %w", path, err))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errkind.NewSetup(fmt.Errorf("config: decode %s: %w", path, err))
	}

	if err := cfg.validate(); err != nil {
		return nil, errkind.NewSetup(err)
	}
	cfg.applyDestinationFallback()

	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.SeedDir == "" {
		missing = append(missing, "seed-dir")
	} else if !filepath.IsAbs(c.SeedDir) {
		return fmt.Errorf("config: seed-dir must be an absolute path, got %q", c.SeedDir)
	}
	if c.Destinations.Default == "" {
		missing = append(missing, "destinations.default")
	}
	if c.RegexFile == "" {
		missing = append(missing, "regex-file")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required field(s): %s", strings.Join(missing, ", "))
	}
	if c.QuotaGiB < 0 {
		return fmt.Errorf("config: quota-gib must be non-negative, got %d", c.QuotaGiB)
	}
	if c.WatchDir != "" && !filepath.IsAbs(c.WatchDir) {
		return fmt.Errorf("config: watch-dir must be an absolute path, got %q", c.WatchDir)
	}
	return nil
}

// applyDestinationFallback fills unset per-category destinations from
// Destinations.Default, per spec.md §6's "only default required".
func (c *Config) applyDestinationFallback() {
	if c.Destinations.Movies == "" {
		c.Destinations.Movies = c.Destinations.Default
	}
	if c.Destinations.TVShows == "" {
		c.Destinations.TVShows = c.Destinations.Default
	}
	if c.Destinations.Music == "" {
		c.Destinations.Music = c.Destinations.Default
	}
	if c.Destinations.AV == "" {
		c.Destinations.AV = c.Destinations.Default
	}
}

// QuotaDisabled reports whether quota enforcement is off (quota-gib == 0).
func (c *Config) QuotaDisabled() bool {
	return c.QuotaGiB == 0
}

// WatchCleanupDisabled reports whether watch-dir orphan cleanup is off.
func (c *Config) WatchCleanupDisabled() bool {
	return c.WatchDir == ""
}
