// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// template is the commented default config written on first run, the same
// "auto-generated, commented defaults" idiom the corpus uses for its own
// config file.
const template = `# config.toml - auto-generated on first run, fill in and re-run

# Absolute path to the daemon's seed directory. Required.
seed-dir = ""

# Absolute path the daemon's watch directory, for orphaned .torrent cleanup.
# Leave empty to disable watch-dir cleanup.
#watch-dir = ""

# Daemon RPC connection.
#rpc-url = "localhost"
#rpc-port = 9091
#rpc-path = "/transmission/rpc"
#rpc-username = ""
#rpc-password = ""

# Seed-space quota in GiB. 0 disables quota enforcement.
#quota-gib = 0

# Path to the AV-entity regex source file. Required.
regex-file = ""

# Path to an external categorizer program. The "run" command does not
# consult it: placement always classifies with the built-in categorizer.
#categorizer-program = ""

# Optional log file path. If unset, the line log is not persisted.
#log-path = ""

# Category destinations. Only "default" is required; unset categories
# fall back to it.
[destinations]
default = ""
#movies = ""
#tv-shows = ""
#music = ""
#av = ""
`

// writeTemplate creates path's parent directories if needed and writes the
// commented default template, refusing to overwrite an existing file.
func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("persist: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(template); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	return nil
}
