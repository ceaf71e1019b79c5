// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package regexloader reads the externally supplied adult-content regex
// source string from an asset file. It never compiles the expression -
// engine selection belongs to the Categorizer (see internal/categorizer).
package regexloader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmpty is returned when the regex file has no non-whitespace line.
var ErrEmpty = errors.New("regex file contains no non-whitespace line")

// Load reads the first line of path that contains a non-whitespace
// character, trims leading/trailing whitespace, and returns it as the raw
// regex source. An unreadable file or an all-blank file is a setup error.
func Load(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("regexloader: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// A single "long regex string" line can comfortably exceed bufio's
	// default 64KiB token limit once the AV keyword list grows.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("regexloader: read %s: %w", path, err)
	}

	return "", fmt.Errorf("regexloader: %s: %w", path, ErrEmpty)
}
