// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/libertypi/queersmission/internal/categorizer"
	"github.com/libertypi/queersmission/internal/config"
	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/regexloader"
)

// newCategorizeCommand implements the standalone binding of the
// Categorizer I/O contract (spec.md §6): read alternating null-terminated
// "path\0size\0" records from stdin, write a single category token to
// stdout, and exit 0 on success or 1 on a setup error (an unreadable or
// malformed regex file, or a bag left empty once malformed records are
// dropped). This is the same contract an external categorizer-program
// asset must honor, so this binary can itself be pointed at by that
// config key (`<binary> categorize`).
func newCategorizeCommand(configPath *string) *cobra.Command {
	var regexFile string

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Read null-delimited path/size records from stdin, print one category to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := resolveRegexSource(regexFile, *configPath)
			if err != nil {
				return err
			}
			c, err := categorizer.New(source)
			if err != nil {
				return err
			}

			bag, err := readBagTo(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			result, err := c.Classify(bag, func(r domain.Record, reason string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "dropped malformed record %q: %s\n", r.Path, reason)
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&regexFile, "regex-file", "", "path to the adult-content regex source file (overrides the root --config's regex-file)")
	return cmd
}

func resolveRegexSource(regexFile, configPath string) (string, error) {
	if regexFile != "" {
		return regexloader.Load(regexFile)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return regexloader.Load(cfg.RegexFile)
}

// readBag parses stdin as alternating null-terminated "path\0size\0…"
// fields (spec.md §6). A trailing unpaired field (no size following a
// path) is treated as a malformed record's tail and ignored. Records with
// an invalid size are reported on os.Stderr and dropped.
func readBag(r io.Reader) (domain.Bag, error) {
	return readBagTo(r, os.Stderr)
}

// readBagTo is readBag with dropped-record diagnostics written to errOut.
func readBagTo(r io.Reader, errOut io.Writer) (domain.Bag, error) {
	reader := bufio.NewReader(r)
	var fields []string
	for {
		field, err := reader.ReadString(0)
		if err != nil {
			if err == io.EOF {
				if field != "" {
					fields = append(fields, field)
				}
				break
			}
			return nil, fmt.Errorf("categorize: read stdin: %w", err)
		}
		fields = append(fields, field[:len(field)-1])
	}

	var bag domain.Bag
	for i := 0; i+1 < len(fields); i += 2 {
		path := fields[i]
		sizeStr := fields[i+1]
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			fmt.Fprintf(errOut, "dropped malformed record %q: invalid size %q\n", path, sizeStr)
			continue
		}
		bag = append(bag, domain.Record{Path: path, Size: size})
	}
	return bag, nil
}
