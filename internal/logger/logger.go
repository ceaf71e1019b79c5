// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package logger implements the engine's line-oriented run log (spec.md
// §2/§4.10): an in-process ring of Records accumulated during one run,
// rendered to single lines at exit and prepended (newest run first) to a
// configured log file, independent of the rs/zerolog diagnostics the rest
// of the engine emits to stderr for setup errors and malformed-record
// warnings.
package logger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Kind is the closed set of record kinds the maintenance components emit.
type Kind string

const (
	KindInfo   Kind = "INFO"
	KindFinish Kind = "FINISH"
	KindRemove Kind = "REMOVE"
	KindError  Kind = "ERROR"
)

// Record is one line of the run log.
type Record struct {
	Time    time.Time
	Kind    Kind
	Torrent string // torrent name, empty for run-level records
	Message string
}

func (r Record) render() string {
	if r.Torrent == "" {
		return fmt.Sprintf("%s [%s] %s", r.Time.Format(time.RFC3339), r.Kind, r.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", r.Time.Format(time.RFC3339), r.Kind, r.Torrent, r.Message)
}

// MaxRetainedLines bounds the log file's growth across years of ticks.
const MaxRetainedLines = 10_000

// Logger accumulates Records for one run and flushes them to a file.
type Logger struct {
	path    string
	records []Record
	now     func() time.Time
}

// New returns a Logger that will prepend its records to path on Flush.
// An empty path disables persistence; records still accumulate for
// Records() but Flush is a no-op.
func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) append(kind Kind, torrent, format string, args ...any) {
	l.records = append(l.records, Record{
		Time:    l.now(),
		Kind:    kind,
		Torrent: torrent,
		Message: fmt.Sprintf(format, args...),
	})
}

// Info logs a run-level informational message.
func (l *Logger) Info(format string, args ...any) {
	l.append(KindInfo, "", format, args...)
}

// Finish logs a successful placement for torrent name.
func (l *Logger) Finish(name, format string, args ...any) {
	l.append(KindFinish, name, format, args...)
}

// Remove logs a quota-driven eviction of torrent name.
func (l *Logger) Remove(name, format string, args ...any) {
	l.append(KindRemove, name, format, args...)
}

// Error logs a failure attributed to torrent name (empty for a run-level
// failure not tied to any one torrent).
func (l *Logger) Error(name, format string, args ...any) {
	l.append(KindError, name, format, args...)
}

// Records returns the accumulated records in emission order.
func (l *Logger) Records() []Record {
	return l.records
}

// Flush renders the accumulated records as lines and prepends them to the
// configured log file (newest run first), trimming to MaxRetainedLines.
// A no-op if the Logger was constructed with an empty path or has no
// records to write.
func (l *Logger) Flush() error {
	if l.path == "" || len(l.records) == 0 {
		return nil
	}

	var newLines []string
	for _, r := range l.records {
		newLines = append(newLines, r.render())
	}

	existing, err := readLines(l.path)
	if err != nil {
		return fmt.Errorf("logger: read %s: %w", l.path, err)
	}

	combined := append(newLines, existing...)
	if len(combined) > MaxRetainedLines {
		combined = combined[:MaxRetainedLines]
	}

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("logger: create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, line := range combined {
		if _, err := w.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("logger: write %s: %w", tmp, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return fmt.Errorf("logger: write %s: %w", tmp, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("logger: flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("logger: close %s: %w", tmp, err)
	}
	return os.Rename(tmp, l.path)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
