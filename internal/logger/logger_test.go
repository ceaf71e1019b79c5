// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFlushPrependsNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("old line 1\nold line 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path)
	l.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l.Finish("Example.Torrent", "placed at /media/film")

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "Example.Torrent") {
		t.Errorf("newest record must be first, got %q", lines[0])
	}
	if lines[1] != "old line 1" || lines[2] != "old line 2" {
		t.Errorf("old lines not preserved in order: %v", lines[1:])
	}
}

func TestFlushNoopWithoutPathOrRecords(t *testing.T) {
	l := New("")
	l.Info("hello")
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush with empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), "run.log")
	l2 := New(path)
	if err := l2.Flush(); err != nil {
		t.Fatalf("Flush with no records: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no file to be created when there are no records")
	}
}

func TestFlushTrimsToMaxRetainedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	var old strings.Builder
	for i := 0; i < MaxRetainedLines; i++ {
		old.WriteString("old\n")
	}
	if err := os.WriteFile(path, []byte(old.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path)
	l.Info("new entry")
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != MaxRetainedLines {
		t.Fatalf("expected trimmed to %d lines, got %d", MaxRetainedLines, len(lines))
	}
	if !strings.Contains(lines[0], "new entry") {
		t.Errorf("newest line should survive trimming, got %q", lines[0])
	}
}

func TestRecordKindsRenderDistinctly(t *testing.T) {
	l := New("")
	l.now = fixedClock(time.Unix(0, 0).UTC())
	l.Info("tick started")
	l.Finish("A", "copied")
	l.Remove("B", "evicted")
	l.Error("C", "rpc failed")

	got := l.Records()
	if len(got) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got))
	}
	wantKinds := []Kind{KindInfo, KindFinish, KindRemove, KindError}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Errorf("record %d kind = %v, want %v", i, got[i].Kind, k)
		}
	}
}
