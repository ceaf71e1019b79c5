// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package categorizer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/libertypi/queersmission/internal/domain"
)

// canonicalAVRegex approximates the kind of pattern an operator supplies:
// a long alternation of adult-content release group / code tags.
const canonicalAVRegex = `(^|[^a-z0-9])([a-z]{2,6}-[0-9]{2,5}|heyzo|tokyo-?hot)([^a-z0-9]|$)`

func mustNew(t *testing.T, src string) *Categorizer {
	t.Helper()
	c, err := New(src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func classify(t *testing.T, bag domain.Bag) domain.Category {
	t.Helper()
	c := mustNew(t, canonicalAVRegex)
	cat, err := c.Classify(bag, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return cat
}

func TestScenario1_AVWinsOverSize(t *testing.T) {
	bag := domain.Bag{{Path: "Foo/ABP-123.mkv", Size: 2_000_000_000}}
	if got := classify(t, bag); got != domain.CategoryAV {
		t.Errorf("got %q, want av", got)
	}
}

func TestScenario2_SeriesBySxxEyy(t *testing.T) {
	bag := domain.Bag{
		{Path: "Show/Show.S02E01.mkv", Size: 3_000_000_000},
		{Path: "Show/Show.S02E02.mkv", Size: 3_000_000_000},
	}
	if got := classify(t, bag); got != domain.CategoryTV {
		t.Errorf("got %q, want tv", got)
	}
}

func TestScenario3_SeriesByConsecutiveDigit(t *testing.T) {
	// Avoid "epNN"/"sNNeNN" surface markers so this exercises the
	// structural inference path, not the season-episode regex.
	bag := domain.Bag{
		{Path: "Anime/[Group] Show - 01.mkv", Size: 4e8},
		{Path: "Anime/[Group] Show - 02.mkv", Size: 4e8},
		{Path: "Anime/[Group] Show - 03.mkv", Size: 4e8},
	}
	if got := classify(t, bag); got != domain.CategoryTV {
		t.Errorf("got %q, want tv", got)
	}
}

func TestScenario4_DiscImageOfMovie(t *testing.T) {
	bag := domain.Bag{{Path: "MyMovie/MyMovie.iso", Size: 30_000_000_000}}
	if got := classify(t, bag); got != domain.CategoryFilm {
		t.Errorf("got %q, want film", got)
	}
}

func TestScenario5_DiscImageOfSoftware(t *testing.T) {
	bag := domain.Bag{{Path: "Adobe_Photoshop_v24.1/setup.iso", Size: 3_000_000_000}}
	if got := classify(t, bag); got != domain.CategoryDefault {
		t.Errorf("got %q, want default", got)
	}
}

func TestScenario6_MusicAlbum(t *testing.T) {
	var bag domain.Bag
	for i := 1; i <= 10; i++ {
		bag = append(bag, domain.Record{Path: fmt.Sprintf("Album/%02d Title.flac", i), Size: 40_000_000})
	}
	if got := classify(t, bag); got != domain.CategoryMusic {
		t.Errorf("got %q, want music", got)
	}
}

func TestScenario7_BigVideoOverridesJunkFiles(t *testing.T) {
	bag := domain.Bag{{Path: "Movie/Movie.mkv", Size: 2 << 30}}
	for i := 0; i < 20; i++ {
		bag = append(bag, domain.Record{Path: fmt.Sprintf("Movie/notes%d.txt", i), Size: 10_000})
	}
	if got := classify(t, bag); got != domain.CategoryFilm {
		t.Errorf("got %q, want film", got)
	}
}

func TestTwoEqualSizeVideosDoNotTriggerStructuralRule(t *testing.T) {
	bag := domain.Bag{
		{Path: "Movie/Movie CD1.mkv", Size: 3_000_000_000},
		{Path: "Movie/Movie CD2.mkv", Size: 3_000_000_000},
	}
	if got := classify(t, bag); got != domain.CategoryFilm {
		t.Errorf("got %q, want film (structural rule requires >= 3 members)", got)
	}
}

func TestEmptyBagIsSetupError(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	_, err := c.Classify(domain.Bag{}, nil)
	if err != ErrEmptyBag {
		t.Fatalf("Classify(empty) error = %v, want ErrEmptyBag", err)
	}
}

func TestMalformedRecordDroppedNotFatal(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	var dropped []string
	bag := domain.Bag{
		{Path: "bad", Size: -1},
		{Path: "Album/song.flac", Size: 40_000_000},
	}
	cat, err := c.Classify(bag, func(r domain.Record, reason string) {
		dropped = append(dropped, reason)
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cat != domain.CategoryMusic {
		t.Errorf("got %q, want music", cat)
	}
	if len(dropped) != 1 {
		t.Fatalf("expected 1 dropped record, got %d", len(dropped))
	}
}

func TestMalformedOnlyRecordsYieldsEmptyBagError(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	bag := domain.Bag{{Path: "bad", Size: -1}}
	_, err := c.Classify(bag, func(domain.Record, string) {})
	if err != ErrEmptyBag {
		t.Fatalf("error = %v, want ErrEmptyBag", err)
	}
}

func TestClassifyIsDeterministicAndOrderIndependent(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	base := domain.Bag{
		{Path: "Show/Show.S01E01.mkv", Size: 1_500_000_000},
		{Path: "Show/Show.S01E02.mkv", Size: 1_500_000_000},
		{Path: "Show/Show.S01E03.mkv", Size: 1_500_000_000},
		{Path: "Show/Show.S01E01.srt", Size: 2_000},
	}

	want, err := c.Classify(base, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	for i := 0; i < 20; i++ {
		shuffled := make(domain.Bag, len(base))
		copy(shuffled, base)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := c.Classify(shuffled, nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if got != want {
			t.Fatalf("permutation %d: got %q, want %q", i, got, want)
		}
	}
}

func TestClassifyAlwaysReturnsValidCategory(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	bags := []domain.Bag{
		{{Path: "a/b.txt", Size: 1}},
		{{Path: "a/b.mp3", Size: 1}},
		{{Path: "a/b.mkv", Size: 1}},
		{{Path: "a/b.iso", Size: 1}},
	}
	for _, bag := range bags {
		cat, err := c.Classify(bag, nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if !cat.Valid() {
			t.Errorf("Classify(%v) = %q, not a valid category", bag, cat)
		}
	}
}

func TestDiscLayoutCollapsesToOneVideoBucketEntry(t *testing.T) {
	c := mustNew(t, canonicalAVRegex)
	bag := domain.Bag{
		{Path: "Movie/BDMV/STREAM/00000.m2ts", Size: 20_000_000_000},
		{Path: "Movie/BDMV/STREAM/00001.m2ts", Size: 5_000_000_000},
		{Path: "Movie/BDMV/index.bdmv", Size: 1000},
	}
	cat, err := c.Classify(bag, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cat != domain.CategoryFilm {
		t.Errorf("got %q, want film", cat)
	}
}
