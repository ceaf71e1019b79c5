// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package categorizer implements the deterministic classifier at the heart
// of the engine: given a Bag of (path, size) Records and an externally
// supplied adult-content regex, it assigns exactly one of
// {default, av, film, tv, music}.
//
// Classify is a pure function of its inputs. It performs no I/O beyond the
// diagnostics a caller chooses to log for dropped records; it never
// invents a category for an empty bag.
package categorizer

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/libertypi/queersmission/internal/domain"
	"github.com/libertypi/queersmission/internal/pathlex"
)

// SizeThresh is the 50 MiB cutoff used to separate "feature" video files
// from samples/extras when refining a film classification (spec.md §4.3
// Step D.2).
const SizeThresh int64 = 50 * 1024 * 1024

// ErrEmptyBag is returned when Classify is given a bag with no usable
// records (either empty to begin with, or emptied by dropping malformed
// records).
var ErrEmptyBag = errors.New("categorizer: empty bag")

var (
	// isoSoftwarePattern disambiguates the dual-use .iso extension: a hit
	// means "software installer", a miss means "disc-image video".
	// Boundaries are emulated as "not a lowercase letter or digit" so that
	// both true word boundaries and underscore-delimited tokens count,
	// matching the source behavior of (\b|_) in an engine where \b does
	// not cross an underscore.
	isoSoftwarePattern = regexp.MustCompile(`(^|[^a-z0-9])(adobe|microsoft|windows|x64|x86|v[0-9]+(\.[0-9]+)+)([^a-z0-9]|$)`)

	// tvMarkerPattern recognizes common season/episode numbering schemes
	// directly in a file path, independent of the structural inference
	// below.
	tvMarkerPattern = regexp.MustCompile(`(^|[^a-z0-9])(ep[\s_-]?[0-9]{1,2}|s[0-9]{1,2}e[0-9]{1,2}|[se][0-9]{1,2})([^a-z0-9]|$)`)

	digitRunPattern = regexp.MustCompile(`[0-9]+`)
)

// Categorizer classifies bags against one compiled adult-content regex,
// loaded once per process (see internal/regexloader).
type Categorizer struct {
	avRegex *regexp.Regexp
}

// New compiles the AV regex source with POSIX-ERE semantics (leftmost-
// longest, POSIX bracket classes), per spec.md §3's Entity Regex contract.
func New(avRegexSource string) (*Categorizer, error) {
	re, err := regexp.CompilePOSIX(avRegexSource)
	if err != nil {
		return nil, fmt.Errorf("categorizer: compile av regex: %w", err)
	}
	return &Categorizer{avRegex: re}, nil
}

type normalizedRecord struct {
	path string // lowercased
	root string
	ext  string
	size int64
}

// Classify implements spec.md §4.3's algorithm end to end. malformed
// reports, when non-nil, is called once per dropped record (e.g. negative
// size) with a human-readable reason; it may be nil.
func (c *Categorizer) Classify(bag domain.Bag, malformed func(domain.Record, string)) (domain.Category, error) {
	records := normalize(bag, malformed)
	if len(records) == 0 {
		return "", ErrEmptyBag
	}

	videoBucket := make(map[string]int64)
	typeBucket := map[domain.Category]int64{
		domain.CategoryFilm:    0,
		domain.CategoryMusic:   0,
		domain.CategoryDefault: 0,
	}

	for _, r := range records {
		class := classifyExt(r.ext)

		if r.ext == "iso" {
			if isoSoftwarePattern.MatchString(r.root) {
				typeBucket[domain.CategoryDefault] += r.size
				continue
			}
			// Dual-use rule: treat as video-primary, but adopt the full
			// path (no canonicalization) as the bucket key.
			videoBucket[r.path] += r.size
			typeBucket[domain.CategoryFilm] += r.size
			continue
		}

		if class == extVideoPrimary {
			key := pathlex.Canonicalize(r.root, r.ext)
			videoBucket[key] += r.size
		}

		typeBucket[typeForExtClass(class)] += r.size
	}

	chosen := pickDominantType(typeBucket)
	if chosen != domain.CategoryFilm {
		return chosen, nil
	}

	return c.refineFilm(videoBucket), nil
}

// normalize performs Step A's per-record lowercasing and split, dropping
// records with a negative size or an empty path (the malformed shapes
// Classify itself can observe - size is already typed as int64 by the time
// it reaches us).
func normalize(bag domain.Bag, malformed func(domain.Record, string)) []normalizedRecord {
	out := make([]normalizedRecord, 0, len(bag))
	for _, rec := range bag {
		if rec.Size < 0 {
			if malformed != nil {
				malformed(rec, "negative size")
			}
			continue
		}
		if rec.Path == "" {
			if malformed != nil {
				malformed(rec, "empty path")
			}
			continue
		}
		path := pathlex.ToLower(rec.Path)
		root, ext := pathlex.SplitExt(path)
		out = append(out, normalizedRecord{path: path, root: root, ext: ext, size: rec.Size})
	}
	return out
}

func typeForExtClass(class extClass) domain.Category {
	switch class {
	case extVideoPrimary, extVideoAccessory:
		return domain.CategoryFilm
	case extAudio:
		return domain.CategoryMusic
	default:
		return domain.CategoryDefault
	}
}

// pickDominantType implements Step B: argmax by summed size, ties broken
// by the fixed priority film > music > default (the first-seen key in
// descending-sum order, per spec.md §9's documented tiebreak choice).
func pickDominantType(typeBucket map[domain.Category]int64) domain.Category {
	priority := []domain.Category{domain.CategoryFilm, domain.CategoryMusic, domain.CategoryDefault}
	best := priority[0]
	bestSize := typeBucket[priority[0]]
	for _, cat := range priority[1:] {
		if typeBucket[cat] > bestSize {
			best = cat
			bestSize = typeBucket[cat]
		}
	}
	return best
}

type videoEntry struct {
	path string
	size int64
}

// refineFilm implements Step D: size-filter the video bucket, strip the
// common directory prefix, then try AV, TV-marker, and structural
// inference in that order, falling back to film.
func (c *Categorizer) refineFilm(videoBucket map[string]int64) domain.Category {
	entries := make([]videoEntry, 0, len(videoBucket))
	for path, size := range videoBucket {
		entries = append(entries, videoEntry{path: path, size: size})
	}
	// Deterministic ordering regardless of Go's randomized map iteration:
	// size descending, then path ascending to break ties.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].size != entries[j].size {
			return entries[i].size > entries[j].size
		}
		return entries[i].path < entries[j].path
	})

	if len(entries) == 0 {
		return domain.CategoryFilm
	}

	if entries[0].size >= SizeThresh {
		cut := len(entries)
		for i, e := range entries {
			if e.size < SizeThresh {
				cut = i
				break
			}
		}
		entries = entries[:cut]
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}

	prefix := commonDirPrefix(paths)
	surviving := make([]string, len(paths))
	for i, p := range paths {
		surviving[i] = stripPrefix(p, prefix)
	}

	for _, p := range surviving {
		if c.avRegex.MatchString(p) {
			return domain.CategoryAV
		}
	}

	for _, p := range surviving {
		if tvMarkerPattern.MatchString(p) {
			return domain.CategoryTV
		}
	}

	if len(surviving) >= 3 && consecutiveDigitFires(surviving) {
		return domain.CategoryTV
	}

	return domain.CategoryFilm
}

// commonDirPrefix returns the longest shared sequence of leading directory
// components across paths, considering only each path's directory portion
// (its final "/"-delimited component, the filename, never participates).
// Returns "" when there is no common ancestor.
func commonDirPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	dirLists := make([][]string, len(paths))
	minDirs := -1
	for i, p := range paths {
		parts := strings.Split(p, "/")
		dirs := parts[:len(parts)-1]
		dirLists[i] = dirs
		if minDirs == -1 || len(dirs) < minDirs {
			minDirs = len(dirs)
		}
	}

	var common []string
	for i := 0; i < minDirs; i++ {
		seg := dirLists[0][i]
		for _, dirs := range dirLists[1:] {
			if dirs[i] != seg {
				return strings.Join(common, "/")
			}
		}
		common = append(common, seg)
	}
	return strings.Join(common, "/")
}

func stripPrefix(path, prefix string) string {
	if prefix == "" {
		return path
	}
	cut := prefix + "/"
	if strings.HasPrefix(path, cut) {
		return path[len(cut):]
	}
	return path
}

// consecutiveDigitFires implements the Consecutive-Digit structural
// inference (spec.md §4.3): three or more sibling paths sharing a textual
// context at the same digit-split index, differing only in that index's
// integer value.
func consecutiveDigitFires(paths []string) bool {
	type groupKey struct {
		index int
		key   string
	}
	groups := make(map[groupKey]map[int64]struct{})

	for _, p := range paths {
		words, nums := splitDigitRuns(p)
		for i := 0; i < len(nums); i++ {
			key := digitSplitKey(words[i])
			gk := groupKey{index: i, key: key}
			set, ok := groups[gk]
			if !ok {
				set = make(map[int64]struct{})
				groups[gk] = set
			}
			set[nums[i]] = struct{}{}
		}
	}

	for _, set := range groups {
		if len(set) >= 3 {
			return true
		}
	}
	return false
}

// splitDigitRuns splits path on maximal runs of digits, returning the
// words that surround each run alongside the run's integer value.
// len(words) == len(nums)+1; words[i] immediately precedes nums[i].
func splitDigitRuns(path string) (words []string, nums []int64) {
	matches := digitRunPattern.FindAllStringIndex(path, -1)
	prev := 0
	for _, m := range matches {
		words = append(words, path[prev:m[0]])
		n, _ := strconv.ParseInt(path[m[0]:m[1]], 10, 64)
		nums = append(nums, n)
		prev = m[1]
	}
	words = append(words, path[prev:])
	return words, nums
}

// digitSplitKey takes the tail of word within its current path component
// (everything after the last '/'), then strips whitespace, control
// characters, '.', '_', and '-'.
func digitSplitKey(word string) string {
	if idx := strings.LastIndexByte(word, '/'); idx >= 0 {
		word = word[idx+1:]
	}
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r):
			continue
		case r == '.' || r == '_' || r == '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

