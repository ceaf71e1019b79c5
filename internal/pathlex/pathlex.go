// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

// Package pathlex provides the pure path-text operations the Categorizer
// builds on: ASCII lowercasing, extension splitting, and disc-image
// sub-path canonicalization. All three are path-semantics (forward-slash
// separated), not filepath/OS semantics - torrent file lists always use
// "/" regardless of host platform.
package pathlex

import (
	"regexp"
	"strings"
)

// ToLower ASCII-lowercases path. Bytes outside A-Z pass through unchanged,
// so multi-byte UTF-8 sequences are preserved verbatim.
func ToLower(path string) string {
	b := []byte(path)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return path
	}
	return string(b)
}

// SplitExt splits path into (root, ext) the way a classical "splitext"
// does: ext is the substring after the last '.' in the final path
// component, provided that '.' is preceded by at least one non-'.'
// character in that same component. The '.' itself is not included in ext.
//
//	a/b.c      -> a/b, c
//	a/.hidden  -> a/.hidden, ""
//	a/b.tar.gz -> a/b.tar, gz
//	a/b        -> a/b, ""
//	a.b/c      -> a.b/c, ""
func SplitExt(path string) (root, ext string) {
	slash := strings.LastIndexByte(path, '/')
	component := path
	if slash >= 0 {
		component = path[slash+1:]
	}

	dot := strings.LastIndexByte(component, '.')
	if dot <= 0 || strings.Trim(component[:dot], ".") == "" {
		// No dot, or only dots precede it within the component (e.g.
		// ".hidden", "a/.hidden", "..hidden") - in every case there is no
		// non-dot/non-slash byte preceding it within the component.
		return path, ""
	}

	return path[:slash+1+dot], component[dot+1:]
}

var (
	bdmvStreamSuffix = regexp.MustCompile(`/bdmv/stream/[^/]+$`)
	vtsComponent     = regexp.MustCompile(`^(.*/)?([^/]*vts[0-9_]*)$`)
)

// Canonicalize reduces a disc-image sub-file's root to the directory
// identity of the disc, so multi-file BDMV/VIDEO_TS layouts count as one
// logical video under the same bucket key:
//
//   - ext == "m2ts" and root matches ".../bdmv/stream/<any>": strip the
//     trailing "/bdmv/stream/<any>", yielding the directory containing bdmv/.
//   - ext == "vob" and root matches ".../<any>vts[0-9_]*": replace the
//     terminal path component with "video_ts".
//   - otherwise: root unchanged.
func Canonicalize(root, ext string) string {
	switch ext {
	case "m2ts":
		if loc := bdmvStreamSuffix.FindStringIndex(root); loc != nil {
			return root[:loc[0]]
		}
	case "vob":
		if m := vtsComponent.FindStringSubmatch(root); m != nil {
			return m[1] + "video_ts"
		}
	}
	return root
}
