// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package categorizer

// extClass is the closed partition over lowercase, dotless extensions that
// Step A of the classification algorithm assigns each record to.
type extClass int

const (
	extOther extClass = iota
	extVideoPrimary
	extVideoAccessory
	extAudio
	extDiscImage
)

// videoPrimaryExt enumerates real video containers (spec.md §6).
var videoPrimaryExt = buildSet(
	"3gp", "3g2", "3gpp", "asf", "avi", "divx", "dpg", "evo", "flv", "f4v",
	"ifo", "k3g", "m1v", "m2v", "m4v", "mkv", "m4k", "mov", "mp2v", "m2ts",
	"m2t", "m4b", "m4p", "mp4", "mpeg", "mpg", "mpv", "mpv2", "mxf", "nsr",
	"nsv", "ogv", "ogm", "rm", "rmvb", "ram", "skm", "swf", "tp", "tpr",
	"ts", "vob", "webm", "wmv", "wmp", "wtv",
)

// videoAccessoryExt enumerates subtitles, playlists, and disc-menu files.
var videoAccessoryExt = buildSet(
	"ass", "xss", "asx", "bdjo", "bdmv", "clpi", "idx", "mpl", "mpls", "psb",
	"rt", "sbv", "smi", "srr", "srt", "ssa", "ssf", "sub", "sup", "ttml",
	"usf", "vtt", "wmx", "wvx",
)

// audioExt enumerates audio containers and playlists.
var audioExt = buildSet(
	"aac", "ac3", "aiff", "alac", "amr", "ape", "cda", "cue", "dsf", "dts",
	"dtshd", "eac3", "flac", "m3u", "m3u8", "m4a", "m1a", "m2a", "m4k", "ma",
	"mka", "mod", "mp2", "mp3", "mpc", "ogg", "opus", "pls", "rma", "tak",
	"tta", "wav", "wax", "wma", "wmv", "xspf",
)

func buildSet(exts ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		s[e] = struct{}{}
	}
	return s
}

// classifyExt returns the extension class for a lowercase, dotless extension.
// "iso" is in none of the tables and so reports extOther; Classify handles it
// separately, since it is dual-use and needs the record's root path to
// disambiguate.
func classifyExt(ext string) extClass {
	if _, ok := videoPrimaryExt[ext]; ok {
		return extVideoPrimary
	}
	if _, ok := videoAccessoryExt[ext]; ok {
		return extVideoAccessory
	}
	if _, ok := audioExt[ext]; ok {
		return extAudio
	}
	return extOther
}
