package transcript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSeconds converts a timestamp token in any of the notations the
// upstream generator emits into total seconds. It is a total function:
// unparseable or negative input yields 0.
//
// Accepted notations, disambiguated by colon count:
//
//	"5", "5.25", "5,25"     bare seconds (comma decimal separator accepted)
//	"120ms", "4.5s"         unit-suffixed values
//	"MM:SS", "MM:SS.mmm"    two components
//	"HH:MM:SS"              three components, seconds <= 59
//	"MM:SS:mmm"             three components where the last is a bare
//	                        3-digit group or exceeds 59
//	"HH:MM:SS.mmm"          three components with a dot fraction
//	"HH:MM:SS:mmm"          four components (colon misused before millis)
//
// The three-component heuristic can misread a legitimate HH:MM:SS whose
// seconds field is zero-padded to three digits or corrupted past 59; the
// upstream notation is itself ambiguous there, so the rule is applied
// consistently rather than special-cased.
func ParseSeconds(token string) float64 {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" {
		return 0
	}

	// Unit suffixes: "ms" scales from milliseconds, a bare "s" is dropped.
	scale := 1.0
	if strings.HasSuffix(s, "ms") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "ms"))
		scale = 0.001
	} else if strings.HasSuffix(s, "s") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "s"))
	}

	// Comma as decimal separator (and SRT-style "SS,mmm").
	s = strings.ReplaceAll(s, ",", ".")

	var total float64
	if !strings.Contains(s, ":") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		total = f * scale
	} else {
		total = parseColonParts(strings.Split(s, ":")) * scale
	}

	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	// Millisecond resolution.
	return math.Round(total*1000) / 1000
}

func parseColonParts(parts []string) float64 {
	num := func(p string) float64 {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0
		}
		return f
	}

	switch len(parts) {
	case 2: // MM:SS[.mmm]
		return num(parts[0])*60 + num(parts[1])
	case 3:
		last := strings.TrimSpace(parts[2])
		switch {
		case strings.Contains(last, "."):
			// HH:MM:SS.mmm
			return num(parts[0])*3600 + num(parts[1])*60 + num(last)
		case isBareMillis(last) || num(last) > 59:
			// MM:SS:mmm: the generator used a colon before milliseconds
			return num(parts[0])*60 + num(parts[1]) + fraction(last)
		default:
			// HH:MM:SS
			return num(parts[0])*3600 + num(parts[1])*60 + num(last)
		}
	case 4: // HH:MM:SS:mmm
		return num(parts[0])*3600 + num(parts[1])*60 + num(parts[2]) + fraction(parts[3])
	default:
		// Stray extra colons: salvage nothing rather than guess.
		return 0
	}
}

// isBareMillis reports whether p is exactly three digits, which the
// disambiguation heuristic reads as a millisecond group.
func isBareMillis(p string) bool {
	if len(p) != 3 {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// fraction interprets a bare digit group as a decimal fraction of a second,
// so "5" is 0.5s, "05" is 0.05s and "500" is 0.5s.
func fraction(p string) float64 {
	p = strings.TrimSpace(p)
	f, err := strconv.ParseFloat("0."+p, 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatTimestamp renders total seconds as the canonical zero-padded
// HH:MM:SS.mmm display string. The string is always re-derived from the
// total, so overflowed fields ("00:65.250") come out reduced
// ("00:01:05.250"). Negative input clamps to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	sec := (ms % 60000) / 1000
	rem := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, rem)
}
