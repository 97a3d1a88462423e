package transcript

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Repair failure modes. Anything short of these is absorbed: a blob that
// yields at least one record is a success, however mangled the rest of it is.
var (
	// ErrEmptyResponse means the upstream service returned a blank blob.
	ErrEmptyResponse = errors.New("empty response from transcription service")

	// ErrUnrecoverable means no stage of the repair cascade could recover
	// a single record.
	ErrUnrecoverable = errors.New("response structure invalid and unrecoverable")
)

// Stage identifies which step of the repair cascade produced the records.
type Stage string

const (
	StageDirect    Stage = "direct"
	StageTruncated Stage = "truncated"
	StageScan      Stage = "scan"
)

// Repair extracts segment records from a raw generation response. The blob
// should contain {"segments":[...]} but may be fenced, truncated mid-record
// by the generator's output limit, or structurally broken. Three stages are
// tried in order, each only when the previous one fails:
//
//  1. strip code fences and parse directly;
//  2. cut at the last fully closed record, close the structure, re-parse;
//  3. scan for record-shaped fragments with a tolerant pattern.
//
// Returned text values are fully unescaped UTF-8.
func Repair(blob string) ([]RawRecord, Stage, error) {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return nil, "", ErrEmptyResponse
	}

	body := stripFences(trimmed)

	if recs := parseStructured(body); len(recs) > 0 {
		return recs, StageDirect, nil
	}
	if recs := parseTruncated(body); len(recs) > 0 {
		return recs, StageTruncated, nil
	}
	if recs := scanRecords(body); len(recs) > 0 {
		return recs, StageScan, nil
	}
	return nil, "", ErrUnrecoverable
}

// stripFences removes a leading ```lang marker and a trailing ``` if present.
// A truncated blob may carry the opening fence without the closing one.
func stripFences(s string) string {
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop the language tag up to the first newline.
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimLeft(s, "`")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseStructured attempts a direct parse. Both the documented object form
// and a bare top-level array are accepted.
func parseStructured(body string) []RawRecord {
	var wrapped struct {
		Segments []RawRecord `json:"segments"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err == nil && len(wrapped.Segments) > 0 {
		return wrapped.Segments
	}

	var bare []RawRecord
	if err := json.Unmarshal([]byte(body), &bare); err == nil && len(bare) > 0 {
		return bare
	}
	return nil
}

// parseTruncated handles mid-record truncation: everything past the last
// fully closed record is discarded and the enclosing structure is closed
// synthetically. Several closers are tried since the cut can land before or
// after the array's own closing bracket.
func parseTruncated(body string) []RawRecord {
	last := strings.LastIndexByte(body, '}')
	if last < 0 {
		return nil
	}
	head := body[:last+1]

	for _, closer := range []string{"]}", "]", "}", ""} {
		if recs := parseStructured(head + closer); len(recs) > 0 {
			return recs
		}
	}
	return nil
}

// recordRe matches one record-shaped fragment regardless of the surrounding
// structural validity: startTime/endTime as quoted strings or bare numeric
// tokens, text single- or double-quoted with escaped quotes, and an optional
// trailing translatedText.
var recordRe = regexp.MustCompile(
	`"startTime"\s*:\s*(?:"([^"]*)"|([0-9][0-9.,:]*))\s*,\s*` +
		`"endTime"\s*:\s*(?:"([^"]*)"|([0-9][0-9.,:]*))\s*,\s*` +
		`"text"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')` +
		`(?:\s*,\s*"translatedText"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'))?`,
)

// scanRecords is the last-resort stage: collect every fragment the tolerant
// pattern matches, in document order.
func scanRecords(body string) []RawRecord {
	matches := recordRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	recs := make([]RawRecord, 0, len(matches))
	for _, m := range matches {
		recs = append(recs, RawRecord{
			StartTime:      looseString(firstOf(m[1], m[2])),
			EndTime:        looseString(firstOf(m[3], m[4])),
			Text:           unescape(firstOf(m[5], m[6])),
			TranslatedText: unescape(firstOf(m[7], m[8])),
		})
	}
	return recs
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// unescape resolves backslash escapes in a scanned text value. Records must
// never surface with leftover escaping, so every sequence JSON (or a sloppy
// generator) can produce is handled; an unknown escape keeps the literal
// character.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 < len(s) {
				if r, ok := decodeUnicodeEscape(s, &i); ok {
					b.WriteRune(r)
					continue
				}
			}
			b.WriteByte('u')
		default:
			// \" \' \\ \/ and anything unexpected: keep the character.
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// decodeUnicodeEscape reads the 4 hex digits after \u at s[*i], pairing a
// high surrogate with a following \uXXXX low surrogate when present.
// On success *i is advanced past the consumed digits.
func decodeUnicodeEscape(s string, i *int) (rune, bool) {
	v, err := strconv.ParseUint(s[*i+1:*i+5], 16, 32)
	if err != nil {
		return 0, false
	}
	r := rune(v)
	*i += 4

	if utf16.IsSurrogate(r) && *i+6 < len(s) && s[*i+1] == '\\' && s[*i+2] == 'u' {
		if lo, err := strconv.ParseUint(s[*i+3:*i+7], 16, 32); err == nil {
			if combined := utf16.DecodeRune(r, rune(lo)); combined != 0xFFFD {
				*i += 6
				return combined, true
			}
		}
	}
	return r, true
}
