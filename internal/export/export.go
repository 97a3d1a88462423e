// Package export renders canonical segment lists into the interchange
// formats downstream tools consume. Every format has fixed byte-level rules;
// output for a given input never varies.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snarg/captiond/internal/transcript"
)

// Format selects the target output format.
type Format string

const (
	FormatText Format = "text" // plain text, blank line between segments
	FormatSRT  Format = "srt"  // SubRip subtitle blocks
	FormatLRC  Format = "lrc"  // lyric timing lines
	FormatJSON Format = "json" // pretty-printed segment array
	FormatTTML Format = "ttml" // timed-text caption markup
)

// Formats lists every supported format, for request validation.
func Formats() []Format {
	return []Format{FormatText, FormatSRT, FormatLRC, FormatJSON, FormatTTML}
}

// Extension returns the conventional file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// ContentType returns the MIME type for serving a rendered document.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatTTML:
		return "application/ttml+xml; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// DefaultGapSeconds is the fixed silence threshold and clear-marker offset
// for lyric timing output.
const DefaultGapSeconds = 4.0

// Options are the explicit rendering parameters. The zero value is valid:
// GapSeconds falls back to DefaultGapSeconds and TotalDuration <= 0 means
// the audio duration is unknown.
type Options struct {
	// GapSeconds is the silence threshold after which a lyric clear marker
	// is inserted, and the offset at which it lands.
	GapSeconds float64

	// TotalDuration is the known audio duration in seconds, used to
	// suppress a trailing clear marker that would land past the end.
	// Values <= 0 mean unknown.
	TotalDuration float64
}

func (o Options) gap() float64 {
	if o.GapSeconds > 0 {
		return o.GapSeconds
	}
	return DefaultGapSeconds
}

// Export renders segs in the given format and text variant. Segments are
// sorted chronologically first; the caller's slice is not modified. An
// unknown format is a caller error and returns an error rather than output.
func Export(segs []transcript.Segment, f Format, v Variant, opts Options) (string, error) {
	ordered := transcript.SortByStart(segs)

	switch f {
	case FormatText:
		return renderText(ordered, v), nil
	case FormatSRT:
		return renderSRT(ordered, v), nil
	case FormatLRC:
		return renderLRC(ordered, v, opts), nil
	case FormatJSON:
		return renderJSON(ordered, v)
	case FormatTTML:
		return renderTTML(ordered, v), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", f)
	}
}

// Variant aliases the transcript text selector so callers importing only
// this package can name it.
type Variant = transcript.Variant

// renderText joins the selected text of each segment with a blank line.
// No timing metadata.
func renderText(segs []transcript.Segment, v Variant) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.TextFor(v)
	}
	return strings.Join(parts, "\n\n")
}

// renderJSON emits the pretty-printed array form: 2-space indent, exactly
// startTime, endTime and the selected text under the "text" key, in that
// order.
func renderJSON(segs []transcript.Segment, v Variant) (string, error) {
	type entry struct {
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
		Text      string  `json:"text"`
	}

	entries := make([]entry, len(segs))
	for i, s := range segs {
		entries[i] = entry{StartTime: s.Start, EndTime: s.End, Text: s.TextFor(v)}
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal segments: %w", err)
	}
	return string(out), nil
}
