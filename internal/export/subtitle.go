package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/snarg/captiond/internal/transcript"
)

// formatSRTTime renders seconds as HH:MM:SS,mmm. SubRip uses a comma
// before the milliseconds, not a dot.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		ms/3600000, (ms%3600000)/60000, (ms%60000)/1000, ms%1000)
}

// renderSRT emits SubRip blocks: 1-based index line, time range line,
// selected text, then a blank line.
func renderSRT(segs []transcript.Segment, v Variant) string {
	var b strings.Builder
	for i, s := range segs {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, formatSRTTime(s.Start), formatSRTTime(s.End), s.TextFor(v))
	}
	return b.String()
}

// formatLRCTime renders seconds as [MM:SS.hh]: two-digit minutes, seconds
// and hundredths, no hours component.
func formatLRCTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("[%02d:%02d.%02d]", cs/6000, (cs%6000)/100, cs%100)
}

// renderLRC emits one lyric line per segment. When the silence after a
// segment exceeds the gap threshold, a timestamp-only line at end+gap blanks
// the display during the gap. The final segment gets the same trailing
// marker unless a known total duration says it would land past the end.
func renderLRC(segs []transcript.Segment, v Variant, opts Options) string {
	gap := opts.gap()

	var b strings.Builder
	for i, s := range segs {
		b.WriteString(formatLRCTime(s.Start))
		b.WriteString(collapseNewlines(s.TextFor(v)))
		b.WriteByte('\n')

		clearAt := s.End + gap
		if i+1 < len(segs) {
			if segs[i+1].Start-s.End > gap {
				b.WriteString(formatLRCTime(clearAt))
				b.WriteByte('\n')
			}
			continue
		}
		// Trailing marker: always when duration is unknown, suppressed when
		// it would land past the known end of the audio.
		if opts.TotalDuration <= 0 || clearAt <= opts.TotalDuration {
			b.WriteString(formatLRCTime(clearAt))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// collapseNewlines flattens internal line breaks to spaces; LRC is strictly
// one line per timestamp.
func collapseNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "\r", " ")
}
