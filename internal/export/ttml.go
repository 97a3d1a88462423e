package export

import (
	"fmt"
	"strings"

	"github.com/snarg/captiond/internal/transcript"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// renderTTML emits timed-text caption markup: one <p> per segment with
// begin/end attributes in the canonical HH:MM:SS.mmm form and XML-escaped
// text content.
func renderTTML(segs []transcript.Segment, v Variant) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<tt xmlns=\"http://www.w3.org/ns/ttml\">\n")
	b.WriteString("  <body>\n    <div>\n")
	for _, s := range segs {
		fmt.Fprintf(&b, "      <p begin=\"%s\" end=\"%s\">%s</p>\n",
			transcript.FormatTimestamp(s.Start),
			transcript.FormatTimestamp(s.End),
			xmlEscaper.Replace(s.TextFor(v)))
	}
	b.WriteString("    </div>\n  </body>\n</tt>\n")
	return b.String()
}
