package transcript

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Segment is one time-bounded transcript unit with canonical timestamps.
// Segments are value data: pipeline stages produce new slices rather than
// mutating in place. End >= Start is a soft invariant; upstream output may
// violate it and downstream code tolerates that.
type Segment struct {
	Start      float64 `json:"startTime"`
	End        float64 `json:"endTime"`
	Text       string  `json:"text"`
	Translated string  `json:"translatedText,omitempty"`
}

// Variant selects which text field of a segment is rendered.
type Variant string

const (
	VariantOriginal   Variant = "original"
	VariantTranslated Variant = "translated"
)

// TextFor returns the segment text for the given variant. A missing
// translation renders as the empty string, never an error.
func (s Segment) TextFor(v Variant) string {
	if v == VariantTranslated {
		return s.Translated
	}
	return s.Text
}

// RawRecord is the pre-normalization form of a segment: unvalidated string
// fields as extracted from the upstream response. Its lifetime ends at
// Normalize.
type RawRecord struct {
	StartTime      looseString `json:"startTime"`
	EndTime        looseString `json:"endTime"`
	Text           string      `json:"text"`
	TranslatedText string      `json:"translatedText,omitempty"`
}

// looseString accepts both JSON strings and bare numbers, since the upstream
// generator emits timestamps in either form.
type looseString string

func (ls *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*ls = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ls = looseString(s)
		return nil
	}
	// Bare number (or anything else): keep the raw token; the timestamp
	// normalizer handles unparseable input.
	*ls = looseString(strings.TrimSpace(string(data)))
	return nil
}

// Normalize converts raw records into canonical segments, running every
// timestamp through the normalizer. Record order is preserved.
func Normalize(records []RawRecord) []Segment {
	segs := make([]Segment, len(records))
	for i, r := range records {
		segs[i] = Segment{
			Start:      ParseSeconds(string(r.StartTime)),
			End:        ParseSeconds(string(r.EndTime)),
			Text:       r.Text,
			Translated: r.TranslatedText,
		}
	}
	return segs
}

// SortByStart returns a copy of segs ordered by start time ascending.
// Upstream emission order is not guaranteed to be chronological, so anything
// that depends on chronology (gap logic, playhead resolution) sorts first.
// The sort is stable: equal starts keep their emission order.
func SortByStart(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
