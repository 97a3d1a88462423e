package transcript

import "testing"

// ── ParseSeconds ─────────────────────────────────────────────────────

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  float64
	}{
		{"bare_seconds", "5", 5},
		{"bare_float", "5.25", 5.25},
		{"comma_decimal", "5,25", 5.25},
		{"seconds_suffix", "4.5s", 4.5},
		{"milliseconds_suffix", "250ms", 0.25},
		{"two_components", "00:23", 23},
		{"two_components_millis", "00:65.250", 65.25},
		{"three_components_clock", "01:02:03", 3723},
		{"three_components_dot_millis", "1:02:03.500", 3723.5},
		{"three_components_bare_millis", "02:15:500", 135.5},
		{"three_components_over_59", "00:01:75", 1.75},
		{"four_components", "01:02:03:500", 3723.5},
		{"srt_comma_millis", "00:00:02,500", 2.5},
		{"whitespace_trimmed", "  00:23  ", 23},
		{"uppercase_suffix", "120MS", 0.12},
		{"empty", "", 0},
		{"garbage", "soon", 0},
		{"negative_clamped", "-5", 0},
		{"too_many_colons", "1:2:3:4:5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSeconds(tt.token)
			if got != tt.want {
				t.Errorf("ParseSeconds(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseSeconds_HeuristicAmbiguity(t *testing.T) {
	// A zero-padded 3-digit seconds field reads as milliseconds. This is the
	// documented false-positive of the disambiguation rule: the upstream
	// notation itself cannot distinguish the two.
	got := ParseSeconds("01:02:030")
	if got != 62.03 {
		t.Errorf("ParseSeconds(%q) = %v, want 62.03 (MM:SS:mmm reading)", "01:02:030", got)
	}
}

// ── FormatTimestamp ──────────────────────────────────────────────────

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "00:00:00.000"},
		{"plain_seconds", 23, "00:00:23.000"},
		{"with_millis", 65.25, "00:01:05.250"},
		{"hours", 3723.5, "01:02:03.500"},
		{"negative_clamped", -1, "00:00:00.000"},
		{"sub_millisecond_rounded", 1.2345, "00:00:01.235"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTimestamp(tt.seconds)
			if got != tt.want {
				t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	// Overflowed fields come out reduced in the canonical string.
	if got := FormatTimestamp(ParseSeconds("00:65.250")); got != "00:01:05.250" {
		t.Errorf("round trip = %q, want %q", got, "00:01:05.250")
	}
}
