package mqttclient

import "testing"

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "transcripts/lane-a", []string{"transcripts/lane-a"}},
		{"multiple_with_spaces", "a/#, b/+/raw ,c", []string{"a/#", "b/+/raw", "c"}},
		{"empty_defaults", "", []string{"transcripts/#"}},
		{"only_commas_defaults", " , ,", []string{"transcripts/#"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFilters(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFilters(%q) has %d filters, want %d", tt.raw, len(got), len(tt.want))
			}
			for _, topic := range tt.want {
				qos, ok := got[topic]
				if !ok {
					t.Errorf("parseFilters(%q) missing topic %q", tt.raw, topic)
				}
				if qos != 0 {
					t.Errorf("qos for %q = %d, want 0", topic, qos)
				}
			}
		})
	}
}
