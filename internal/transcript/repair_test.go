package transcript

import (
	"errors"
	"testing"
)

func TestRepair_DirectParse(t *testing.T) {
	t.Run("plain_object", func(t *testing.T) {
		recs, stage, err := Repair(`{"segments":[{"startTime":"0:00","endTime":"0:02","text":"Hi"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stage != StageDirect {
			t.Errorf("stage = %q, want %q", stage, StageDirect)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
		if recs[0].Text != "Hi" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "Hi")
		}
	})

	t.Run("fenced_with_language_tag", func(t *testing.T) {
		blob := "```json\n{\"segments\":[{\"startTime\":\"0:00\",\"endTime\":\"0:02\",\"text\":\"Hi\"}]}\n```"
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
	})

	t.Run("fenced_without_language_tag", func(t *testing.T) {
		blob := "```\n{\"segments\":[{\"startTime\":\"0:00\",\"endTime\":\"0:02\",\"text\":\"Hi\"}]}\n```"
		if _, _, err := Repair(blob); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("bare_array", func(t *testing.T) {
		recs, _, err := Repair(`[{"startTime":"0:00","endTime":"0:02","text":"Hi"}]`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
	})

	t.Run("numeric_timestamps", func(t *testing.T) {
		recs, _, err := Repair(`{"segments":[{"startTime":1.5,"endTime":3,"text":"Hi"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(recs[0].StartTime) != "1.5" {
			t.Errorf("StartTime = %q, want %q", recs[0].StartTime, "1.5")
		}
		if string(recs[0].EndTime) != "3" {
			t.Errorf("EndTime = %q, want %q", recs[0].EndTime, "3")
		}
	})

	t.Run("translated_text_preserved", func(t *testing.T) {
		recs, _, err := Repair(`{"segments":[{"startTime":"0","endTime":"1","text":"Hi","translatedText":"Hallo"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].TranslatedText != "Hallo" {
			t.Errorf("TranslatedText = %q, want %q", recs[0].TranslatedText, "Hallo")
		}
	})
}

func TestRepair_Truncated(t *testing.T) {
	t.Run("cut_mid_record", func(t *testing.T) {
		blob := `{"segments":[{"startTime":"0:00","endTime":"0:02","text":"Hi"},{"startTime":"0:02","endTime":"0`
		recs, stage, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stage != StageTruncated {
			t.Errorf("stage = %q, want %q", stage, StageTruncated)
		}
		if len(recs) != 1 {
			t.Fatalf("expected exactly 1 record, got %d", len(recs))
		}
		if string(recs[0].StartTime) != "0:00" || string(recs[0].EndTime) != "0:02" || recs[0].Text != "Hi" {
			t.Errorf("got %+v, want {0:00 0:02 Hi}", recs[0])
		}
	})

	t.Run("cut_after_array_close", func(t *testing.T) {
		blob := `{"segments":[{"startTime":"0:00","endTime":"0:02","text":"Hi"}]`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
	})

	t.Run("fence_opened_never_closed", func(t *testing.T) {
		blob := "```json\n{\"segments\":[{\"startTime\":\"0:00\",\"endTime\":\"0:02\",\"text\":\"Hi\"},{\"startTime\":\"0:0"
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
	})
}

func TestRepair_Scan(t *testing.T) {
	t.Run("structurally_broken", func(t *testing.T) {
		// Stray unescaped brace earlier in the blob defeats both parse stages.
		blob := `{"segments":[}garbage{ "startTime":"0:00","endTime":"0:02","text":"Hi" }`
		recs, stage, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stage != StageScan {
			t.Errorf("stage = %q, want %q", stage, StageScan)
		}
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
		if recs[0].Text != "Hi" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "Hi")
		}
	})

	t.Run("single_quoted_text", func(t *testing.T) {
		blob := `broken "startTime":"0:00","endTime":"0:02","text":'it\'s fine' broken`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "it's fine" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "it's fine")
		}
	})

	t.Run("escaped_quotes_unescaped", func(t *testing.T) {
		blob := `x "startTime":0,"endTime":2,"text":"say \"hi\"\nnow" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "say \"hi\"\nnow" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "say \"hi\"\nnow")
		}
	})

	t.Run("literal_utf8_passthrough", func(t *testing.T) {
		blob := `x "startTime":0,"endTime":2,"text":"café" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "café" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "café")
		}
	})

	t.Run("unicode_escape_decoded", func(t *testing.T) {
		blob := `x "startTime":0,"endTime":2,"text":"café" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "café" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "café")
		}
	})

	t.Run("surrogate_pair_decoded", func(t *testing.T) {
		blob := `x "startTime":0,"endTime":2,"text":"ok 😀" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "ok \U0001F600" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "ok \U0001F600")
		}
	})

	t.Run("invalid_unicode_escape_kept_literal", func(t *testing.T) {
		blob := `x "startTime":0,"endTime":2,"text":"a\uZZZZb" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].Text != "auZZZZb" {
			t.Errorf("Text = %q, want %q", recs[0].Text, "auZZZZb")
		}
	})

	t.Run("multiple_fragments_in_order", func(t *testing.T) {
		blob := `? "startTime":"0","endTime":"1","text":"a" ?? "startTime":"1","endTime":"2","text":"b" ?`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("expected 2 records, got %d", len(recs))
		}
		if recs[0].Text != "a" || recs[1].Text != "b" {
			t.Errorf("order wrong: %q, %q", recs[0].Text, recs[1].Text)
		}
	})

	t.Run("translated_fragment", func(t *testing.T) {
		blob := `x "startTime":"0","endTime":"1","text":"hi","translatedText":"hallo" x`
		recs, _, err := Repair(blob)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if recs[0].TranslatedText != "hallo" {
			t.Errorf("TranslatedText = %q, want %q", recs[0].TranslatedText, "hallo")
		}
	})
}

func TestRepair_Failures(t *testing.T) {
	t.Run("empty_blob", func(t *testing.T) {
		_, _, err := Repair("")
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("whitespace_only", func(t *testing.T) {
		_, _, err := Repair("  \n\t ")
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("no_records_recoverable", func(t *testing.T) {
		_, _, err := Repair("The model apologizes and refuses to answer.")
		if !errors.Is(err, ErrUnrecoverable) {
			t.Errorf("expected ErrUnrecoverable, got %v", err)
		}
	})

	t.Run("empty_segments_array", func(t *testing.T) {
		_, _, err := Repair(`{"segments":[]}`)
		if !errors.Is(err, ErrUnrecoverable) {
			t.Errorf("expected ErrUnrecoverable, got %v", err)
		}
	})
}

func TestNormalize(t *testing.T) {
	recs := []RawRecord{
		{StartTime: "0:00", EndTime: "0:02", Text: "Hi"},
		{StartTime: "0:02", EndTime: "0:05.500", Text: "there", TranslatedText: "da"},
	}

	segs := Normalize(recs)

	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 2 {
		t.Errorf("segment 0 = [%v, %v], want [0, 2]", segs[0].Start, segs[0].End)
	}
	if segs[1].End != 5.5 {
		t.Errorf("segment 1 end = %v, want 5.5", segs[1].End)
	}
	if segs[1].Translated != "da" {
		t.Errorf("Translated = %q, want %q", segs[1].Translated, "da")
	}
}

func TestSortByStart(t *testing.T) {
	segs := []Segment{
		{Start: 5, End: 7, Text: "c"},
		{Start: 0, End: 2, Text: "a"},
		{Start: 2, End: 5, Text: "b"},
	}

	sorted := SortByStart(segs)

	if sorted[0].Text != "a" || sorted[1].Text != "b" || sorted[2].Text != "c" {
		t.Errorf("order = %q %q %q, want a b c", sorted[0].Text, sorted[1].Text, sorted[2].Text)
	}
	// Input untouched.
	if segs[0].Text != "c" {
		t.Error("SortByStart mutated its input")
	}
}
