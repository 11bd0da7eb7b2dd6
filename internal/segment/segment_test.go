package segment

import (
	"strings"
	"testing"
)

func TestSegmentReconstructsInput(t *testing.T) {
	seg := New(true)
	inputs := []struct {
		lang string
		text string
	}{
		{"en", "Hello world. How are you? I am fine!"},
		{"en", "  leading space.  Trailing space.  "},
		{"de", "Das ist z.B. ein Test. Noch ein Satz."},
		{"zh", "你好。今天天气很好！"},
		{"en", "No terminal punctuation"},
		{"en", "Line one.\nLine two."},
	}
	for _, tc := range inputs {
		got := seg.Segment(tc.lang, tc.text)
		if len(got) == 0 {
			t.Fatalf("Segment(%q, %q) returned no segments", tc.lang, tc.text)
		}
		if joined := strings.Join(got, ""); joined != tc.text {
			t.Fatalf("Segment(%q, %q) joined to %q", tc.lang, tc.text, joined)
		}
	}
}

func TestSegmentSplitsSentences(t *testing.T) {
	got := New(true).Segment("en", "Hello world. How are you? I am fine!")
	want := []string{"Hello world. ", "How are you? ", "I am fine!"}
	if len(got) != len(want) {
		t.Fatalf("unexpected segments %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestSegmentKeepsAbbreviations(t *testing.T) {
	got := New(true).Segment("en", "Dr. Smith arrived. He sat down.")
	if len(got) != 2 || got[0] != "Dr. Smith arrived. " {
		t.Fatalf("unexpected segments %q", got)
	}
}

func TestSegmentFallsBackWhenUnavailable(t *testing.T) {
	text := "One. Two."
	if got := New(false).Segment("en", text); len(got) != 1 || got[0] != text {
		t.Fatalf("expected single segment when disabled, got %q", got)
	}
	if got := New(true).Segment("", text); len(got) != 1 || got[0] != text {
		t.Fatalf("expected single segment without language, got %q", got)
	}
	if got := New(true).Segment("not a tag!", text); len(got) != 1 || got[0] != text {
		t.Fatalf("expected single segment for unparseable language, got %q", got)
	}
}

func TestSegmentEmptyText(t *testing.T) {
	got := New(true).Segment("en", "")
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("expected one empty segment, got %q", got)
	}
}

func TestRulesCachedPerLanguage(t *testing.T) {
	seg := New(true)
	seg.Segment("en", "a. b.")
	seg.Segment("en", "c. d.")
	if seg.builds != 1 {
		t.Fatalf("expected one build for repeated language, got %d", seg.builds)
	}
	seg.Segment("de", "e. f.")
	seg.Segment("en", "g. h.")
	if seg.builds != 3 {
		t.Fatalf("expected rebuild on each language change, got %d", seg.builds)
	}
}
