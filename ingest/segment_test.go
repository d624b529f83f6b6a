package ingest

import (
	"strings"
	"testing"
)

func TestSegmentSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "The ship sailed at dawn. The crew was silent. Nobody spoke of the storm.",
			want: []string{
				"The ship sailed at dawn.",
				"The crew was silent.",
				"Nobody spoke of the storm.",
			},
		},
		{
			name: "abbreviation does not break",
			text: "Dr. Watson arrived late. He apologized.",
			want: []string{"Dr. Watson arrived late.", "He apologized."},
		},
		{
			name: "decimal number does not break",
			text: "The ratio was 3.14 exactly. Nobody checked.",
			want: []string{"The ratio was 3.14 exactly.", "Nobody checked."},
		},
		{
			name: "question and exclamation",
			text: "Who goes there? Halt! The gate is closed.",
			want: []string{"Who goes there?", "Halt!", "The gate is closed."},
		},
		{
			name: "no terminator yields one sentence",
			text: "a fragment without any terminal punctuation",
			want: []string{"a fragment without any terminal punctuation"},
		},
		{
			name: "cjk terminators always break",
			text: "吾輩は猫である。名前はまだ無い。",
			want: []string{"吾輩は猫である。", "名前はまだ無い。"},
		},
		{
			name: "empty input",
			text: "   \n\t  ",
			want: nil,
		},
		{
			name: "newline after terminator breaks",
			text: "First line ends.\nsecond line continues.",
			want: []string{"First line ends.", "second line continues."},
		},
		{
			name: "lowercase continuation does not break",
			text: "He lives on Main St. near the bridge. She knows.",
			want: []string{"He lives on Main St. near the bridge.", "She knows."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d sentences %q, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSegmentSentencesNormalizesNFC(t *testing.T) {
	// "é" as combining sequence (e + U+0301) should come back precomposed.
	decomposed := "Café closed early. Nobody minded."
	got := SegmentSentences(decomposed)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2", len(got))
	}
	if !strings.Contains(got[0], "é") {
		t.Errorf("first sentence %q not NFC-normalized", got[0])
	}
}

func TestSegmentSentencesPreservesText(t *testing.T) {
	text := "One sentence here. Another follows it. A third closes the set."
	got := SegmentSentences(text)
	joined := strings.Join(got, " ")
	if joined != text {
		t.Errorf("rejoined = %q, want original %q", joined, text)
	}
}
