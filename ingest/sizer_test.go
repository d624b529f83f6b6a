package ingest

import "testing"

func TestWordSizerCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "simple", text: "one two three", want: 3},
		{name: "extra whitespace", text: "  one \t two\nthree  ", want: 3},
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "   ", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (WordSizer{}).Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordSizerTruncate(t *testing.T) {
	s := WordSizer{}
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "under limit unchanged", text: "one two three", n: 5, want: "one two three"},
		{name: "exact limit unchanged", text: "one two three", n: 3, want: "one two three"},
		{name: "over limit cut", text: "one two three four", n: 2, want: "one two"},
		{name: "zero", text: "one two", n: 0, want: ""},
		{name: "negative", text: "one two", n: -1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Truncate(tt.text, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}

func TestWordSizerUnit(t *testing.T) {
	if got := (WordSizer{}).Unit(); got != "words" {
		t.Errorf("Unit() = %q, want %q", got, "words")
	}
}
