package ingest

import (
	"errors"
	"strings"
	"testing"

	folio "github.com/mwehr/folio"
)

// words builds a sentence of exactly n words.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func newTestAssembler(t *testing.T, minSize, maxSize int) *Assembler {
	t.Helper()
	a, err := NewAssembler(WordSizer{}, minSize, maxSize)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	return a
}

func TestNewAssemblerValidation(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		wantErr  bool
	}{
		{name: "valid", min: 10, max: 100},
		{name: "min zero", min: 0, max: 100, wantErr: true},
		{name: "min negative", min: -5, max: 100, wantErr: true},
		{name: "min equals max", min: 50, max: 50, wantErr: true},
		{name: "min above max", min: 60, max: 50, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler(WordSizer{}, tt.min, tt.max)
			if tt.wantErr {
				var cfgErr *folio.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error = %v, want *folio.ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssembleBoundaryRespected(t *testing.T) {
	a := newTestAssembler(t, 5, 100)
	sentences := []string{words(6), words(6), words(6)}

	// Boundary after sentence 0; buffer holds 6 words >= min 5, so it closes.
	pieces := a.Assemble(sentences, []int{0})
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	if pieces[0].Size != 6 {
		t.Errorf("pieces[0].Size = %d, want 6", pieces[0].Size)
	}
	if pieces[1].Size != 12 {
		t.Errorf("pieces[1].Size = %d, want 12", pieces[1].Size)
	}
}

func TestAssembleEarlyBoundaryIgnored(t *testing.T) {
	a := newTestAssembler(t, 10, 100)
	sentences := []string{words(4), words(4), words(4)}

	// Boundary after sentence 0, but 4 words < min 10: keep accumulating.
	pieces := a.Assemble(sentences, []int{0})
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	if pieces[0].Size != 12 {
		t.Errorf("Size = %d, want 12", pieces[0].Size)
	}
}

func TestAssembleHardCap(t *testing.T) {
	a := newTestAssembler(t, 5, 10)
	sentences := []string{words(6), words(6), words(6)}

	// No semantic boundaries at all; the cap alone forces closes.
	pieces := a.Assemble(sentences, nil)
	if len(pieces) != 3 {
		t.Fatalf("got %d pieces, want 3", len(pieces))
	}
	for i, p := range pieces {
		if p.Size > 10 {
			t.Errorf("pieces[%d].Size = %d, exceeds max 10", i, p.Size)
		}
	}
}

func TestAssembleFinalChunkUnderMin(t *testing.T) {
	a := newTestAssembler(t, 10, 20)
	// 15+8 would exceed max 20, so the first sentence closes alone and the
	// second becomes the trailing remainder.
	sentences := []string{words(15), words(8)}

	pieces := a.Assemble(sentences, nil)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	// Trailing remainder is flushed even though 8 < min 10.
	if pieces[1].Size != 8 {
		t.Errorf("final Size = %d, want 8", pieces[1].Size)
	}
}

func TestAssembleSingleSentence(t *testing.T) {
	a := newTestAssembler(t, 10, 20)
	pieces := a.Assemble([]string{"short one."}, nil)
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	if pieces[0].Text != "short one." {
		t.Errorf("Text = %q, want %q", pieces[0].Text, "short one.")
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := newTestAssembler(t, 10, 20)
	if pieces := a.Assemble(nil, nil); pieces != nil {
		t.Errorf("Assemble(nil) = %v, want nil", pieces)
	}
}

// Concatenating the chunk texts must reproduce the sentence sequence with
// nothing lost or duplicated, regardless of where boundaries fall.
func TestAssembleReconstruction(t *testing.T) {
	a := newTestAssembler(t, 5, 12)
	sentences := []string{
		"The first sentence opens the section carefully.",
		"A second one follows.",
		"Then a third with rather more words than the others put together.",
		"Short tail.",
	}

	for _, boundaries := range [][]int{nil, {0}, {1}, {0, 2}, {0, 1, 2}} {
		pieces := a.Assemble(sentences, boundaries)
		var texts []string
		for _, p := range pieces {
			texts = append(texts, p.Text)
		}
		joined := strings.Join(texts, " ")
		want := strings.Join(sentences, " ")
		if joined != want {
			t.Errorf("boundaries %v: rejoined = %q, want %q", boundaries, joined, want)
		}
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a := newTestAssembler(t, 5, 15)
	sentences := []string{words(4), words(7), words(3), words(9), words(2)}
	boundaries := []int{1, 3}

	first := a.Assemble(sentences, boundaries)
	second := a.Assemble(sentences, boundaries)
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("pieces[%d] differ: %+v vs %+v", i, first[i], second[i])
		}
	}
}
