package ingest

import (
	"strings"

	folio "github.com/mwehr/folio"
)

// Piece is one assembled chunk: joined sentence text plus its size in the
// assembler's unit.
type Piece struct {
	Text string
	Size int
}

// Assembler groups a section's sentences into chunks bounded by
// [minSize, maxSize]. A chunk closes at a topic boundary once minSize is
// met, or unconditionally when the next sentence would push it past
// maxSize; the hard cap takes priority over semantic coherence because
// downstream cost and latency depend on it. Boundaries reached before
// minSize are ignored so no tiny, low-context chunk is emitted. The final
// chunk of a section is flushed even when under minSize.
type Assembler struct {
	sizer   Sizer
	minSize int
	maxSize int
}

// NewAssembler validates the size bounds once, before any sentence is
// processed. A violation is a fatal configuration error for the run, not a
// per-chunk fallback.
func NewAssembler(sizer Sizer, minSize, maxSize int) (*Assembler, error) {
	if minSize <= 0 {
		return nil, &folio.ConfigError{Field: "min_chunk_size", Message: "must be positive"}
	}
	if minSize >= maxSize {
		return nil, &folio.ConfigError{Field: "min_chunk_size", Message: "must be less than max_chunk_size"}
	}
	return &Assembler{sizer: sizer, minSize: minSize, maxSize: maxSize}, nil
}

// Assemble runs a single forward pass over sentences. boundaries holds the
// positions from DetectBoundaries: a value i means a topic break between
// sentences i and i+1. The output chunks are non-overlapping and their
// concatenation reproduces the input sentence sequence exactly. Identical
// input always produces identical chunks.
func (a *Assembler) Assemble(sentences []string, boundaries []int) []Piece {
	if len(sentences) == 0 {
		return nil
	}

	breakAfter := make(map[int]bool, len(boundaries))
	for _, b := range boundaries {
		breakAfter[b] = true
	}

	var pieces []Piece
	var buf strings.Builder
	bufSize := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		pieces = append(pieces, Piece{Text: buf.String(), Size: bufSize})
		buf.Reset()
		bufSize = 0
	}

	for i, s := range sentences {
		size := a.sizer.Count(s)

		// Hard cap first: close the open chunk rather than let this
		// sentence push it past maxSize.
		if buf.Len() > 0 && bufSize+size > a.maxSize {
			flush()
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
		bufSize += size

		// Semantic close: only once the coherence minimum is met. An early
		// boundary is skipped and accumulation continues past it.
		if breakAfter[i] && bufSize >= a.minSize {
			flush()
		}
	}

	flush()
	return pieces
}
