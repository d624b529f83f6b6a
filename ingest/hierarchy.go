package ingest

import (
	folio "github.com/mwehr/folio"
)

// HierarchyBuilder wraps assembled chunk pieces into parent/child records
// with bidirectional linkage. One builder serves one ingestion run: the
// threshold, size bounds, and model identifier it stamps onto every chunk
// are fixed for the run, for reproducibility.
type HierarchyBuilder struct {
	bookID string
	cfg    folio.ChunkingConfig
	sizer  Sizer
	model  string
}

// NewHierarchyBuilder creates a builder for one book's run.
func NewHierarchyBuilder(bookID string, cfg folio.ChunkingConfig, sizer Sizer, model string) *HierarchyBuilder {
	return &HierarchyBuilder{bookID: bookID, cfg: cfg, sizer: sizer, model: model}
}

func (b *HierarchyBuilder) base(level folio.ChunkLevel, text string, size int) folio.ChunkBase {
	return folio.ChunkBase{
		ID:                  folio.NewID(),
		BookID:              b.bookID,
		Level:               level,
		Text:                text,
		Size:                size,
		SimilarityThreshold: b.cfg.SimilarityThreshold,
		MinChunkSize:        b.cfg.MinChunkSize,
		MaxChunkSize:        b.cfg.MaxChunkSize,
		EmbeddingModel:      b.model,
	}
}

// Build creates exactly one parent for the section plus its ordered
// children in a single forward pass. The parent keeps the section's full,
// untruncated text; its Text field holds the length-capped prefix used
// solely for the parent's own embedding. Children get gapless sequence
// indexes from 0 and each carries the total sibling count.
func (b *HierarchyBuilder) Build(sec Section, pieces []Piece) (folio.ParentChunk, []folio.ChildChunk) {
	embedText := b.sizer.Truncate(sec.Text, b.cfg.ParentEmbedCap)
	parent := folio.ParentChunk{
		ChunkBase:    b.base(folio.LevelParent, embedText, b.sizer.Count(sec.Text)),
		FullText:     sec.Text,
		SectionIndex: sec.Index,
		SectionTitle: sec.Title,
		ChildCount:   len(pieces),
	}

	children := make([]folio.ChildChunk, len(pieces))
	for i, p := range pieces {
		children[i] = folio.ChildChunk{
			ChunkBase:     b.base(folio.LevelChild, p.Text, p.Size),
			ParentID:      parent.ID,
			SectionIndex:  sec.Index,
			SequenceIndex: i,
			SiblingCount:  len(pieces),
		}
	}
	return parent, children
}

// BuildFlat creates child records with no parent linkage, for flat
// (non-hierarchical) runs. Query-time expansion recognizes these records
// and serves them without context rather than failing.
func (b *HierarchyBuilder) BuildFlat(sec Section, pieces []Piece) []folio.ChildChunk {
	children := make([]folio.ChildChunk, len(pieces))
	for i, p := range pieces {
		children[i] = folio.ChildChunk{
			ChunkBase:     b.base(folio.LevelChild, p.Text, p.Size),
			SectionIndex:  sec.Index,
			SequenceIndex: i,
		}
	}
	return children
}
