package folio

import "context"

// ChunkStore abstracts vector-capable persistence for chunk records.
// Implementations must make ReplaceBook atomic: the previous chunk set for
// the book is fully removed before the new set becomes visible, and a failed
// replace leaves the old set intact. All read methods are safe for
// concurrent use.
type ChunkStore interface {
	// --- Books + chunk sets ---

	// ReplaceBook atomically removes any existing chunk set for book.ID and
	// writes the new one.
	ReplaceBook(ctx context.Context, book Book, parents []ParentChunk, children []ChildChunk) error
	// DeleteBook removes a book and its entire chunk set.
	DeleteBook(ctx context.Context, bookID string) error
	GetBook(ctx context.Context, bookID string) (Book, error)
	ListBooks(ctx context.Context, limit int) ([]Book, error)

	// --- Chunk reads (query time) ---

	GetParents(ctx context.Context, ids []string) ([]ParentChunk, error)
	GetChildren(ctx context.Context, ids []string) ([]ChildChunk, error)
	// GetSiblings returns the children of parentID whose sequence index lies
	// in [lo, hi], ordered by sequence index ascending.
	GetSiblings(ctx context.Context, parentID string, lo, hi int) ([]ChildChunk, error)

	// --- Similarity search ---

	// SearchChildren returns the topK children most similar to embedding,
	// scored in [0, 1], best first.
	SearchChildren(ctx context.Context, embedding []float32, topK int) ([]ScoredChild, error)

	// --- Lifecycle ---

	Init(ctx context.Context) error
	Close() error
}
