package folio

// --- Domain types (database records) ---

// Book is the top-level record a chunk set belongs to. Re-ingesting a book
// replaces its entire chunk set; partial updates are not supported.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Source    string `json:"source"`
	CreatedAt int64  `json:"created_at"`
}

// ChunkLevel tags a chunk record as parent or child.
type ChunkLevel string

const (
	LevelParent ChunkLevel = "parent"
	LevelChild  ChunkLevel = "child"
)

// ChunkBase holds the fields shared by parent and child chunks. The
// similarity threshold, size bounds, and embedding model are recorded on
// every chunk so a run is reproducible and model mismatches are detectable
// downstream.
type ChunkBase struct {
	ID     string     `json:"id"`
	BookID string     `json:"book_id"`
	Level  ChunkLevel `json:"level"`
	Text   string     `json:"text"`
	Size   int        `json:"size"`

	SimilarityThreshold float64 `json:"similarity_threshold"`
	MinChunkSize        int     `json:"min_chunk_size"`
	MaxChunkSize        int     `json:"max_chunk_size"`
	EmbeddingModel      string  `json:"embedding_model"`
}

// ParentChunk is the coarse unit: one per section. FullText is never
// truncated; Text (from ChunkBase) holds the length-capped copy that was
// embedded.
type ParentChunk struct {
	ChunkBase
	FullText     string    `json:"full_text"`
	SectionIndex int       `json:"section_index"`
	SectionTitle string    `json:"section_title,omitempty"`
	ChildCount   int       `json:"child_count"`
	Embedding    []float32 `json:"-"`
}

// ChildChunk is the fine-grained, topic-coherent unit retrieved by
// similarity search. SequenceIndex is the 0-based reading-order position
// within the parent; SiblingCount is the total number of children sharing
// ParentID.
type ChildChunk struct {
	ChunkBase
	ParentID      string    `json:"parent_id,omitempty"`
	SectionIndex  int       `json:"section_index"`
	SequenceIndex int       `json:"sequence_index"`
	SiblingCount  int       `json:"sibling_count"`
	Embedding     []float32 `json:"-"`
}

// ScoredChild is a child chunk with a search relevance score in [0, 1].
type ScoredChild struct {
	ChildChunk
	Score float32 `json:"score"`
}
