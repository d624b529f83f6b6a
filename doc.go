// Package folio turns raw book text into a two-level retrieval hierarchy
// and reassembles the right amount of context around search matches.
//
// Ingestion produces one parent chunk per structural section (a chapter,
// a page, or the whole document when no structure is detectable) and many
// topic-coherent child chunks inside it. Topic boundaries are detected from
// embedding-similarity drift between adjacent sentences; chunk sizes are
// kept between a coherence-driven minimum and a hard cost-driven maximum.
//
// # Quick Start
//
//	cfg := folio.DefaultConfig()
//	store := sqlite.New("folio.db")
//	ing, err := ingest.New(store, embedding, ingest.WithChunking(cfg.Chunking))
//
//	res, err := ing.IngestFile(ctx, data, "moby-dick.txt")
//
// At query time, wrap the same store in an Expander:
//
//	exp := folio.NewExpander(store, folio.WithSiblingWindow(2))
//	out, err := exp.Expand(ctx, matches, folio.ModeComprehensive)
//
// # Core Interfaces
//
// The root package defines the contracts the subpackages implement or consume:
//
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [ChunkStore]: vector-capable persistence for chunk records
//
// # Included Implementations
//
// Embedding: provider/openai (any OpenAI-compatible server, including
// Ollama), provider/gemini, with provider/resolve as the config-driven
// factory. Storage: store/sqlite (local, pure Go), store/postgres (pgvector).
// Ingestion: the ingest package (segmentation, boundary detection, chunk
// assembly, chapter detection, hierarchy building, extractors).
// Observability: the observer package (OTEL wrappers).
package folio
