package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	folio "github.com/mwehr/folio"
)

// IngestResult holds the outcome of ingesting one book.
type IngestResult struct {
	Book         folio.Book
	SectionCount int
	ParentCount  int
	ChildCount   int
	// Failed lists sections whose ingestion aborted. Sibling sections in the
	// same book continue; each entry carries enough detail to retry the book.
	Failed []*folio.SectionError
}

// Ingestor runs the sequential per-book pipeline: extract → detect
// sections → semantic-chunk → embed → persist. Chunk sets are written as
// one atomic replacement per book. An Ingestor is safe for concurrent use
// across books; nothing in it mutates after New.
type Ingestor struct {
	store      folio.ChunkStore
	embedding  folio.EmbeddingProvider
	cfg        folio.ChunkingConfig
	sizer      Sizer
	asm        *Assembler
	extractors map[ContentType]Extractor
	logger     *slog.Logger
}

// New creates an Ingestor. The chunking config is validated here, before
// any processing; a violation is fatal for the run.
func New(store folio.ChunkStore, emb folio.EmbeddingProvider, opts ...Option) (*Ingestor, error) {
	ing := &Ingestor{
		store:     store,
		embedding: emb,
		cfg:       folio.DefaultConfig().Chunking,
		sizer:     WordSizer{},
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      HTMLExtractor{},
			TypeMarkdown:  MarkdownExtractor{},
			TypePDF:       NewPDFExtractor(),
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(ing)
	}

	if err := ing.cfg.Validate(); err != nil {
		return nil, err
	}
	asm, err := NewAssembler(ing.sizer, ing.cfg.MinChunkSize, ing.cfg.MaxChunkSize)
	if err != nil {
		return nil, err
	}
	ing.asm = asm
	return ing, nil
}

// IngestText ingests plain text content as a new book.
func (ing *Ingestor) IngestText(ctx context.Context, text, source, title string) (IngestResult, error) {
	return ing.ReingestText(ctx, folio.NewID(), text, source, title)
}

// ReingestText re-chunks text under an existing book id. The store replaces
// the book's entire previous chunk set; nothing from the old run survives.
func (ing *Ingestor) ReingestText(ctx context.Context, bookID, text, source, title string) (IngestResult, error) {
	book := folio.Book{
		ID:        bookID,
		Title:     title,
		Source:    source,
		CreatedAt: folio.NowUnix(),
	}
	return ing.ingest(ctx, book, ExtractResult{Text: text, Title: title})
}

// IngestFile ingests file content as a new book, detecting the content type
// from the filename extension.
func (ing *Ingestor) IngestFile(ctx context.Context, content []byte, filename string) (IngestResult, error) {
	return ing.ReingestFile(ctx, folio.NewID(), content, filename)
}

// ReingestFile re-chunks file content under an existing book id, replacing
// the book's previous chunk set.
func (ing *Ingestor) ReingestFile(ctx context.Context, bookID string, content []byte, filename string) (IngestResult, error) {
	ct := ContentTypeFromExtension(strings.TrimPrefix(filepath.Ext(filename), "."))
	extractor, ok := ing.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}

	res, err := extractor.Extract(content)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
	}

	title := res.Title
	if title == "" {
		title = filepath.Base(filename)
	}
	book := folio.Book{
		ID:        bookID,
		Title:     title,
		Source:    filename,
		CreatedAt: folio.NowUnix(),
	}
	return ing.ingest(ctx, book, res)
}

// ingest runs section detection and per-section chunking, then persists the
// whole chunk set atomically. Per-section failures are isolated: one
// malformed section never aborts the book.
func (ing *Ingestor) ingest(ctx context.Context, book folio.Book, res ExtractResult) (IngestResult, error) {
	start := time.Now()
	sections := DetectSections(res)
	builder := NewHierarchyBuilder(book.ID, ing.cfg, ing.sizer, ing.embedding.Name())

	out := IngestResult{Book: book, SectionCount: len(sections)}
	var parents []folio.ParentChunk
	var children []folio.ChildChunk

	for _, sec := range sections {
		p, cs, err := ing.ingestSection(ctx, builder, sec)
		if err != nil {
			secErr := &folio.SectionError{SectionIndex: sec.Index, Err: err}
			out.Failed = append(out.Failed, secErr)
			ing.logger.Error("ingest: section failed",
				"book_id", book.ID, "section", sec.Index, "error", err)
			continue
		}
		if p != nil {
			parents = append(parents, *p)
		}
		children = append(children, cs...)
	}

	if len(parents) == 0 && len(children) == 0 {
		if len(out.Failed) > 0 {
			return out, fmt.Errorf("ingest %s: all %d sections failed, first: %w",
				book.ID, len(out.Failed), out.Failed[0])
		}
		ing.logger.Warn("ingest: no chunks produced", "book_id", book.ID, "title", book.Title)
		return out, nil
	}

	if err := ing.store.ReplaceBook(ctx, book, parents, children); err != nil {
		return out, fmt.Errorf("store: %w", err)
	}

	out.ParentCount = len(parents)
	out.ChildCount = len(children)
	ing.logger.Info("ingest: book stored",
		"book_id", book.ID, "title", book.Title,
		"sections", len(sections), "parents", len(parents), "children", len(children),
		"failed_sections", len(out.Failed), "unit", ing.sizer.Unit(),
		"duration", time.Since(start))
	return out, nil
}

// ingestSection chunk-assembles and embeds one section. A section with no
// extractable sentences yields zero chunks and a warning, not an error.
func (ing *Ingestor) ingestSection(ctx context.Context, builder *HierarchyBuilder, sec Section) (*folio.ParentChunk, []folio.ChildChunk, error) {
	sentences := SegmentSentences(sec.Text)
	if len(sentences) == 0 {
		ing.logger.Warn("ingest: empty section", "section", sec.Index, "title", sec.Title)
		return nil, nil, nil
	}

	sentEmb, err := ing.embedBatch(ctx, sentences)
	if err != nil {
		return nil, nil, fmt.Errorf("embed sentences: %w", err)
	}

	boundaries := DetectBoundaries(sentEmb, ing.cfg.SimilarityThreshold)
	pieces := ing.asm.Assemble(sentences, boundaries)

	if !ing.cfg.Hierarchical {
		children := builder.BuildFlat(sec, pieces)
		if err := ing.embedChildren(ctx, children); err != nil {
			return nil, nil, err
		}
		return nil, children, nil
	}

	parent, children := builder.Build(sec, pieces)
	if err := ing.embedChildren(ctx, children); err != nil {
		return nil, nil, err
	}

	// The parent embeds its capped copy; FullText stays untouched.
	pEmb, err := ing.embedBatch(ctx, []string{parent.Text})
	if err != nil {
		return nil, nil, fmt.Errorf("embed parent: %w", err)
	}
	parent.Embedding = pEmb[0]

	ing.logger.Debug("ingest: section chunked",
		"section", sec.Index, "sentences", len(sentences),
		"boundaries", len(boundaries), "children", len(children))
	return &parent, children, nil
}

// embedChildren embeds all child texts for one section in batches.
func (ing *Ingestor) embedChildren(ctx context.Context, children []folio.ChildChunk) error {
	if len(children) == 0 {
		return nil
	}
	texts := make([]string, len(children))
	for i, c := range children {
		texts[i] = c.Text
	}
	vecs, err := ing.embedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed children: %w", err)
	}
	for i := range children {
		children[i].Embedding = vecs[i]
	}
	return nil
}

// embedBatch embeds texts in batches of cfg.BatchSize and verifies every
// returned vector against the provider's declared dimensionality.
func (ing *Ingestor) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	want := ing.embedding.Dimensions()
	out := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += ing.cfg.BatchSize {
		end := min(i+ing.cfg.BatchSize, len(texts))
		batch := texts[i:end]

		vecs, err := ing.embedding.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", i, end, len(vecs), len(batch))
		}
		for _, v := range vecs {
			if len(v) != want {
				return nil, &folio.EmbeddingMismatchError{
					Model: ing.embedding.Name(), Want: want, Got: len(v),
				}
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}
