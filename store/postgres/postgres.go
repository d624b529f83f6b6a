// Package postgres implements folio.ChunkStore using PostgreSQL with
// pgvector for native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	folio "github.com/mwehr/folio"
)

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
}

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, catching
// dimension mismatches at insert time. Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node). Higher
// values improve recall at the cost of memory. Only affects index creation.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Only affects index creation.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// Store implements folio.ChunkStore backed by PostgreSQL with pgvector.
// Child vector search uses an HNSW index with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

var _ folio.ChunkStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWith returns the WITH clause for HNSW index creation, or "".
func (s *Store) hnswWith() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, tables, and indexes.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS parents (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			section_index INT NOT NULL,
			section_title TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			full_text TEXT NOT NULL,
			size INT NOT NULL,
			child_count INT NOT NULL,
			similarity_threshold DOUBLE PRECISION NOT NULL,
			min_chunk_size INT NOT NULL,
			max_chunk_size INT NOT NULL,
			embedding_model TEXT NOT NULL,
			embedding %s
		)`, s.vectorType()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			parent_id TEXT,
			section_index INT NOT NULL,
			sequence_index INT NOT NULL,
			sibling_count INT NOT NULL,
			text TEXT NOT NULL,
			size INT NOT NULL,
			similarity_threshold DOUBLE PRECISION NOT NULL,
			min_chunk_size INT NOT NULL,
			max_chunk_size INT NOT NULL,
			embedding_model TEXT NOT NULL,
			embedding %s
		)`, s.vectorType()),
		`CREATE INDEX IF NOT EXISTS idx_parents_book ON parents(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_children_book ON children(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_children_parent_seq ON children(parent_id, sequence_index)`,
		`CREATE INDEX IF NOT EXISTS idx_children_embedding ON children
		 USING hnsw (embedding vector_cosine_ops)` + s.hnswWith(),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// ReplaceBook removes any existing chunk set for book.ID and writes the new
// one in a single transaction.
func (s *Store) ReplaceBook(ctx context.Context, book folio.Book, parents []folio.ParentChunk, children []folio.ChildChunk) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, del := range []string{
		`DELETE FROM parents WHERE book_id = $1`,
		`DELETE FROM children WHERE book_id = $1`,
	} {
		if _, err := tx.Exec(ctx, del, book.ID); err != nil {
			return fmt.Errorf("postgres: delete previous chunk set: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO books (id, title, author, source, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, author = EXCLUDED.author,
			source = EXCLUDED.source, created_at = EXCLUDED.created_at`,
		book.ID, book.Title, book.Author, book.Source, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert book: %w", err)
	}

	for _, p := range parents {
		_, err = tx.Exec(ctx,
			`INSERT INTO parents (id, book_id, section_index, section_title, text, full_text,
				size, child_count, similarity_threshold, min_chunk_size, max_chunk_size,
				embedding_model, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.ID, p.BookID, p.SectionIndex, p.SectionTitle, p.Text, p.FullText,
			p.Size, p.ChildCount, p.SimilarityThreshold, p.MinChunkSize, p.MaxChunkSize,
			p.EmbeddingModel, vectorParam(p.Embedding),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert parent %s: %w", p.ID, err)
		}
	}

	for _, c := range children {
		var parentID *string
		if c.ParentID != "" {
			parentID = &c.ParentID
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO children (id, book_id, parent_id, section_index, sequence_index,
				sibling_count, text, size, similarity_threshold, min_chunk_size,
				max_chunk_size, embedding_model, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			c.ID, c.BookID, parentID, c.SectionIndex, c.SequenceIndex,
			c.SiblingCount, c.Text, c.Size, c.SimilarityThreshold, c.MinChunkSize,
			c.MaxChunkSize, c.EmbeddingModel, vectorParam(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert child %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// DeleteBook removes a book and its entire chunk set.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, del := range []string{
		`DELETE FROM parents WHERE book_id = $1`,
		`DELETE FROM children WHERE book_id = $1`,
		`DELETE FROM books WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, del, bookID); err != nil {
			return fmt.Errorf("postgres: delete book: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetBook returns one book by id.
func (s *Store) GetBook(ctx context.Context, bookID string) (folio.Book, error) {
	var b folio.Book
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, author, source, created_at FROM books WHERE id = $1`, bookID,
	).Scan(&b.ID, &b.Title, &b.Author, &b.Source, &b.CreatedAt)
	if err != nil {
		return folio.Book{}, fmt.Errorf("postgres: get book: %w", err)
	}
	return b, nil
}

// ListBooks returns up to limit books, newest first.
func (s *Store) ListBooks(ctx context.Context, limit int) ([]folio.Book, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, author, source, created_at FROM books
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list books: %w", err)
	}
	defer rows.Close()

	var books []folio.Book
	for rows.Next() {
		var b folio.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Source, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetParents returns the parent chunks matching ids.
func (s *Store) GetParents(ctx context.Context, ids []string) ([]folio.ParentChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, book_id, section_index, section_title, text, full_text, size,
			child_count, similarity_threshold, min_chunk_size, max_chunk_size,
			embedding_model, embedding
		 FROM parents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get parents: %w", err)
	}
	defer rows.Close()

	var parents []folio.ParentChunk
	for rows.Next() {
		var p folio.ParentChunk
		var emb *pgvector.Vector
		err := rows.Scan(&p.ID, &p.BookID, &p.SectionIndex, &p.SectionTitle, &p.Text,
			&p.FullText, &p.Size, &p.ChildCount, &p.SimilarityThreshold,
			&p.MinChunkSize, &p.MaxChunkSize, &p.EmbeddingModel, &emb)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan parent: %w", err)
		}
		p.Level = folio.LevelParent
		if emb != nil {
			p.Embedding = emb.Slice()
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// GetChildren returns the child chunks matching ids.
func (s *Store) GetChildren(ctx context.Context, ids []string) ([]folio.ChildChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, childSelect+` FROM children WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get children: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// GetSiblings returns parentID's children with sequence index in [lo, hi],
// ordered by sequence index ascending.
func (s *Store) GetSiblings(ctx context.Context, parentID string, lo, hi int) ([]folio.ChildChunk, error) {
	rows, err := s.pool.Query(ctx,
		childSelect+` FROM children WHERE parent_id = $1 AND sequence_index BETWEEN $2 AND $3
		 ORDER BY sequence_index ASC`,
		parentID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("postgres: get siblings: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// SearchChildren returns the topK children nearest to embedding by cosine
// distance, using the HNSW index.
func (s *Store) SearchChildren(ctx context.Context, embedding []float32, topK int) ([]folio.ScoredChild, error) {
	rows, err := s.pool.Query(ctx,
		childSelect+`, 1 - (embedding <=> $1::vector) AS score
		 FROM children WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search children: %w", err)
	}
	defer rows.Close()

	var results []folio.ScoredChild
	for rows.Next() {
		var c folio.ChildChunk
		var parentID *string
		var emb *pgvector.Vector
		var score float32
		err := rows.Scan(&c.ID, &c.BookID, &parentID, &c.SectionIndex, &c.SequenceIndex,
			&c.SiblingCount, &c.Text, &c.Size, &c.SimilarityThreshold,
			&c.MinChunkSize, &c.MaxChunkSize, &c.EmbeddingModel, &emb, &score)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan child: %w", err)
		}
		c.Level = folio.LevelChild
		if parentID != nil {
			c.ParentID = *parentID
		}
		if emb != nil {
			c.Embedding = emb.Slice()
		}
		// Cosine distance spans [0, 2], so 1-distance can go negative for
		// anti-correlated vectors; clamp to honor the [0, 1] score contract.
		results = append(results, folio.ScoredChild{ChildChunk: c, Score: max(score, 0)})
	}
	return results, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// --- helpers ---

const childSelect = `SELECT id, book_id, parent_id, section_index, sequence_index,
	sibling_count, text, size, similarity_threshold, min_chunk_size, max_chunk_size,
	embedding_model, embedding`

func scanChildren(rows pgx.Rows) ([]folio.ChildChunk, error) {
	var children []folio.ChildChunk
	for rows.Next() {
		var c folio.ChildChunk
		var parentID *string
		var emb *pgvector.Vector
		err := rows.Scan(&c.ID, &c.BookID, &parentID, &c.SectionIndex, &c.SequenceIndex,
			&c.SiblingCount, &c.Text, &c.Size, &c.SimilarityThreshold,
			&c.MinChunkSize, &c.MaxChunkSize, &c.EmbeddingModel, &emb)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan child: %w", err)
		}
		c.Level = folio.LevelChild
		if parentID != nil {
			c.ParentID = *parentID
		}
		if emb != nil {
			c.Embedding = emb.Slice()
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// vectorParam returns a pgvector parameter, or nil for an absent embedding.
func vectorParam(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
