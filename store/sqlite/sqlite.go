// Package sqlite implements folio.ChunkStore using pure-Go SQLite with
// in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	folio "github.com/mwehr/folio"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation including timing and row counts.
// If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements folio.ChunkStore backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search runs in-process
// using brute-force cosine similarity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ folio.ChunkStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath. It opens a
// single shared connection pool with SetMaxOpenConns(1) so all goroutines
// serialize through one connection, eliminating SQLITE_BUSY errors from
// concurrent writers.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS parents (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			section_index INTEGER NOT NULL,
			section_title TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			full_text TEXT NOT NULL,
			size INTEGER NOT NULL,
			child_count INTEGER NOT NULL,
			similarity_threshold REAL NOT NULL,
			min_chunk_size INTEGER NOT NULL,
			max_chunk_size INTEGER NOT NULL,
			embedding_model TEXT NOT NULL,
			embedding TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			parent_id TEXT,
			section_index INTEGER NOT NULL,
			sequence_index INTEGER NOT NULL,
			sibling_count INTEGER NOT NULL,
			text TEXT NOT NULL,
			size INTEGER NOT NULL,
			similarity_threshold REAL NOT NULL,
			min_chunk_size INTEGER NOT NULL,
			max_chunk_size INTEGER NOT NULL,
			embedding_model TEXT NOT NULL,
			embedding TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parents_book ON parents(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_children_book ON children(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_children_parent_seq ON children(parent_id, sequence_index)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	s.logger.Debug("sqlite: init ok")
	return nil
}

// ReplaceBook removes any existing chunk set for book.ID and writes the new
// one in a single transaction, so the old set stays intact if anything fails.
func (s *Store) ReplaceBook(ctx context.Context, book folio.Book, parents []folio.ParentChunk, children []folio.ChildChunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: replace book", "id", book.ID, "title", book.Title,
		"parents", len(parents), "children", len(children))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, del := range []string{
		`DELETE FROM parents WHERE book_id = ?`,
		`DELETE FROM children WHERE book_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, del, book.ID); err != nil {
			return fmt.Errorf("delete previous chunk set: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO books (id, title, author, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Author, book.Source, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	for _, p := range parents {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO parents (id, book_id, section_index, section_title, text, full_text,
				size, child_count, similarity_threshold, min_chunk_size, max_chunk_size,
				embedding_model, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.BookID, p.SectionIndex, p.SectionTitle, p.Text, p.FullText,
			p.Size, p.ChildCount, p.SimilarityThreshold, p.MinChunkSize, p.MaxChunkSize,
			p.EmbeddingModel, nullableEmbedding(p.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert parent %s: %w", p.ID, err)
		}
	}

	for _, c := range children {
		var parentID *string
		if c.ParentID != "" {
			parentID = &c.ParentID
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO children (id, book_id, parent_id, section_index, sequence_index,
				sibling_count, text, size, similarity_threshold, min_chunk_size,
				max_chunk_size, embedding_model, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.BookID, parentID, c.SectionIndex, c.SequenceIndex,
			c.SiblingCount, c.Text, c.Size, c.SimilarityThreshold, c.MinChunkSize,
			c.MaxChunkSize, c.EmbeddingModel, nullableEmbedding(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert child %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: replace book ok", "id", book.ID, "duration", time.Since(start))
	return nil
}

// DeleteBook removes a book and its entire chunk set.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, del := range []string{
		`DELETE FROM parents WHERE book_id = ?`,
		`DELETE FROM children WHERE book_id = ?`,
		`DELETE FROM books WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, del, bookID); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
	}
	return tx.Commit()
}

// GetBook returns one book by id.
func (s *Store) GetBook(ctx context.Context, bookID string) (folio.Book, error) {
	var b folio.Book
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, source, created_at FROM books WHERE id = ?`, bookID,
	).Scan(&b.ID, &b.Title, &b.Author, &b.Source, &b.CreatedAt)
	if err != nil {
		return folio.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListBooks returns up to limit books, newest first.
func (s *Store) ListBooks(ctx context.Context, limit int) ([]folio.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, source, created_at FROM books
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []folio.Book
	for rows.Next() {
		var b folio.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Source, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
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
	query := `SELECT id, book_id, section_index, section_title, text, full_text, size,
		child_count, similarity_threshold, min_chunk_size, max_chunk_size,
		embedding_model, embedding
		FROM parents WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get parents: %w", err)
	}
	defer rows.Close()

	var parents []folio.ParentChunk
	for rows.Next() {
		p, err := scanParent(rows)
		if err != nil {
			return nil, err
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
	query := childSelect + ` WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get children: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// GetSiblings returns parentID's children with sequence index in [lo, hi],
// ordered by sequence index ascending.
func (s *Store) GetSiblings(ctx context.Context, parentID string, lo, hi int) ([]folio.ChildChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		childSelect+` WHERE parent_id = ? AND sequence_index BETWEEN ? AND ?
		 ORDER BY sequence_index ASC`,
		parentID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("get siblings: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// SearchChildren performs brute-force cosine similarity search over all
// child chunks that have embeddings.
func (s *Store) SearchChildren(ctx context.Context, embedding []float32, topK int) ([]folio.ScoredChild, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, childSelect+` WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("search children: %w", err)
	}
	defer rows.Close()

	var results []folio.ScoredChild
	scanned := 0
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		scanned++
		if len(c.Embedding) == 0 {
			continue
		}
		results = append(results, folio.ScoredChild{
			ChildChunk: c,
			// Anti-correlated vectors give negative cosine; clamp so the
			// reported score stays in [0, 1].
			Score: max(cosineSimilarity(embedding, c.Embedding), 0),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search children ok",
		"scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// DB exposes the underlying handle for schema inspection in tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// --- helpers ---

const childSelect = `SELECT id, book_id, parent_id, section_index, sequence_index,
	sibling_count, text, size, similarity_threshold, min_chunk_size, max_chunk_size,
	embedding_model, embedding FROM children`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParent(row rowScanner) (folio.ParentChunk, error) {
	var p folio.ParentChunk
	var embJSON sql.NullString
	err := row.Scan(&p.ID, &p.BookID, &p.SectionIndex, &p.SectionTitle, &p.Text,
		&p.FullText, &p.Size, &p.ChildCount, &p.SimilarityThreshold,
		&p.MinChunkSize, &p.MaxChunkSize, &p.EmbeddingModel, &embJSON)
	if err != nil {
		return folio.ParentChunk{}, fmt.Errorf("scan parent: %w", err)
	}
	p.Level = folio.LevelParent
	if embJSON.Valid {
		p.Embedding, _ = deserializeEmbedding(embJSON.String)
	}
	return p, nil
}

func scanChild(row rowScanner) (folio.ChildChunk, error) {
	var c folio.ChildChunk
	var parentID, embJSON sql.NullString
	err := row.Scan(&c.ID, &c.BookID, &parentID, &c.SectionIndex, &c.SequenceIndex,
		&c.SiblingCount, &c.Text, &c.Size, &c.SimilarityThreshold,
		&c.MinChunkSize, &c.MaxChunkSize, &c.EmbeddingModel, &embJSON)
	if err != nil {
		return folio.ChildChunk{}, fmt.Errorf("scan child: %w", err)
	}
	c.Level = folio.LevelChild
	if parentID.Valid {
		c.ParentID = parentID.String
	}
	if embJSON.Valid {
		c.Embedding, _ = deserializeEmbedding(embJSON.String)
	}
	return c, nil
}

func scanChildren(rows *sql.Rows) ([]folio.ChildChunk, error) {
	var children []folio.ChildChunk
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func nullableEmbedding(embedding []float32) *string {
	if len(embedding) == 0 {
		return nil
	}
	data, _ := json.Marshal(embedding)
	v := string(data)
	return &v
}

func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
