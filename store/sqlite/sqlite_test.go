package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	folio "github.com/mwehr/folio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "folio_test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBook(id string) folio.Book {
	return folio.Book{ID: id, Title: "Test Book", Source: "test://" + id, CreatedAt: folio.NowUnix()}
}

// buildHierarchy creates one parent with n children for a book.
func buildHierarchy(bookID, parentID string, n int) (folio.ParentChunk, []folio.ChildChunk) {
	parent := folio.ParentChunk{
		ChunkBase: folio.ChunkBase{
			ID: parentID, BookID: bookID, Level: folio.LevelParent,
			Text: "parent text", Size: 2, EmbeddingModel: "m",
		},
		FullText:     "parent full text",
		SectionIndex: 0,
		SectionTitle: "Chapter One",
		ChildCount:   n,
		Embedding:    []float32{0.5, 0.5, 0},
	}
	children := make([]folio.ChildChunk, n)
	for i := range children {
		children[i] = folio.ChildChunk{
			ChunkBase: folio.ChunkBase{
				ID: parentID + "-c" + string(rune('0'+i)), BookID: bookID,
				Level: folio.LevelChild, Text: "child", Size: 1, EmbeddingModel: "m",
			},
			ParentID:      parentID,
			SequenceIndex: i,
			SiblingCount:  n,
			Embedding:     []float32{float32(i), 1, 0},
		}
	}
	return parent, children
}

func TestReplaceBookRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := testBook("b1")
	parent, children := buildHierarchy("b1", "p1", 3)
	if err := s.ReplaceBook(ctx, book, []folio.ParentChunk{parent}, children); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}

	gotBook, err := s.GetBook(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if gotBook.Title != book.Title || gotBook.Source != book.Source {
		t.Errorf("GetBook = %+v, want %+v", gotBook, book)
	}

	parents, err := s.GetParents(ctx, []string{"p1"})
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(parents) != 1 {
		t.Fatalf("got %d parents, want 1", len(parents))
	}
	p := parents[0]
	if p.FullText != parent.FullText || p.SectionTitle != parent.SectionTitle || p.ChildCount != 3 {
		t.Errorf("parent = %+v", p)
	}
	if p.Level != folio.LevelParent {
		t.Errorf("parent.Level = %q", p.Level)
	}
	if len(p.Embedding) != 3 {
		t.Errorf("parent embedding = %v", p.Embedding)
	}

	got, err := s.GetChildren(ctx, []string{children[1].ID})
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d children, want 1", len(got))
	}
	c := got[0]
	if c.ParentID != "p1" || c.SequenceIndex != 1 || c.SiblingCount != 3 {
		t.Errorf("child = %+v", c)
	}
	if c.Level != folio.LevelChild {
		t.Errorf("child.Level = %q", c.Level)
	}
}

func TestReplaceBookReplacesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := testBook("b1")
	p1, c1 := buildHierarchy("b1", "p1", 4)
	if err := s.ReplaceBook(ctx, book, []folio.ParentChunk{p1}, c1); err != nil {
		t.Fatalf("first ReplaceBook: %v", err)
	}

	// Re-ingest with a smaller chunk set; the old one must be gone entirely.
	p2, c2 := buildHierarchy("b1", "p2", 2)
	if err := s.ReplaceBook(ctx, book, []folio.ParentChunk{p2}, c2); err != nil {
		t.Fatalf("second ReplaceBook: %v", err)
	}

	if old, _ := s.GetParents(ctx, []string{"p1"}); len(old) != 0 {
		t.Errorf("old parent survived replacement: %+v", old)
	}
	if old, _ := s.GetChildren(ctx, []string{c1[0].ID}); len(old) != 0 {
		t.Errorf("old children survived replacement: %+v", old)
	}
	if cur, _ := s.GetSiblings(ctx, "p2", 0, 10); len(cur) != 2 {
		t.Errorf("got %d current children, want 2", len(cur))
	}
}

func TestDeleteBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, c := buildHierarchy("b1", "p1", 2)
	if err := s.ReplaceBook(ctx, testBook("b1"), []folio.ParentChunk{p}, c); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}
	if err := s.DeleteBook(ctx, "b1"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}

	if _, err := s.GetBook(ctx, "b1"); err == nil {
		t.Error("GetBook succeeded after delete")
	}
	if ps, _ := s.GetParents(ctx, []string{"p1"}); len(ps) != 0 {
		t.Errorf("parents survived delete: %+v", ps)
	}
}

func TestListBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b1", "b2", "b3"} {
		p, c := buildHierarchy(id, "p-"+id, 1)
		if err := s.ReplaceBook(ctx, testBook(id), []folio.ParentChunk{p}, c); err != nil {
			t.Fatalf("ReplaceBook %s: %v", id, err)
		}
	}

	books, err := s.ListBooks(ctx, 2)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("got %d books, want limit 2", len(books))
	}
}

func TestGetSiblingsRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, c := buildHierarchy("b1", "p1", 5)
	if err := s.ReplaceBook(ctx, testBook("b1"), []folio.ParentChunk{p}, c); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}

	got, err := s.GetSiblings(ctx, "p1", 1, 3)
	if err != nil {
		t.Fatalf("GetSiblings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d siblings, want 3", len(got))
	}
	for i, c := range got {
		if c.SequenceIndex != i+1 {
			t.Errorf("siblings[%d].SequenceIndex = %d, want %d (ascending order)", i, c.SequenceIndex, i+1)
		}
	}
}

func TestSearchChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Children on distinct axes; the query vector matches child 2's axis.
	p, c := buildHierarchy("b1", "p1", 3)
	c[0].Embedding = []float32{1, 0, 0}
	c[1].Embedding = []float32{0, 1, 0}
	c[2].Embedding = []float32{0, 0, 1}
	if err := s.ReplaceBook(ctx, testBook("b1"), []folio.ParentChunk{p}, c); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}

	got, err := s.SearchChildren(ctx, []float32{0, 0, 1}, 2)
	if err != nil {
		t.Fatalf("SearchChildren: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != c[2].ID {
		t.Errorf("top result = %q, want %q", got[0].ID, c[2].ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not sorted by score: %f < %f", got[0].Score, got[1].Score)
	}
	if got[0].Score < 0.99 {
		t.Errorf("exact-match score = %f, want ~1", got[0].Score)
	}
}

func TestSearchChildrenScoreRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// One exact match and one anti-correlated child; raw cosine for the
	// latter is -1 but the reported score must stay within [0, 1].
	p, c := buildHierarchy("b1", "p1", 2)
	c[0].Embedding = []float32{0, 0, 1}
	c[1].Embedding = []float32{0, 0, -1}
	if err := s.ReplaceBook(ctx, testBook("b1"), []folio.ParentChunk{p}, c); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}

	got, err := s.SearchChildren(ctx, []float32{0, 0, 1}, 2)
	if err != nil {
		t.Fatalf("SearchChildren: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	for _, r := range got {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %f for %q out of [0, 1]", r.Score, r.ID)
		}
	}
	if got[1].Score != 0 {
		t.Errorf("anti-correlated score = %f, want 0", got[1].Score)
	}
}

func TestFlatChildNullParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	flat := folio.ChildChunk{
		ChunkBase: folio.ChunkBase{
			ID: "c-flat", BookID: "b1", Level: folio.LevelChild,
			Text: "flat chunk", Size: 2, EmbeddingModel: "m",
		},
		Embedding: []float32{1, 0, 0},
	}
	if err := s.ReplaceBook(ctx, testBook("b1"), nil, []folio.ChildChunk{flat}); err != nil {
		t.Fatalf("ReplaceBook: %v", err)
	}

	got, err := s.GetChildren(ctx, []string{"c-flat"})
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d children, want 1", len(got))
	}
	if got[0].ParentID != "" || got[0].SiblingCount != 0 {
		t.Errorf("flat child round-trip = %+v, want empty hierarchy fields", got[0])
	}
}
