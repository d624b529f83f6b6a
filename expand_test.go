package folio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// hierStore is an in-memory ChunkStore serving a fixed two-section book.
type hierStore struct {
	mu           sync.Mutex
	parents      map[string]ParentChunk
	children     map[string]ChildChunk
	siblingCalls [][3]any // parentID, lo, hi

	parentErr  error
	siblingErr error
	childErr   error
	delay      time.Duration
}

func newHierStore() *hierStore {
	s := &hierStore{
		parents:  make(map[string]ParentChunk),
		children: make(map[string]ChildChunk),
	}
	// Section 1 parent p1 with 5 children, section 0 parent p0 with 2.
	s.parents["p0"] = ParentChunk{
		ChunkBase: ChunkBase{ID: "p0", Level: LevelParent}, SectionIndex: 0, ChildCount: 2,
	}
	s.parents["p1"] = ParentChunk{
		ChunkBase: ChunkBase{ID: "p1", Level: LevelParent}, SectionIndex: 1, ChildCount: 5,
	}
	for i := 0; i < 2; i++ {
		id := string(rune('a' + i))
		s.children[id] = ChildChunk{
			ChunkBase: ChunkBase{ID: id, Level: LevelChild},
			ParentID:  "p0", SectionIndex: 0, SequenceIndex: i, SiblingCount: 2,
		}
	}
	for i := 0; i < 5; i++ {
		id := string(rune('v' + i))
		s.children[id] = ChildChunk{
			ChunkBase: ChunkBase{ID: id, Level: LevelChild},
			ParentID:  "p1", SectionIndex: 1, SequenceIndex: i, SiblingCount: 5,
		}
	}
	return s
}

func (s *hierStore) child(id string) ChildChunk { return s.children[id] }

func (s *hierStore) wait(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *hierStore) Init(context.Context) error { return nil }
func (s *hierStore) ReplaceBook(context.Context, Book, []ParentChunk, []ChildChunk) error {
	return nil
}
func (s *hierStore) DeleteBook(context.Context, string) error    { return nil }
func (s *hierStore) GetBook(context.Context, string) (Book, error) { return Book{}, nil }
func (s *hierStore) ListBooks(context.Context, int) ([]Book, error) { return nil, nil }

func (s *hierStore) GetParents(ctx context.Context, ids []string) ([]ParentChunk, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.parentErr != nil {
		return nil, s.parentErr
	}
	var out []ParentChunk
	for _, id := range ids {
		if p, ok := s.parents[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *hierStore) GetChildren(ctx context.Context, ids []string) ([]ChildChunk, error) {
	if s.childErr != nil {
		return nil, s.childErr
	}
	var out []ChildChunk
	for _, id := range ids {
		if c, ok := s.children[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *hierStore) GetSiblings(ctx context.Context, parentID string, lo, hi int) ([]ChildChunk, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.siblingErr != nil {
		return nil, s.siblingErr
	}
	s.mu.Lock()
	s.siblingCalls = append(s.siblingCalls, [3]any{parentID, lo, hi})
	s.mu.Unlock()

	var out []ChildChunk
	for _, c := range s.children {
		if c.ParentID == parentID && c.SequenceIndex >= lo && c.SequenceIndex <= hi {
			out = append(out, c)
		}
	}
	// Map iteration is unordered; tests only assert membership and bounds.
	return out, nil
}

func (s *hierStore) SearchChildren(context.Context, []float32, int) ([]ScoredChild, error) {
	return nil, nil
}
func (s *hierStore) Close() error { return nil }

func matchesOf(s *hierStore, ids ...string) []ScoredChild {
	out := make([]ScoredChild, len(ids))
	for i, id := range ids {
		out[i] = ScoredChild{ChildChunk: s.child(id), Score: 0.9}
	}
	return out
}

// ---------------------------------------------------------------------------

func TestExpandUnknownMode(t *testing.T) {
	e := NewExpander(newHierStore())
	_, err := e.Expand(context.Background(), nil, "fuzzy")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestExpandPrecise(t *testing.T) {
	store := newHierStore()
	store.parentErr = errors.New("must not be called")
	e := NewExpander(store)

	got, err := e.Expand(context.Background(), matchesOf(store, "w", "a"), ModePrecise)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got.Mode != ModePrecise {
		t.Errorf("Mode = %q", got.Mode)
	}
	if len(got.Matches) != 2 {
		t.Fatalf("Matches = %d, want 2", len(got.Matches))
	}
	if got.Matches[0].Child.ID != "w" || got.Matches[1].Child.ID != "a" {
		t.Errorf("match order changed: %q, %q", got.Matches[0].Child.ID, got.Matches[1].Child.ID)
	}
	if got.Parents != nil || got.Matches[0].Siblings != nil {
		t.Error("precise mode must not fetch parents or siblings")
	}
	if got.Degraded {
		t.Error("Degraded = true, want false")
	}
}

func TestExpandContextualDedupsParents(t *testing.T) {
	store := newHierStore()
	e := NewExpander(store)

	// Two matches under p1, one under p0: expect two distinct parents.
	got, err := e.Expand(context.Background(), matchesOf(store, "w", "x", "a"), ModeContextual)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got.Parents) != 2 {
		t.Fatalf("Parents = %d, want 2 distinct", len(got.Parents))
	}
	// Document order, not match order.
	if got.Parents[0].ID != "p0" || got.Parents[1].ID != "p1" {
		t.Errorf("parent order = %q, %q, want p0, p1", got.Parents[0].ID, got.Parents[1].ID)
	}
	for i, m := range got.Matches {
		if m.Siblings != nil {
			t.Errorf("Matches[%d].Siblings populated in contextual mode", i)
		}
	}
}

func TestExpandComprehensiveWindow(t *testing.T) {
	store := newHierStore()
	e := NewExpander(store, WithSiblingWindow(1))

	// "x" is p1 seq 2 of 5: window [1, 3]. "a" is p0 seq 0 of 2: clipped to [0, 1].
	got, err := e.Expand(context.Background(), matchesOf(store, "x", "a"), ModeComprehensive)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	if len(got.Matches[0].Siblings) != 3 {
		t.Errorf("x siblings = %d, want 3", len(got.Matches[0].Siblings))
	}
	if len(got.Matches[1].Siblings) != 2 {
		t.Errorf("a siblings = %d, want 2", len(got.Matches[1].Siblings))
	}

	wantCalls := map[string][2]int{"p1": {1, 3}, "p0": {0, 1}}
	for _, call := range store.siblingCalls {
		parentID := call[0].(string)
		want, ok := wantCalls[parentID]
		if !ok {
			t.Errorf("unexpected sibling fetch for %q", parentID)
			continue
		}
		if call[1] != want[0] || call[2] != want[1] {
			t.Errorf("sibling window for %s = [%v, %v], want %v", parentID, call[1], call[2], want)
		}
	}
}

func TestExpandWindowClipsUpperEdge(t *testing.T) {
	store := newHierStore()
	e := NewExpander(store, WithSiblingWindow(3))

	// "z" is p1 seq 4 of 5: window [1, 4], never past sibling_count-1.
	_, err := e.Expand(context.Background(), matchesOf(store, "z"), ModeComprehensive)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(store.siblingCalls) != 1 {
		t.Fatalf("sibling calls = %d, want 1", len(store.siblingCalls))
	}
	call := store.siblingCalls[0]
	if call[1] != 1 || call[2] != 4 {
		t.Errorf("window = [%v, %v], want [1, 4]", call[1], call[2])
	}
}

func TestExpandDegradedFlatChild(t *testing.T) {
	store := newHierStore()
	flat := ChildChunk{ChunkBase: ChunkBase{ID: "flat", Level: LevelChild}, SequenceIndex: 0}
	matches := []ScoredChild{
		{ChildChunk: flat, Score: 0.8},
		{ChildChunk: store.child("w"), Score: 0.7},
	}

	e := NewExpander(store)
	got, err := e.Expand(context.Background(), matches, ModeContextual)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !got.Degraded {
		t.Error("Expansion.Degraded = false, want true")
	}
	if !got.Matches[0].Degraded {
		t.Error("flat match not marked degraded")
	}
	if got.Matches[1].Degraded {
		t.Error("complete match wrongly marked degraded")
	}
	// The complete match's parent still comes back.
	if len(got.Parents) != 1 || got.Parents[0].ID != "p1" {
		t.Errorf("Parents = %+v, want just p1", got.Parents)
	}
}

func TestExpandPreciseNeverDegraded(t *testing.T) {
	flat := ChildChunk{ChunkBase: ChunkBase{ID: "flat", Level: LevelChild}}
	e := NewExpander(newHierStore())

	got, err := e.Expand(context.Background(), []ScoredChild{{ChildChunk: flat}}, ModePrecise)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got.Degraded || got.Matches[0].Degraded {
		t.Error("precise mode must not degrade flat children")
	}
}

func TestExpandStoreErrorFailsWhole(t *testing.T) {
	store := newHierStore()
	store.siblingErr = errors.New("connection reset")
	e := NewExpander(store)

	_, err := e.Expand(context.Background(), matchesOf(store, "w"), ModeComprehensive)
	if !errors.Is(err, store.siblingErr) {
		t.Fatalf("error = %v, want wrapped %v", err, store.siblingErr)
	}
}

func TestExpandTimeoutFailsWhole(t *testing.T) {
	store := newHierStore()
	store.delay = 200 * time.Millisecond
	e := NewExpander(store, WithExpandTimeout(10*time.Millisecond))

	_, err := e.Expand(context.Background(), matchesOf(store, "w"), ModeContextual)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestExpandEmptyMatches(t *testing.T) {
	e := NewExpander(newHierStore())
	got, err := e.Expand(context.Background(), nil, ModeComprehensive)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got.Matches) != 0 || got.Parents != nil {
		t.Errorf("empty input produced %+v", got)
	}
}

func TestExpandIDs(t *testing.T) {
	store := newHierStore()
	e := NewExpander(store)

	// "missing" resolves to nothing and is dropped; rank order of the rest holds.
	got, err := e.ExpandIDs(context.Background(), []string{"x", "missing", "a"}, ModePrecise)
	if err != nil {
		t.Fatalf("ExpandIDs: %v", err)
	}
	if len(got.Matches) != 2 {
		t.Fatalf("Matches = %d, want 2", len(got.Matches))
	}
	if got.Matches[0].Child.ID != "x" || got.Matches[1].Child.ID != "a" {
		t.Errorf("order = %q, %q, want x, a", got.Matches[0].Child.ID, got.Matches[1].Child.ID)
	}
}
