package folio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ContextMode selects how much surrounding hierarchy Expand returns
// alongside a direct match.
type ContextMode string

const (
	// ModePrecise returns only the matched child text. The fastest path.
	ModePrecise ContextMode = "precise"
	// ModeContextual additionally returns each match's parent full text,
	// deduplicated by parent id.
	ModeContextual ContextMode = "contextual"
	// ModeComprehensive additionally returns a symmetric ±N sibling window
	// around each match, clipped to the valid sequence range.
	ModeComprehensive ContextMode = "comprehensive"
)

// MatchContext is the expanded context for one matched child.
type MatchContext struct {
	Child ScoredChild `json:"child"`
	// Siblings is the ±N reading-order window around the match, including
	// the match itself. Populated in comprehensive mode only.
	Siblings []ChildChunk `json:"siblings,omitempty"`
	// Degraded is true when the child lacks hierarchy fields (a flat-mode
	// record) and expansion was skipped for this match.
	Degraded bool `json:"degraded,omitempty"`
}

// Expansion is the assembled result of one Expand call. Parents and
// siblings are ordered by document position (section index, sequence
// index), never by match score, so the expanded context reads as
// continuous text. Matches keep their input rank order.
type Expansion struct {
	Mode    ContextMode    `json:"mode"`
	Matches []MatchContext `json:"matches"`
	// Parents holds the distinct parents of all matches, in document order.
	// Populated in contextual and comprehensive modes.
	Parents []ParentChunk `json:"parents,omitempty"`
	// Degraded is true when at least one match was served reduced context.
	Degraded bool `json:"degraded,omitempty"`
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithSiblingWindow sets N for comprehensive mode's ±N window (default 2).
func WithSiblingWindow(n int) ExpanderOption {
	return func(e *Expander) { e.window = n }
}

// WithExpandTimeout caps one Expand call. On expiry all outstanding fetches
// are aborted and the whole query fails; a partially-expanded hierarchy is
// never returned. Zero means no timeout.
func WithExpandTimeout(d time.Duration) ExpanderOption {
	return func(e *Expander) { e.timeout = d }
}

// WithExpanderLogger sets a structured logger. If not set, no logs are emitted.
func WithExpanderLogger(l *slog.Logger) ExpanderOption {
	return func(e *Expander) { e.logger = l }
}

// Expander resolves matched child chunks into their surrounding hierarchy
// at query time. It issues read-only store fetches and never recomputes
// embeddings. Safe for concurrent use.
type Expander struct {
	store   ChunkStore
	window  int
	timeout time.Duration
	logger  *slog.Logger
}

// NewExpander creates an Expander over store.
func NewExpander(store ChunkStore, opts ...ExpanderOption) *Expander {
	e := &Expander{
		store:  store,
		window: 2,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// hierarchyComplete is the single completeness check every context mode
// consumes. A child produced under a flat configuration has no parent link
// and no sibling bookkeeping; such a match is served as-is.
func hierarchyComplete(c ChildChunk) bool {
	return c.ParentID != "" && c.SiblingCount > 0
}

// ExpandIDs fetches the child records for ids (preserving rank order) and
// expands them. Ids that resolve to no record are dropped.
func (e *Expander) ExpandIDs(ctx context.Context, ids []string, mode ContextMode) (Expansion, error) {
	if len(ids) == 0 {
		return Expansion{Mode: mode}, nil
	}
	children, err := e.store.GetChildren(ctx, ids)
	if err != nil {
		return Expansion{}, fmt.Errorf("fetch matches: %w", err)
	}
	byID := make(map[string]ChildChunk, len(children))
	for _, c := range children {
		byID[c.ID] = c
	}
	matches := make([]ScoredChild, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			matches = append(matches, ScoredChild{ChildChunk: c})
		}
	}
	return e.Expand(ctx, matches, mode)
}

// Expand resolves matches into the amount of context mode asks for. The
// result is assembled only after every outstanding fetch completes;
// on error or timeout the whole query fails.
func (e *Expander) Expand(ctx context.Context, matches []ScoredChild, mode ContextMode) (Expansion, error) {
	switch mode {
	case ModePrecise, ModeContextual, ModeComprehensive:
	default:
		return Expansion{}, &ConfigError{Field: "context_mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}

	out := Expansion{Mode: mode, Matches: make([]MatchContext, len(matches))}
	for i, m := range matches {
		out.Matches[i] = MatchContext{
			Child:    m,
			Degraded: mode != ModePrecise && !hierarchyComplete(m.ChildChunk),
		}
		if out.Matches[i].Degraded {
			out.Degraded = true
		}
	}

	if mode == ModePrecise || len(matches) == 0 {
		return out, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()

	// Distinct parent ids, first-seen order.
	seen := make(map[string]bool)
	var parentIDs []string
	for _, m := range matches {
		if !hierarchyComplete(m.ChildChunk) || seen[m.ParentID] {
			continue
		}
		seen[m.ParentID] = true
		parentIDs = append(parentIDs, m.ParentID)
	}

	// Parent fetch and per-match sibling fetches are independent; run them
	// concurrently and assemble only after all complete.
	g, gctx := errgroup.WithContext(ctx)

	var parents []ParentChunk
	if len(parentIDs) > 0 {
		g.Go(func() error {
			ps, err := e.store.GetParents(gctx, parentIDs)
			if err != nil {
				return fmt.Errorf("fetch parents: %w", err)
			}
			parents = ps
			return nil
		})
	}

	siblings := make([][]ChildChunk, len(matches))
	if mode == ModeComprehensive {
		for i, m := range matches {
			if !hierarchyComplete(m.ChildChunk) {
				continue
			}
			i, m := i, m
			g.Go(func() error {
				lo := max(0, m.SequenceIndex-e.window)
				hi := min(m.SiblingCount-1, m.SequenceIndex+e.window)
				sibs, err := e.store.GetSiblings(gctx, m.ParentID, lo, hi)
				if err != nil {
					return fmt.Errorf("fetch siblings of %s: %w", m.ID, err)
				}
				siblings[i] = sibs
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		e.logger.Warn("expand: aborted", "mode", mode, "matches", len(matches), "error", err)
		return Expansion{}, err
	}

	sort.Slice(parents, func(i, j int) bool {
		return parents[i].SectionIndex < parents[j].SectionIndex
	})
	out.Parents = parents
	if mode == ModeComprehensive {
		for i := range out.Matches {
			out.Matches[i].Siblings = siblings[i]
		}
	}

	e.logger.Debug("expand: ok",
		"mode", mode, "matches", len(matches), "parents", len(parents),
		"degraded", out.Degraded, "duration", time.Since(start))
	return out, nil
}
