package observer

import (
	"context"
	"time"

	folio "github.com/mwehr/folio"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedStore wraps a folio.ChunkStore with OTEL instrumentation. Every
// store operation gets a span, an operation counter increment, and a duration
// sample.
type ObservedStore struct {
	inner folio.ChunkStore
	inst  *Instruments
}

// WrapStore returns an instrumented chunk store.
func WrapStore(inner folio.ChunkStore, inst *Instruments) *ObservedStore {
	return &ObservedStore{inner: inner, inst: inst}
}

var _ folio.ChunkStore = (*ObservedStore)(nil)

// observe runs fn inside a span named op and records operation metrics.
func (o *ObservedStore) observe(ctx context.Context, op string, attrs []trace.SpanStartOption, fn func(context.Context) error) error {
	opts := append([]trace.SpanStartOption{trace.WithAttributes(AttrStoreOp.String(op))}, attrs...)
	ctx, span := o.inst.Tracer.Start(ctx, "store."+op, opts...)
	defer span.End()
	start := time.Now()

	err := fn(ctx)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.inst.StoreOps.Add(ctx, 1, metric.WithAttributes(
		AttrStoreOp.String(op),
		AttrStatus.String(status),
	))
	o.inst.StoreDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrStoreOp.String(op),
	))
	return err
}

func (o *ObservedStore) Init(ctx context.Context) error {
	return o.observe(ctx, "init", nil, o.inner.Init)
}

func (o *ObservedStore) ReplaceBook(ctx context.Context, book folio.Book, parents []folio.ParentChunk, children []folio.ChildChunk) error {
	attrs := []trace.SpanStartOption{trace.WithAttributes(
		AttrBookID.String(book.ID),
		AttrParentCount.Int(len(parents)),
		AttrChildCount.Int(len(children)),
	)}
	return o.observe(ctx, "replace_book", attrs, func(ctx context.Context) error {
		return o.inner.ReplaceBook(ctx, book, parents, children)
	})
}

func (o *ObservedStore) DeleteBook(ctx context.Context, bookID string) error {
	attrs := []trace.SpanStartOption{trace.WithAttributes(AttrBookID.String(bookID))}
	return o.observe(ctx, "delete_book", attrs, func(ctx context.Context) error {
		return o.inner.DeleteBook(ctx, bookID)
	})
}

func (o *ObservedStore) GetBook(ctx context.Context, bookID string) (folio.Book, error) {
	var book folio.Book
	err := o.observe(ctx, "get_book", nil, func(ctx context.Context) error {
		var err error
		book, err = o.inner.GetBook(ctx, bookID)
		return err
	})
	return book, err
}

func (o *ObservedStore) ListBooks(ctx context.Context, limit int) ([]folio.Book, error) {
	var books []folio.Book
	err := o.observe(ctx, "list_books", nil, func(ctx context.Context) error {
		var err error
		books, err = o.inner.ListBooks(ctx, limit)
		return err
	})
	return books, err
}

func (o *ObservedStore) GetParents(ctx context.Context, ids []string) ([]folio.ParentChunk, error) {
	var parents []folio.ParentChunk
	err := o.observe(ctx, "get_parents", nil, func(ctx context.Context) error {
		var err error
		parents, err = o.inner.GetParents(ctx, ids)
		return err
	})
	return parents, err
}

func (o *ObservedStore) GetChildren(ctx context.Context, ids []string) ([]folio.ChildChunk, error) {
	var children []folio.ChildChunk
	err := o.observe(ctx, "get_children", nil, func(ctx context.Context) error {
		var err error
		children, err = o.inner.GetChildren(ctx, ids)
		return err
	})
	return children, err
}

func (o *ObservedStore) GetSiblings(ctx context.Context, parentID string, lo, hi int) ([]folio.ChildChunk, error) {
	var siblings []folio.ChildChunk
	err := o.observe(ctx, "get_siblings", nil, func(ctx context.Context) error {
		var err error
		siblings, err = o.inner.GetSiblings(ctx, parentID, lo, hi)
		return err
	})
	return siblings, err
}

func (o *ObservedStore) SearchChildren(ctx context.Context, embedding []float32, topK int) ([]folio.ScoredChild, error) {
	var results []folio.ScoredChild
	err := o.observe(ctx, "search_children", nil, func(ctx context.Context) error {
		var err error
		results, err = o.inner.SearchChildren(ctx, embedding, topK)
		return err
	})
	return results, err
}

func (o *ObservedStore) Close() error {
	return o.inner.Close()
}
