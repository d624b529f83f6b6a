package observer

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
)

// RecordIngest records metrics and a structured log entry for one completed
// book ingestion run.
func (inst *Instruments) RecordIngest(ctx context.Context, bookID string, sections, failed, parents, children int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else if failed > 0 {
		status = "partial"
	}
	durationMs := float64(duration.Milliseconds())

	inst.IngestRuns.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
	inst.IngestDuration.Record(ctx, durationMs)
	if failed > 0 {
		inst.SectionFailures.Add(ctx, int64(failed))
	}
	inst.ChunksWritten.Add(ctx, int64(parents), metric.WithAttributes(AttrChunkLevel.String("parent")))
	inst.ChunksWritten.Add(ctx, int64(children), metric.WithAttributes(AttrChunkLevel.String("child")))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
	}
	rec.SetBody(otellog.StringValue("ingestion completed"))
	rec.AddAttributes(
		otellog.String("book.id", bookID),
		otellog.Int("ingest.section_count", sections),
		otellog.Int("ingest.sections_failed", failed),
		otellog.Int("ingest.parent_count", parents),
		otellog.Int("ingest.child_count", children),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
	)
	inst.Logger.Emit(ctx, rec)
}

// RecordExpansion records metrics and a structured log entry for one context
// expansion request.
func (inst *Instruments) RecordExpansion(ctx context.Context, mode string, matches int, degraded bool, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	durationMs := float64(duration.Milliseconds())

	inst.ExpandRequests.Add(ctx, 1, metric.WithAttributes(
		AttrExpandMode.String(mode),
		AttrStatus.String(status),
	))
	inst.ExpandDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrExpandMode.String(mode),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
	}
	rec.SetBody(otellog.StringValue("context expansion completed"))
	rec.AddAttributes(
		otellog.String("expand.mode", mode),
		otellog.Int("expand.match_count", matches),
		otellog.Bool("expand.degraded", degraded),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
	)
	inst.Logger.Emit(ctx, rec)
}
