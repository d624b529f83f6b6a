// Package observer provides OTEL-based observability for Folio operations.
//
// It wraps EmbeddingProvider and ChunkStore with instrumented versions that
// emit traces, metrics, and logs via OpenTelemetry, and exposes recorders for
// ingestion runs and context expansions. Users export to any OTEL-compatible
// backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/mwehr/folio/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	EmbedRequests   metric.Int64Counter
	EmbedTexts      metric.Int64Counter
	IngestRuns      metric.Int64Counter
	SectionFailures metric.Int64Counter
	ChunksWritten   metric.Int64Counter
	ExpandRequests  metric.Int64Counter
	StoreOps        metric.Int64Counter

	// Histograms
	EmbedDuration  metric.Float64Histogram
	IngestDuration metric.Float64Histogram
	ExpandDuration metric.Float64Histogram
	StoreDuration  metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("folio")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	embedRequests, err := meter.Int64Counter("embedding.requests",
		metric.WithDescription("Embedding request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	embedTexts, err := meter.Int64Counter("embedding.texts",
		metric.WithDescription("Total texts embedded"),
		metric.WithUnit("{text}"))
	if err != nil {
		return nil, err
	}

	ingestRuns, err := meter.Int64Counter("ingest.runs",
		metric.WithDescription("Book ingestion run count"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	sectionFailures, err := meter.Int64Counter("ingest.section_failures",
		metric.WithDescription("Sections that failed to chunk"),
		metric.WithUnit("{section}"))
	if err != nil {
		return nil, err
	}

	chunksWritten, err := meter.Int64Counter("ingest.chunks_written",
		metric.WithDescription("Chunks written per ingestion, by level"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	expandRequests, err := meter.Int64Counter("expand.requests",
		metric.WithDescription("Context expansion request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	storeOps, err := meter.Int64Counter("store.operations",
		metric.WithDescription("Chunk store operation count"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	embedDuration, err := meter.Float64Histogram("embedding.duration",
		metric.WithDescription("Embedding call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram("ingest.duration",
		metric.WithDescription("Book ingestion duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	expandDuration, err := meter.Float64Histogram("expand.duration",
		metric.WithDescription("Context expansion duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	storeDuration, err := meter.Float64Histogram("store.duration",
		metric.WithDescription("Chunk store operation duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          tracer,
		Meter:           meter,
		Logger:          logger,
		EmbedRequests:   embedRequests,
		EmbedTexts:      embedTexts,
		IngestRuns:      ingestRuns,
		SectionFailures: sectionFailures,
		ChunksWritten:   chunksWritten,
		ExpandRequests:  expandRequests,
		StoreOps:        storeOps,
		EmbedDuration:   embedDuration,
		IngestDuration:  ingestDuration,
		ExpandDuration:  expandDuration,
		StoreDuration:   storeDuration,
	}, nil
}
