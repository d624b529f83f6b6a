package ingest

import (
	"log/slog"

	folio "github.com/mwehr/folio"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunking sets the chunking configuration for the run. It is validated
// once in New; an invalid config fails construction, never a chunk.
func WithChunking(cfg folio.ChunkingConfig) Option {
	return func(ing *Ingestor) { ing.cfg = cfg }
}

// WithSizer sets the size unit used for child bounds and the parent embed
// cap (default WordSizer). One sizer serves the whole run.
func WithSizer(s Sizer) Option {
	return func(ing *Ingestor) { ing.sizer = s }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithExtractor registers an Extractor for a content type, replacing the
// built-in one if present.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}
