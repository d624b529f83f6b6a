package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for Folio observability spans and metrics.
var (
	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrBookID    = attribute.Key("book.id")
	AttrBookTitle = attribute.Key("book.title")

	AttrSectionCount  = attribute.Key("ingest.section_count")
	AttrSectionFailed = attribute.Key("ingest.sections_failed")
	AttrParentCount   = attribute.Key("ingest.parent_count")
	AttrChildCount    = attribute.Key("ingest.child_count")

	AttrExpandMode     = attribute.Key("expand.mode")
	AttrExpandMatches  = attribute.Key("expand.match_count")
	AttrExpandDegraded = attribute.Key("expand.degraded")

	AttrStoreOp    = attribute.Key("store.operation")
	AttrChunkLevel = attribute.Key("chunk.level")
	AttrStatus     = attribute.Key("status")
)
