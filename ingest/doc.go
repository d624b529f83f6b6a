// Package ingest implements the ingestion-time chunking engine: sentence
// segmentation, embedding-drift boundary detection, size-bounded chunk
// assembly, structural chapter detection, and parent/child hierarchy
// building, orchestrated end to end by the Ingestor.
//
// One book is a sequential pipeline (extract → detect sections →
// semantic-chunk → embed → persist). Independent books may be ingested
// concurrently; the only shared state is the read-only provider cache in
// the root package.
package ingest
