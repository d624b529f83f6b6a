package folio

import "context"

// EmbeddingProvider converts texts to vectors. Implementations live outside
// this module (API clients, local ONNX runtimes); the core only consumes the
// interface. Embed accepts a batch and must return one vector per input text,
// all with Dimensions() elements. The same provider must be used for every
// sentence and chunk within one ingestion run.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the model identifier, recorded on every chunk produced.
	Name() string
}
