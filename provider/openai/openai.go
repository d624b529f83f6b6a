// Package openai implements folio.EmbeddingProvider against the
// OpenAI-compatible /v1/embeddings endpoint. Besides OpenAI itself it works
// with any server speaking the same dialect (Ollama, Groq, Together, local
// inference gateways) by pointing baseURL at it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	folio "github.com/mwehr/folio"
)

// Embedding implements folio.EmbeddingProvider for OpenAI-compatible APIs.
type Embedding struct {
	apiKey  string
	model   string
	dims    int
	baseURL string
	name    string
	client  *http.Client
}

// Option configures an Embedding.
type Option func(*Embedding)

// WithName overrides the provider name reported by Name() (default "openai").
// Useful when pointing at a compatible backend like Ollama or Groq.
func WithName(name string) Option {
	return func(e *Embedding) { e.name = name }
}

// WithHTTPClient replaces the HTTP client (default http.DefaultClient
// semantics with no timeout; pass one with a Timeout for production use).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) { e.client = c }
}

// New creates an embedding provider for an OpenAI-compatible endpoint.
// baseURL is the API root, e.g. "https://api.openai.com/v1" or
// "http://localhost:11434/v1".
func New(apiKey, model string, dims int, baseURL string, opts ...Option) *Embedding {
	e := &Embedding{
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		baseURL: baseURL,
		name:    "openai",
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedding) Name() string    { return e.name }
func (e *Embedding) Dimensions() int { return e.dims }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed embeds texts in a single batched request, preserving input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "marshal embed body: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "create embed request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "embed request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "read embed response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &folio.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: folio.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "parse embed response: " + err.Error()}
	}
	if len(parsed.Data) != len(texts) {
		return nil, &folio.ErrProvider{Provider: e.name, Message: "response data count does not match input"}
	}

	// The API documents data order as input order, but index is authoritative.
	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, &folio.ErrProvider{Provider: e.name, Message: "embedding index out of range"}
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

var _ folio.EmbeddingProvider = (*Embedding)(nil)
