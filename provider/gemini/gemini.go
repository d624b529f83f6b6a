// Package gemini implements folio.EmbeddingProvider for Google Gemini
// embedding models via the embedContent API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	folio "github.com/mwehr/folio"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta"

// Embedding implements folio.EmbeddingProvider for Gemini embedding models.
type Embedding struct {
	apiKey     string
	model      string
	dims       int
	httpClient *http.Client
}

// New creates a Gemini embedding provider.
func New(apiKey, model string, dims int) *Embedding {
	return &Embedding{
		apiKey:     apiKey,
		model:      model,
		dims:       dims,
		httpClient: &http.Client{},
	}
}

// Name returns "gemini".
func (e *Embedding) Name() string { return "gemini" }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed embeds each text sequentially and returns the embedding vectors.
// The embedContent endpoint takes one text per call.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", baseURL, e.model, e.apiKey)

	embeddings := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body := map[string]any{
			"content": map[string]any{
				"parts": []map[string]any{
					{"text": text},
				},
			},
			"outputDimensionality": e.dims,
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "marshal embed body: " + err.Error()}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
		if err != nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "create embed request: " + err.Error()}
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(httpReq)
		if err != nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "embed request failed: " + err.Error()}
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "read embed response: " + err.Error()}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, httpErr(resp, string(respBody))
		}

		var parsed embedResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "parse embed response: " + err.Error()}
		}
		if parsed.Embedding == nil {
			return nil, &folio.ErrProvider{Provider: "gemini", Message: "missing embedding.values in response"}
		}

		vec := make([]float32, len(parsed.Embedding.Values))
		for i, v := range parsed.Embedding.Values {
			vec[i] = float32(v)
		}
		embeddings = append(embeddings, vec)
	}

	return embeddings, nil
}

// httpErr builds an ErrHTTP for retry middleware. The retry delay comes from
// the Retry-After header or from the Gemini-specific google.rpc.RetryInfo
// error detail, whichever is present.
func httpErr(resp *http.Response, body string) *folio.ErrHTTP {
	ra := folio.ParseRetryAfter(resp.Header.Get("Retry-After"))
	if ra == 0 {
		ra = retryInfoDelay(body)
	}
	return &folio.ErrHTTP{Status: resp.StatusCode, Body: body, RetryAfter: ra}
}

// retryInfoDelay extracts the retryDelay from a google.rpc.RetryInfo error
// detail ("14s" style duration), or 0.
func retryInfoDelay(body string) time.Duration {
	var envelope struct {
		Error struct {
			Details []json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &envelope) != nil {
		return 0
	}
	for _, raw := range envelope.Error.Details {
		var detail struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		}
		if json.Unmarshal(raw, &detail) != nil {
			continue
		}
		if detail.Type == "type.googleapis.com/google.rpc.RetryInfo" && detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
	}
	return 0
}

var _ folio.EmbeddingProvider = (*Embedding)(nil)
