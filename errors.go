package folio

import (
	"fmt"
	"strconv"
	"time"
)

// ConfigError reports an invalid configuration value. It is detected before
// any processing starts and is fatal for the triggering run only.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// EmbeddingMismatchError reports a returned vector whose dimensionality
// disagrees with the provider's declared dimension.
type EmbeddingMismatchError struct {
	Model string
	Want  int
	Got   int
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf("embedding %s: dimension mismatch: want %d, got %d", e.Model, e.Want, e.Got)
}

// SectionError wraps a failure scoped to one section of a book, so a
// malformed section never aborts the whole book and the caller can retry
// just the affected book with enough detail.
type SectionError struct {
	SectionIndex int
	Err          error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d: %v", e.SectionIndex, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// ErrProvider reports an embedding backend failure that is not a plain HTTP
// status error (marshalling, transport, malformed response).
type ErrProvider struct {
	Provider string
	Message  string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP reports a failed HTTP call to an embedding backend. RetryAfter
// carries the server's Retry-After value when present, so retry wrappers can
// honor it.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses an HTTP Retry-After header value given in seconds.
// Empty or malformed values yield 0.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
