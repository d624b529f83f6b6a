package ingest

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Sizer counts chunk sizes in one unit. A single Sizer instance is used for
// child sizing and the parent embed-text cap within a run, so the unit is
// always applied uniformly.
type Sizer interface {
	// Count returns the size of text in the sizer's unit.
	Count(text string) int
	// Truncate returns a prefix of text of at most n units.
	Truncate(text string, n int) string
	// Unit names the unit ("words", "tokens") for chunk metadata and logs.
	Unit() string
}

// WordSizer counts whitespace-separated words. Deterministic and
// dependency-free; the default.
type WordSizer struct{}

var _ Sizer = WordSizer{}

func (WordSizer) Count(text string) int { return len(strings.Fields(text)) }

func (WordSizer) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

func (WordSizer) Unit() string { return "words" }

// TokenSizer counts BPE tokens, matching how embedding-model input limits
// and downstream LLM cost are actually measured.
type TokenSizer struct {
	enc *tiktoken.Tiktoken
}

var _ Sizer = (*TokenSizer)(nil)

// NewTokenSizer creates a TokenSizer for the named tiktoken encoding
// (e.g. "cl100k_base").
func NewTokenSizer(encoding string) (*TokenSizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TokenSizer{enc: enc}, nil
}

func (s *TokenSizer) Count(text string) int {
	return len(s.enc.Encode(text, nil, nil))
}

func (s *TokenSizer) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return s.enc.Decode(tokens[:n])
}

func (s *TokenSizer) Unit() string { return "tokens" }
