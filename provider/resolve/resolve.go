// Package resolve creates embedding providers from provider-agnostic
// configuration, so callers can switch backends with a config change.
package resolve

import (
	"fmt"

	folio "github.com/mwehr/folio"
	"github.com/mwehr/folio/provider/gemini"
	"github.com/mwehr/folio/provider/openai"
)

// Config holds provider-agnostic configuration for creating an
// EmbeddingProvider.
type Config struct {
	Provider   string // "gemini", "openai", "ollama", "groq", "together", "mistral"
	APIKey     string
	Model      string
	BaseURL    string // required for openai-compat; auto-filled for known providers
	Dimensions int
}

// EmbeddingProvider creates a folio.EmbeddingProvider from cfg.
func EmbeddingProvider(cfg Config) (folio.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case "openai", "ollama", "groq", "together", "mistral":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURL(cfg.Provider)
		}
		if baseURL == "" {
			return nil, fmt.Errorf("resolve: provider %q requires a base URL", cfg.Provider)
		}
		return openai.New(cfg.APIKey, cfg.Model, cfg.Dimensions, baseURL,
			openai.WithName(cfg.Provider)), nil
	default:
		return nil, fmt.Errorf("resolve: unknown embedding provider %q", cfg.Provider)
	}
}

// Loader adapts EmbeddingProvider for a folio.ProviderCache: the model
// identifier selects the model, everything else comes from cfg.
func Loader(cfg Config) folio.ProviderLoader {
	return func(model string) (folio.EmbeddingProvider, error) {
		c := cfg
		c.Model = model
		return EmbeddingProvider(c)
	}
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	default:
		return ""
	}
}
