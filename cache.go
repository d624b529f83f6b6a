package folio

import "sync"

// ProviderLoader constructs an EmbeddingProvider for a model identifier.
// Loading may be expensive (local model weights, client warm-up); the cache
// guarantees it runs at most once per identifier.
type ProviderLoader func(model string) (EmbeddingProvider, error)

// ProviderCache shares one EmbeddingProvider per model identifier across
// concurrent ingestion workers. It is injected explicitly at pipeline
// construction; entries are populated under a single initialization guard
// per key and are read-only afterward, so concurrent readers need no
// further coordination.
type ProviderCache struct {
	loader ProviderLoader

	mu      sync.Mutex
	entries map[string]*providerEntry
}

type providerEntry struct {
	once     sync.Once
	provider EmbeddingProvider
	err      error
}

// NewProviderCache creates a cache that uses loader for cache misses.
func NewProviderCache(loader ProviderLoader) *ProviderCache {
	return &ProviderCache{
		loader:  loader,
		entries: make(map[string]*providerEntry),
	}
}

// Get returns the provider for model, loading it on first use. Concurrent
// callers for the same model block until the single load completes and then
// share the result. A failed load is cached too; callers see the same error
// rather than retrying a broken model path mid-run.
func (c *ProviderCache) Get(model string) (EmbeddingProvider, error) {
	c.mu.Lock()
	e, ok := c.entries[model]
	if !ok {
		e = &providerEntry{}
		c.entries[model] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.provider, e.err = c.loader(model)
	})
	return e.provider, e.err
}

// Models returns the identifiers currently cached, in no particular order.
func (c *ProviderCache) Models() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for m := range c.entries {
		out = append(out, m)
	}
	return out
}
