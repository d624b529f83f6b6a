package folio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type staticProvider struct {
	name string
	dims int
}

func (p *staticProvider) Name() string    { return p.name }
func (p *staticProvider) Dimensions() int { return p.dims }
func (p *staticProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

func TestProviderCacheLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	cache := NewProviderCache(func(model string) (EmbeddingProvider, error) {
		loads.Add(1)
		return &staticProvider{name: model, dims: 768}, nil
	})

	const workers = 16
	var wg sync.WaitGroup
	got := make([]EmbeddingProvider, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := cache.Get("nomic-embed-text")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			got[i] = p
		}(i)
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different provider instance", i)
		}
	}
}

func TestProviderCachePerModel(t *testing.T) {
	var loads atomic.Int32
	cache := NewProviderCache(func(model string) (EmbeddingProvider, error) {
		loads.Add(1)
		return &staticProvider{name: model}, nil
	})

	a, _ := cache.Get("model-a")
	b, _ := cache.Get("model-b")
	if a == b {
		t.Error("distinct models share a provider")
	}
	if n := loads.Load(); n != 2 {
		t.Errorf("loader ran %d times, want 2", n)
	}

	models := cache.Models()
	if len(models) != 2 {
		t.Errorf("Models() = %v, want 2 entries", models)
	}
}

func TestProviderCacheCachesFailure(t *testing.T) {
	wantErr := errors.New("weights not found")
	var loads atomic.Int32
	cache := NewProviderCache(func(string) (EmbeddingProvider, error) {
		loads.Add(1)
		return nil, wantErr
	})

	for i := 0; i < 3; i++ {
		if _, err := cache.Get("broken"); !errors.Is(err, wantErr) {
			t.Fatalf("Get #%d error = %v, want %v", i, err, wantErr)
		}
	}
	// The failed load is cached; no retry storm mid-run.
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}
