package folio

import (
	"context"
	"sync"
	"time"
)

// rateLimitProvider wraps an EmbeddingProvider with proactive rate limiting.
// Requests are blocked until the rate budget allows them to proceed.
type rateLimitProvider struct {
	inner EmbeddingProvider
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// Texts-per-minute state: sliding window of (timestamp, count) pairs.
	tpm       int
	tpmWindow []tpmEntry
}

type tpmEntry struct {
	at    time.Time
	texts int
}

// RateLimitOption configures a rateLimitProvider.
type RateLimitOption func(*rateLimitProvider)

// RPM sets the maximum Embed requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitProvider) { r.rpm = n }
}

// TextsPerMinute sets the maximum texts embedded per minute. Batch sizes are
// recorded after each request. This is a soft limit: the batch that exceeds
// the budget completes, but subsequent requests block until the window slides.
func TextsPerMinute(n int) RateLimitOption {
	return func(r *rateLimitProvider) { r.tpm = n }
}

// WithRateLimit wraps p with proactive rate limiting. Useful against hosted
// embedding APIs with strict quotas; ingestion of a large book can otherwise
// burst hundreds of batches. Compose with other wrappers:
//
//	emb = folio.WithRateLimit(provider, folio.RPM(60))
//	emb = folio.WithRateLimit(provider, folio.RPM(60), folio.TextsPerMinute(10000))
//	emb = folio.WithRateLimit(folio.WithRetry(provider), folio.RPM(60))
func WithRateLimit(p EmbeddingProvider, opts ...RateLimitOption) EmbeddingProvider {
	r := &rateLimitProvider{inner: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitProvider) Name() string    { return r.inner.Name() }
func (r *rateLimitProvider) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return nil, err
	}
	vecs, err := r.inner.Embed(ctx, texts)
	if err == nil {
		r.recordTexts(len(texts))
	}
	return vecs, err
}

// waitForBudget blocks until both budgets allow a request.
// Returns ctx.Err() if the context is cancelled while waiting.
func (r *rateLimitProvider) waitForBudget(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		r.rpmWindow = pruneTime(r.rpmWindow, cutoff)
		r.tpmWindow = pruneTpm(r.tpmWindow, cutoff)

		rpmOK := r.rpm <= 0 || len(r.rpmWindow) < r.rpm

		tpmOK := true
		if r.tpm > 0 {
			var total int
			for _, e := range r.tpmWindow {
				total += e.texts
			}
			tpmOK = total < r.tpm
		}

		if rpmOK && tpmOK {
			if r.rpm > 0 {
				r.rpmWindow = append(r.rpmWindow, now)
			}
			r.mu.Unlock()
			return nil
		}

		// Wait until the oldest entry in the blocking window expires.
		var wait time.Duration
		if !rpmOK && len(r.rpmWindow) > 0 {
			wait = r.rpmWindow[0].Add(time.Minute).Sub(now)
		}
		if !tpmOK && len(r.tpmWindow) > 0 {
			w := r.tpmWindow[0].at.Add(time.Minute).Sub(now)
			if wait == 0 || w < wait {
				wait = w
			}
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// recordTexts adds a batch size to the texts-per-minute sliding window.
func (r *rateLimitProvider) recordTexts(n int) {
	if r.tpm <= 0 || n <= 0 {
		return
	}
	r.mu.Lock()
	r.tpmWindow = append(r.tpmWindow, tpmEntry{at: time.Now(), texts: n})
	r.mu.Unlock()
}

// pruneTime removes entries older than cutoff from a sorted time slice.
func pruneTime(s []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(s) && s[i].Before(cutoff) {
		i++
	}
	return s[i:]
}

// pruneTpm removes entries older than cutoff from a sorted tpmEntry slice.
func pruneTpm(s []tpmEntry, cutoff time.Time) []tpmEntry {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}

var _ EmbeddingProvider = (*rateLimitProvider)(nil)
