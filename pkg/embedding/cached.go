package embedding

import (
	"context"
	"log"
	"time"

	"ai-concierge-be/pkg/cache"
	"ai-concierge-be/pkg/resilience"
)

const embeddingCacheNamespace = "embed"

// CachedProvider decorates a Provider with a fail-open Redis cache and
// resilience guards (circuit breaker + bounded retry). Cache failures never
// block embedding generation; provider failures are classified and retried
// only when transient.
type CachedProvider struct {
	inner   Provider
	cache   *cache.Cache
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryOptions
	ttl     time.Duration
	logger  *log.Logger
}

func NewCachedProvider(inner Provider, c *cache.Cache, breakers *resilience.BreakerRegistry, ttl time.Duration, logger *log.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{
		inner:   inner,
		cache:   c,
		breaker: breakers.Get("embedding"),
		retry:   resilience.DefaultRetryOptions(),
		ttl:     ttl,
		logger:  logger,
	}
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(embeddingCacheNamespace, text)

	var vector []float32
	if p.cache.Get(ctx, key, &vector) {
		return vector, nil
	}

	err := resilience.Retry(ctx, p.retry, func(ctx context.Context) error {
		return p.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			vector, callErr = p.inner.Embed(ctx, text)
			return resilience.WrapCall("embedding", callErr)
		})
	})
	if err != nil {
		return nil, err
	}

	p.cache.Set(ctx, key, vector, p.ttl)
	return vector, nil
}

// EmbedBatch checks the cache per text and only sends the misses to the
// underlying provider, preserving input order in the result.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := cache.Key(embeddingCacheNamespace, text)
		var vector []float32
		if p.cache.Get(ctx, key, &vector) {
			vectors[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	var fresh [][]float32
	err := resilience.Retry(ctx, p.retry, func(ctx context.Context) error {
		return p.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			fresh, callErr = p.inner.EmbedBatch(ctx, missTexts)
			return resilience.WrapCall("embedding", callErr)
		})
	})
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		vectors[idx] = fresh[j]
		key := cache.Key(embeddingCacheNamespace, missTexts[j])
		p.cache.Set(ctx, key, fresh[j], p.ttl)
	}
	return vectors, nil
}
