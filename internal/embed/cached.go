package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultQueryCacheSize bounds the number of distinct queries whose
// token matrices are cached. Repeated searches (iterative query
// refinement) are the common case this speeds up.
const DefaultQueryCacheSize = 256

type cacheKey struct {
	text string
	mode Mode
}

// CachedEmbedder wraps an Embedder with an LRU cache over individual
// texts, keyed by (text, mode). Batches are split into cache hits and
// a single downstream EmbedBatch call for the misses.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[cacheKey, []TokenVector]
}

var _ Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	cache, err := lru.New[cacheKey, []TokenVector](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]TokenVector, error) {
	out := make([][]TokenVector, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if v, ok := c.cache.Get(cacheKey{text: t, mode: mode}); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	missed, err := c.inner.EmbedBatch(ctx, missTexts, mode)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = missed[j]
		c.cache.Add(cacheKey{text: missTexts[j], mode: mode}, missed[j])
	}
	return out, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

func (c *CachedEmbedder) Close() error { return c.inner.Close() }
