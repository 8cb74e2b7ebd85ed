package embed

import (
	"context"
	"fmt"
	"sync"
)

// ProviderType selects which Embedder implementation to construct.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderStatic ProviderType = "static"
)

// Settings carries the fields of internal/config.EmbeddingsConfig that
// the factory needs, kept as its own type so this package doesn't
// import internal/config (embed is a lower-level dependency of it via
// internal/indexer).
type Settings struct {
	Provider ProviderType
	Model    string
	Host     string
}

var (
	cacheMu       sync.Mutex
	cachedByKey   = map[string]Embedder{}
)

// NewEmbedder constructs the Embedder named by settings. Instances are
// memoized process-wide by (provider, model, host): embedders hold
// pooled HTTP connections and/or caches that are wasteful to
// duplicate across callers within one process.
func NewEmbedder(ctx context.Context, settings Settings) (Embedder, error) {
	key := fmt.Sprintf("%s|%s|%s", settings.Provider, settings.Model, settings.Host)

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if e, ok := cachedByKey[key]; ok {
		return e, nil
	}

	e, err := buildEmbedder(ctx, settings)
	if err != nil {
		return nil, err
	}
	cached, err := NewCachedEmbedder(e, DefaultQueryCacheSize)
	if err != nil {
		return nil, err
	}
	cachedByKey[key] = cached
	return cached, nil
}

func buildEmbedder(ctx context.Context, settings Settings) (Embedder, error) {
	switch settings.Provider {
	case ProviderStatic, "":
		return NewStaticEmbedder(), nil
	case ProviderOllama:
		cfg := DefaultOllamaConfig()
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		if settings.Host != "" {
			cfg.Host = settings.Host
		}
		return NewOllamaEmbedder(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", settings.Provider)
	}
}

// ResetCache clears the process-wide embedder cache. Exposed for
// tests that construct embedders against different fake servers under
// the same provider/model/host key.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cachedByKey = map[string]Embedder{}
}
