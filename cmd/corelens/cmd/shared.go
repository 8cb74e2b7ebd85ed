package cmd

import (
	"context"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/embed"
)

// loadConfig resolves layered configuration for the project rooted at dir.
func loadConfig(dir string) (*config.Config, error) {
	return config.Load(dir)
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	return embed.NewEmbedder(ctx, embed.Settings{
		Provider: embed.ProviderType(cfg.Embeddings.Provider),
		Model:    cfg.Embeddings.Model,
		Host:     cfg.Embeddings.Host,
	})
}
