package embed

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/guidemcp/internal/config"
	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// New constructs the configured embedder wrapped in an LRU cache.
func New(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	var inner Embedder

	switch cfg.Provider {
	case "ollama", "":
		e, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout.Std(),
		})
		if err != nil {
			return nil, err
		}
		inner = e
	case "static":
		inner = NewStaticEmbedder()
	default:
		return nil, guideerr.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q (supported: ollama, static)",
				cfg.Provider), nil)
	}

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
