package embed

import (
	"github.com/Aman-CERP/guidemcp/internal/config"
)

// factoryConfig builds a minimal embeddings config for factory tests.
func factoryConfig(provider string) config.EmbeddingsConfig {
	return config.EmbeddingsConfig{
		Provider:  provider,
		CacheSize: 8,
	}
}
