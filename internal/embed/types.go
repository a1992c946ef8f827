// Package embed generates vector embeddings for guideline text. The Ollama
// backend is the default; a deterministic static backend keeps tests and
// offline environments working without a model server.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default number of texts per embedding request.
	DefaultBatchSize = 16

	// MaxBatchSize caps a single request to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultTimeout bounds a single embedding request. The first request
	// after an idle period can include model load time.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of attempts per request.
	DefaultMaxRetries = 3

	// StaticDimensions is the embedding dimension of the static backend.
	StaticDimensions = 256
)

// Task prefixes for asymmetric embedding models (nomic-style). Documents and
// queries are embedded with different prefixes so that short questions land
// near long guideline bodies.
const (
	DocumentPrefix = "search_document: "
	QueryPrefix    = "search_query: "
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result has
	// exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Unit vectors make cosine
// distance a pure dot product in the index.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
