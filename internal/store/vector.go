// Package store provides the persistence layer: an HNSW vector index for
// guideline embeddings and a SQLite record store for the guideline bodies
// and build metadata. A generation rebuild always writes into fresh stores;
// published stores are never mutated.
package store

import (
	"context"
	"fmt"
)

// VectorStoreConfig configures a vector store.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension. Required.
	Dimensions int

	// Metric is the distance metric: "cos" (default) or "l2".
	Metric string

	// M is the HNSW connectivity parameter.
	M int

	// EfSearch is the HNSW search expansion factor.
	EfSearch int
}

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	// ID is the guideline identifier.
	ID string

	// Distance is the raw metric distance to the query.
	Distance float32

	// Score is the normalized similarity in [0,1], higher is better.
	Score float32
}

// VectorStore indexes embeddings for k-NN search.
type VectorStore interface {
	// Add inserts vectors with their IDs. Re-adding an ID replaces it.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns up to k nearest neighbors, best first.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Save persists the index to the given path.
	Save(path string) error

	// Load restores the index from the given path.
	Load(path string) error

	// Close releases resources.
	Close() error
}

// ErrDimensionMismatch reports a vector with the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
