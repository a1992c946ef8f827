package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/guidemcp/internal/embed"
	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
	"github.com/Aman-CERP/guidemcp/internal/guideline"
	"github.com/Aman-CERP/guidemcp/internal/store"
)

// maxEmbedRunes bounds the text embedded per record. Long guideline bodies
// past this point add cost without improving retrieval.
const maxEmbedRunes = 2000

// embeddingText composes the text embedded for one record: title plus body,
// truncated, with the document task prefix.
func embeddingText(r guideline.Record) string {
	text := r.Title + ". " + r.RawMarkdown
	runes := []rune(text)
	if len(runes) > maxEmbedRunes {
		text = string(runes[:maxEmbedRunes])
	}
	return embed.DocumentPrefix + text
}

// buildVectorIndex embeds every record and builds a fresh vector store.
// Batches run concurrently under the worker bound; any batch failure aborts
// the whole build.
func buildVectorIndex(ctx context.Context, embedder embed.Embedder, records []guideline.Record, batchSize, workers int) (*store.HNSWStore, error) {
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}

	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, guideerr.EmbeddingError(
			fmt.Sprintf("embedder reports invalid dimension %d", dims), nil)
	}

	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: dims})
	if err != nil {
		return nil, guideerr.New(guideerr.ErrCodeIndexFailed, "create vector store", err)
	}

	type batch struct {
		start   int
		records []guideline.Record
	}
	var batches []batch
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, batch{start: start, records: records[start:end]})
	}

	vectors := make([][]float32, len(records))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, b := range batches {
		group.Go(func() error {
			texts := make([]string, len(b.records))
			for i, r := range b.records {
				texts[i] = embeddingText(r)
			}

			vecs, err := embedder.EmbedBatch(groupCtx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(b.records) {
				return guideerr.EmbeddingError(
					fmt.Sprintf("got %d embeddings for %d records", len(vecs), len(b.records)), nil)
			}

			mu.Lock()
			copy(vectors[b.start:], vecs)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		_ = vs.Close()
		if guideerr.GetCode(err) != "" {
			return nil, err
		}
		return nil, guideerr.EmbeddingError("embedding batch failed", err)
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := vs.Add(ctx, ids, vectors); err != nil {
		_ = vs.Close()
		return nil, guideerr.New(guideerr.ErrCodeIndexFailed, "index embeddings", err)
	}

	return vs, nil
}
