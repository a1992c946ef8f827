package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Aman-CERP/guidemcp/internal/embed"
	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// SearchResult is one search hit.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float32 `json:"score"`
	Summary  string  `json:"summary"`
}

// Search embeds the query and returns the nearest guidelines from the
// active generation, ordered by descending score with ascending-ID
// tie-breaks. The limit is clamped to the configured maximum rather than
// rejected; zero means the default.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, guideerr.New(guideerr.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	limit = e.clampLimit(limit)

	gen := e.active.Load()
	if gen == nil {
		return nil, e.noGenerationError()
	}

	cacheKey := searchCacheKey(query, limit, gen.Revision)
	if e.searchCache != nil {
		if cached, ok := e.searchCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	queryVec, err := e.embedder.Embed(ctx, embed.QueryPrefix+query)
	if err != nil {
		return nil, err
	}

	hits, err := gen.vectors.Search(ctx, queryVec, limit)
	if err != nil {
		return nil, guideerr.New(guideerr.ErrCodeSearchFailed, "vector search", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		r, ok := gen.Record(hit.ID)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			ID:       r.ID,
			Title:    r.Title,
			Category: r.CategoryKey,
			Score:    hit.Score,
			Summary:  summarize(r.RawMarkdown, e.summaryLength()),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if e.searchCache != nil {
		e.searchCache.Add(cacheKey, results)
	}
	return results, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.searchCfg.DefaultLimit
	}
	if limit > e.searchCfg.MaxLimit {
		return e.searchCfg.MaxLimit
	}
	return limit
}

func (e *Engine) summaryLength() int {
	if e.searchCfg.SummaryLength > 0 {
		return e.searchCfg.SummaryLength
	}
	return 300
}

// searchCacheKey includes the generation revision so a published rebuild
// implicitly invalidates every older entry.
func searchCacheKey(query string, limit int, revision string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", query, limit, revision)))
	return hex.EncodeToString(hash[:])
}

// summarize flattens markdown into a single line and truncates it at a word
// boundary, at most maxRunes runes plus the ellipsis.
func summarize(text string, maxRunes int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= maxRunes {
		return flat
	}

	cut := maxRunes
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxRunes
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "…"
}
