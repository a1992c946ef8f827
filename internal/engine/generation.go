// Package engine implements the guideline knowledge engine for one corpus
// family: the update pipeline (sync, parse, embed, publish) and the read
// path (search, lookup, category listing) against an atomically swapped
// immutable generation.
package engine

import (
	"sort"
	"time"

	"github.com/Aman-CERP/guidemcp/internal/guideline"
	"github.com/Aman-CERP/guidemcp/internal/store"
)

// GuidelineRef is a lightweight member reference in a category listing.
type GuidelineRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Generation is one immutable, fully built snapshot of a corpus: records,
// vector index, and category index, all from the same revision. Readers
// that hold a generation see a consistent corpus regardless of concurrent
// rebuilds.
type Generation struct {
	// Revision is the corpus commit the generation was built from.
	Revision string

	// BuiltAt is when the generation was published.
	BuiltAt time.Time

	records    map[string]guideline.Record
	categories map[string]guideline.Category
	members    map[string][]GuidelineRef
	vectors    store.VectorStore
}

// newGeneration builds the lookup and category indexes over the record set.
// The caller guarantees unique IDs; the grammar rejects duplicates.
func newGeneration(revision string, builtAt time.Time, records []guideline.Record, vectors store.VectorStore) *Generation {
	g := &Generation{
		Revision:   revision,
		BuiltAt:    builtAt,
		records:    make(map[string]guideline.Record, len(records)),
		categories: make(map[string]guideline.Category),
		members:    make(map[string][]GuidelineRef),
		vectors:    vectors,
	}

	for _, r := range records {
		g.records[r.ID] = r
		g.members[r.CategoryKey] = append(g.members[r.CategoryKey],
			GuidelineRef{ID: r.ID, Title: r.Title})
		if _, ok := g.categories[r.CategoryKey]; !ok {
			g.categories[r.CategoryKey] = guideline.Category{
				Key:         r.CategoryKey,
				DisplayName: r.CategoryName,
			}
		}
	}

	for key, refs := range g.members {
		sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
		cat := g.categories[key]
		cat.GuidelineCount = len(refs)
		g.categories[key] = cat
	}

	return g
}

// Count returns the number of records in the generation.
func (g *Generation) Count() int {
	return len(g.records)
}

// Record looks up one record by ID.
func (g *Generation) Record(id string) (guideline.Record, bool) {
	r, ok := g.records[id]
	return r, ok
}

// Category returns the category metadata and its members sorted by ID.
func (g *Generation) Category(key string) (guideline.Category, []GuidelineRef, bool) {
	cat, ok := g.categories[key]
	if !ok {
		return guideline.Category{}, nil, false
	}
	return cat, g.members[key], true
}

// CategoryKeys returns all category keys, sorted.
func (g *Generation) CategoryKeys() []string {
	keys := make([]string, 0, len(g.categories))
	for key := range g.categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
