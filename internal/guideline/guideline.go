// Package guideline defines the guideline corpus data model and the
// per-family Grammar strategies that turn a corpus checkout into an ordered
// sequence of records.
//
// Parsing is a pure function of the corpus file contents and the selected
// grammar: same input produces byte-identical output, which keeps rebuilds
// reproducible and testable. Records are immutable once produced; they are
// only ever superseded by a later generation.
package guideline

// Record is a single addressable guideline rule.
type Record struct {
	// ID is the stable identifier, unique within a family
	// (e.g. "P.1", "C-CASE", "1.1").
	ID string `json:"id"`

	// Title is the rule title without the ID prefix.
	Title string `json:"title"`

	// CategoryKey is the stable key of the enclosing category.
	CategoryKey string `json:"category"`

	// CategoryName is the human-readable category name.
	CategoryName string `json:"category_name"`

	// Anchor is the deep-link slug into the source document.
	Anchor string `json:"anchor"`

	// SourceFile is the path of the originating file within the corpus.
	SourceFile string `json:"source_file"`

	// RawMarkdown is the verbatim text block owned by this record, from its
	// heading to the next sibling heading (exclusive).
	RawMarkdown string `json:"raw_markdown"`
}

// Category groups records. GuidelineCount is derived from the record set of
// one generation, never stored independently.
type Category struct {
	Key            string `json:"key"`
	DisplayName    string `json:"display_name"`
	GuidelineCount int    `json:"guideline_count"`
}

// Synthetic category for records with no detectable grouping.
const (
	UncategorizedKey  = "uncategorized"
	UncategorizedName = "Uncategorized"
)
