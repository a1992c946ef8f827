package guideline

import (
	"fmt"
	"strings"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// Grammar extracts guideline records from one corpus family's document
// structure. Implementations must be deterministic: the same corpus
// contents always yield the same records in the same order.
type Grammar interface {
	// Name returns the grammar identifier used in configuration.
	Name() string

	// Parse walks the corpus checkout and returns the ordered record set.
	// It fails with a parse error on duplicate IDs; a duplicate indicates a
	// grammar mismatch or a corrupted corpus, and partial indexing is worse
	// than failing loudly.
	Parse(corpusRoot string) ([]Record, error)
}

// ForName returns the grammar registered under the given name.
func ForName(name string) (Grammar, error) {
	switch name {
	case "cppcore":
		return CppCoreGrammar{}, nil
	case "rustapi":
		return RustAPIGrammar{}, nil
	case "nodebest":
		return NodeBestGrammar{}, nil
	default:
		return nil, guideerr.ConfigError(fmt.Sprintf("unknown grammar %q", name), nil)
	}
}

// checkDuplicateIDs rejects the whole record set when any ID repeats.
func checkDuplicateIDs(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			return guideerr.ParseError(fmt.Sprintf("duplicate guideline id %q", r.ID), nil)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// slugify converts a heading to a lowercase dash-separated anchor slug.
func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastDash := false
	for _, ch := range strings.ToLower(s) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// splitIDTitle splits a rule heading remainder of the form "ID: Title".
// Some titles contain ':' so only the first separator counts; "ID:" with no
// space is accepted as a fallback. Returns ok=false when no separator
// exists at all.
func splitIDTitle(rest string) (id, title string, ok bool) {
	if pos := strings.Index(rest, ": "); pos >= 0 {
		return strings.TrimSpace(rest[:pos]), strings.TrimSpace(rest[pos+2:]), true
	}
	if pos := strings.Index(rest, ":"); pos >= 0 {
		return strings.TrimSpace(rest[:pos]), strings.TrimSpace(rest[pos+1:]), true
	}
	return "", "", false
}

// joinBlock joins raw lines of one record, trimming surrounding blank lines.
func joinBlock(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
