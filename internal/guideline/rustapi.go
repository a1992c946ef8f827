package guideline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// RustAPIGrammar parses the Rust API Guidelines corpus: one markdown file
// per category under src/, with guideline headings of the form
//
//	<a id="c-case"></a>
//	## Casing conforms to RFC 430 (C-CASE)
//
// The category key is the file's `# ` chapter heading. Headings that carry
// no ID trailer get a deterministic positional fallback ID derived from the
// file name, so runs remain reproducible even for unconventional chapters.
type RustAPIGrammar struct{}

// rustCategoryFiles is the fixed chapter list of the upstream book.
var rustCategoryFiles = []string{
	"src/naming.md",
	"src/interoperability.md",
	"src/macros.md",
	"src/documentation.md",
	"src/predictability.md",
	"src/flexibility.md",
	"src/type-safety.md",
	"src/dependability.md",
	"src/debuggability.md",
	"src/future-proofing.md",
	"src/necessities.md",
}

var (
	rustHeadingRe  = regexp.MustCompile(`^##\s+(.+?)\s+\((C-[A-Z0-9-]+)\)\s*$`)
	rustBareHeadRe = regexp.MustCompile(`^##\s+(.+?)\s*$`)
	rustAnchorRe   = regexp.MustCompile(`^<a id="([^"]+)"></a>\s*$`)
	rustChapterRe  = regexp.MustCompile(`^#\s+(.+?)\s*$`)
)

func (RustAPIGrammar) Name() string { return "rustapi" }

func (g RustAPIGrammar) Parse(corpusRoot string) ([]Record, error) {
	var records []Record

	for _, rel := range rustCategoryFiles {
		path := filepath.Join(corpusRoot, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, guideerr.ParseError(fmt.Sprintf("read %s: %v", path, err), err)
		}

		chapter, err := g.parseChapter(string(data), rel)
		if err != nil {
			return nil, err
		}
		records = append(records, chapter...)
	}

	// The upstream book orders chapters thematically; the record set is
	// sorted by ID for a stable, reproducible order.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if err := checkDuplicateIDs(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g RustAPIGrammar) parseChapter(content, sourceFile string) ([]Record, error) {
	lines := strings.Split(content, "\n")

	category := ""
	for _, line := range lines {
		if m := rustChapterRe.FindStringSubmatch(line); m != nil {
			category = m[1]
			break
		}
	}
	if category == "" {
		return nil, guideerr.ParseError(
			fmt.Sprintf("%s: missing chapter heading", sourceFile), nil)
	}

	fileSlug := strings.TrimSuffix(filepath.Base(sourceFile), ".md")

	var records []Record
	i := 0
	for i < len(lines) {
		anchor := ""
		headerIdx := -1

		if m := rustAnchorRe.FindStringSubmatch(lines[i]); m != nil {
			if i+1 < len(lines) && rustBareHeadRe.MatchString(lines[i+1]) {
				anchor = m[1]
				headerIdx = i + 1
			} else {
				i++
				continue
			}
		} else if rustBareHeadRe.MatchString(lines[i]) {
			headerIdx = i
		} else {
			i++
			continue
		}

		var id, title string
		if m := rustHeadingRe.FindStringSubmatch(lines[headerIdx]); m != nil {
			title, id = m[1], m[2]
		} else {
			// No ID convention in this heading: deterministic fallback
			// keyed on the chapter file and record position.
			title = rustBareHeadRe.FindStringSubmatch(lines[headerIdx])[1]
			id = fmt.Sprintf("%s.%d", fileSlug, len(records)+1)
		}
		if anchor == "" {
			anchor = strings.ToLower(id)
		}

		// The record block starts at the preceding anchor line if present.
		start := headerIdx
		if headerIdx > 0 && rustAnchorRe.MatchString(lines[headerIdx-1]) {
			start = headerIdx - 1
		}

		// Body runs to the next guideline heading (optionally preceded by
		// its anchor line).
		i = headerIdx + 1
		for i < len(lines) {
			if rustBareHeadRe.MatchString(lines[i]) {
				break
			}
			if rustAnchorRe.MatchString(lines[i]) &&
				i+1 < len(lines) && rustBareHeadRe.MatchString(lines[i+1]) {
				break
			}
			i++
		}

		records = append(records, Record{
			ID:           id,
			Title:        title,
			CategoryKey:  category,
			CategoryName: category,
			Anchor:       anchor,
			SourceFile:   sourceFile,
			RawMarkdown:  joinBlock(lines[start:i]),
		})
	}

	return records, nil
}
