package guideline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// CppCoreGrammar parses the single-file C++ Core Guidelines corpus.
//
// The markdown has a deterministic structure:
//   - category headers: `# <a name="..."></a>PREFIX: Category Name`
//   - rule headers:     `### <a name="ANCHOR"></a>RULE_ID: Title`
//   - rule body runs to the next `#`..`###` header; `#####`/`######`
//     sub-sections belong to the rule
//
// The category key of a rule is its ID prefix before the first dot
// ("SL.con.1" -> "SL"). Malformed rule headers are skipped with a warning;
// a skipped rule never aborts the parse.
type CppCoreGrammar struct{}

const cppCoreSourceFile = "CppCoreGuidelines.md"

var (
	cppRuleHeaderRe     = regexp.MustCompile(`^### <a name="([^"]+)">\s*</a>\s*(.+)$`)
	cppCategoryHeaderRe = regexp.MustCompile(`^# <a name="[^"]+">\s*</a>\s*(\S+):\s+(.+)$`)
	cppAnyHeadingRe     = regexp.MustCompile(`^#{1,3} `)
)

func (CppCoreGrammar) Name() string { return "cppcore" }

func (g CppCoreGrammar) Parse(corpusRoot string) ([]Record, error) {
	path := filepath.Join(corpusRoot, cppCoreSourceFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, guideerr.ParseError(fmt.Sprintf("read %s: %v", path, err), err)
	}

	records := g.parseContent(string(data))
	if err := checkDuplicateIDs(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g CppCoreGrammar) parseContent(content string) []Record {
	lines := strings.Split(content, "\n")

	// First pass: category display names from `# <a name=...></a>P: Name`.
	categoryNames := make(map[string]string)
	for _, line := range lines {
		if m := cppCategoryHeaderRe.FindStringSubmatch(line); m != nil {
			categoryNames[m[1]] = m[2]
		}
	}

	var records []Record
	i := 0
	for i < len(lines) {
		m := cppRuleHeaderRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		anchor, rest := m[1], m[2]
		id, title, ok := splitIDTitle(rest)
		if !ok || id == "" {
			slog.Warn("skipping malformed rule header",
				slog.Int("line", i+1),
				slog.String("content", lines[i]))
			i++
			continue
		}

		// Collect the rule body until the next level 1-3 heading.
		start := i
		i++
		for i < len(lines) && !cppAnyHeadingRe.MatchString(lines[i]) {
			i++
		}

		key := cppCategoryKey(id)
		name, okName := categoryNames[key]
		if !okName {
			name = key
		}

		records = append(records, Record{
			ID:           id,
			Title:        title,
			CategoryKey:  key,
			CategoryName: name,
			Anchor:       anchor,
			SourceFile:   cppCoreSourceFile,
			RawMarkdown:  joinBlock(lines[start:i]),
		})
	}

	return records
}

// cppCategoryKey extracts the top-level category prefix from a rule ID:
// "P.1" -> "P", "SL.con.1" -> "SL", "In.0" -> "In".
func cppCategoryKey(id string) string {
	if pos := strings.Index(id, "."); pos >= 0 {
		return id[:pos]
	}
	return id
}
