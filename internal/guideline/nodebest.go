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

// NodeBestGrammar parses the Node.js Best Practices corpus, a single
// README.md where categories are `# 1. Category Name` headings (sometimes
// wrapped in backticks) and guidelines are `## ![✔] 1.1 Title` headings.
//
// The source document carries no per-rule HTML anchors, so the anchor is
// synthesized GitHub-style from the numeric ID and the slugified title.
type NodeBestGrammar struct{}

const nodeBestReadme = "README.md"

var (
	nodeCategoryRe  = regexp.MustCompile("^#\\s+`?(\\d+)\\.\\s+(.+?)`?\\s*$")
	nodeGuidelineRe = regexp.MustCompile(`^##\s+!\[✔\]\s+(\d+(?:\.\d+)+)\s+(.+?)\s*$`)
)

func (NodeBestGrammar) Name() string { return "nodebest" }

func (g NodeBestGrammar) Parse(corpusRoot string) ([]Record, error) {
	// Some mirrors nest the corpus one directory down.
	path := filepath.Join(corpusRoot, nodeBestReadme)
	if _, err := os.Stat(path); err != nil {
		nested := filepath.Join(corpusRoot, "nodebestpractices", nodeBestReadme)
		if _, nerr := os.Stat(nested); nerr == nil {
			path = nested
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, guideerr.ParseError(fmt.Sprintf("read %s: %v", path, err), err)
	}

	records := g.parseContent(string(data), nodeBestReadme)
	if err := checkDuplicateIDs(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g NodeBestGrammar) parseContent(content, sourceFile string) []Record {
	lines := strings.Split(content, "\n")

	var records []Record
	currentKey := ""
	currentName := ""

	i := 0
	for i < len(lines) {
		if m := nodeCategoryRe.FindStringSubmatch(lines[i]); m != nil {
			currentKey, currentName = m[1], strings.TrimSpace(m[2])
			i++
			continue
		}

		m := nodeGuidelineRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		id, title := m[1], strings.TrimSpace(m[2])

		// Category: the enclosing `# N.` heading, falling back to the ID's
		// leading component, then to the synthetic Uncategorized bucket.
		key, name := currentKey, currentName
		if key == "" {
			if pos := strings.Index(id, "."); pos > 0 {
				key, name = id[:pos], id[:pos]
			} else {
				key, name = UncategorizedKey, UncategorizedName
			}
		}

		start := i
		i++
		for i < len(lines) &&
			!nodeGuidelineRe.MatchString(lines[i]) &&
			!nodeCategoryRe.MatchString(lines[i]) {
			i++
		}

		records = append(records, Record{
			ID:           id,
			Title:        title,
			CategoryKey:  key,
			CategoryName: name,
			Anchor:       nodeAnchor(id, title),
			SourceFile:   sourceFile,
			RawMarkdown:  joinBlock(lines[start:i]),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// nodeAnchor synthesizes the GitHub heading anchor for `## ![✔] 1.1 Title`:
// the image link collapses, leaving "-11-slug-of-title".
func nodeAnchor(id, title string) string {
	var digits strings.Builder
	for _, ch := range id {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	return fmt.Sprintf("-%s-%s", digits.String(), slugify(title))
}
