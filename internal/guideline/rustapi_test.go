package guideline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

const rustNamingChapter = `# Naming

Crate-level conventions.

<a id="c-case"></a>
## Casing conforms to RFC 430 (C-CASE)

Basic Rust naming conventions are described in RFC 430.

In general, Rust tends to use UpperCamelCase for type-level constructs.

<a id="c-conv"></a>
## Ad-hoc conversions follow as_, to_, into_ conventions (C-CONV)

Conversions should be provided as methods.
`

// writeRustCorpus lays out a minimal book: the requested chapters carry the
// given content, every other expected chapter file is an empty stub with just
// a chapter heading.
func writeRustCorpus(t *testing.T, chapters map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	for _, rel := range rustCategoryFiles {
		content, ok := chapters[rel]
		if !ok {
			name := strings.TrimSuffix(filepath.Base(rel), ".md")
			content = "# " + name + "\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), []byte(content), 0o644))
	}
	return dir
}

func TestRustAPIGrammar_ParseChapter(t *testing.T) {
	root := writeRustCorpus(t, map[string]string{"src/naming.md": rustNamingChapter})

	records, err := RustAPIGrammar{}.Parse(root)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by ID: C-CASE before C-CONV.
	caseRec := records[0]
	assert.Equal(t, "C-CASE", caseRec.ID)
	assert.Equal(t, "Casing conforms to RFC 430", caseRec.Title)
	assert.Equal(t, "c-case", caseRec.Anchor)
	assert.Equal(t, "Naming", caseRec.CategoryKey)
	assert.Equal(t, "Naming", caseRec.CategoryName)
	assert.Equal(t, "src/naming.md", caseRec.SourceFile)
	assert.Contains(t, caseRec.RawMarkdown, "RFC 430")
	assert.Contains(t, caseRec.RawMarkdown, `<a id="c-case"></a>`)
	assert.NotContains(t, caseRec.RawMarkdown, "Conversions should be provided")

	convRec := records[1]
	assert.Equal(t, "C-CONV", convRec.ID)
	assert.Equal(t, "Ad-hoc conversions follow as_, to_, into_ conventions", convRec.Title)
	assert.Equal(t, "c-conv", convRec.Anchor)
}

func TestRustAPIGrammar_FallbackIDForBareHeading(t *testing.T) {
	root := writeRustCorpus(t, map[string]string{"src/necessities.md": `# Necessities

## Public dependencies are stable

A crate's public API must not leak unstable types.

<a id="c-stable"></a>
## Crate and its dependencies have a permissive license (C-PERMISSIVE)

Licensing body.
`})

	records, err := RustAPIGrammar{}.Parse(root)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "C-PERMISSIVE", records[0].ID)

	fallback := records[1]
	assert.Equal(t, "necessities.1", fallback.ID)
	assert.Equal(t, "Public dependencies are stable", fallback.Title)
	assert.Equal(t, "necessities.1", fallback.Anchor)
	assert.Equal(t, "Necessities", fallback.CategoryKey)
}

func TestRustAPIGrammar_MissingChapterHeading(t *testing.T) {
	root := writeRustCorpus(t, map[string]string{"src/macros.md": "No heading, just prose.\n"})

	_, err := RustAPIGrammar{}.Parse(root)
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeParseFailed, guideerr.GetCode(err))
	assert.Contains(t, err.Error(), "macros.md")
}

func TestRustAPIGrammar_MissingChapterFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	_, err := RustAPIGrammar{}.Parse(dir)
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeParseFailed, guideerr.GetCode(err))
}

func TestRustAPIGrammar_SortedAcrossChapters(t *testing.T) {
	root := writeRustCorpus(t, map[string]string{
		"src/naming.md": `# Naming

<a id="c-word-order"></a>
## Names use a consistent word order (C-WORD-ORDER)

Body.
`,
		"src/debuggability.md": `# Debuggability

<a id="c-debug"></a>
## All public types implement Debug (C-DEBUG)

Body.
`,
	})

	records, err := RustAPIGrammar{}.Parse(root)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "C-DEBUG", records[0].ID)
	assert.Equal(t, "C-WORD-ORDER", records[1].ID)
}
