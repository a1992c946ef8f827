package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamiliesCmd_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath = ""

	cmd := newFamiliesCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "cpp")
	assert.Contains(t, output, "rust-api")
	assert.Contains(t, output, "nodejs")
	assert.Contains(t, output, "C++ Core Guidelines")
}

func TestFamiliesCmd_JSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath = ""

	cmd := newFamiliesCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	require.NoError(t, cmd.Execute())

	var out []familyInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 3)
	assert.Equal(t, "cpp", out[0].Key)
	assert.Equal(t, "cppcore", out[0].Grammar)
	assert.NotEmpty(t, out[0].Checkout)
}

func TestFamiliesCmd_ConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "guidemcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: `+dir+`
families:
  - key: cpp
    name: C++ Core Guidelines
    upstream: https://example.com/cpp.git
    grammar: cppcore
`), 0o644))

	configPath = path
	t.Cleanup(func() { configPath = "" })

	cmd := newFamiliesCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	require.NoError(t, cmd.Execute())

	var out []familyInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "https://example.com/cpp.git", out[0].Upstream)
}
