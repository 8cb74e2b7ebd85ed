package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_AutoBuildsAndFindsMatch(t *testing.T) {
	// Given: a project with no index yet, and auto-build enabled
	t.Setenv("CORELENS_AUTO_BUILD", "1")
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "user.go"), "package user\n\nfunc ValidateEmail(s string) bool {\n\treturn true\n}\n")

	// When: searching for the function by name
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", "ValidateEmail", root})
	err := cmd.Execute()

	// Then: it auto-builds the index and returns the match first
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, "ValidateEmail", rows[0]["name"])
}

func TestSearchCmd_NoResultsReturnsSentinelError(t *testing.T) {
	// Given: a project indexed on first search, with no file of the
	// extension the search filters on
	t.Setenv("CORELENS_AUTO_BUILD", "1")
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\nfunc Compute() int { return 1 }\n")

	// When: searching with an extension filter that excludes every file
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--type", ".nonexistent", "Compute", root})
	err := cmd.Execute()

	// Then: it reports ErrNoResults rather than a hard failure
	require.ErrorIs(t, err, ErrNoResults)
}

func TestSearchCmd_CompactOmitsContent(t *testing.T) {
	// Given: a project indexed on first search
	t.Setenv("CORELENS_AUTO_BUILD", "1")
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\nfunc Compute() int { return 1 }\n")

	// When: searching with --compact --json
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", "--compact", "Compute", root})
	err := cmd.Execute()

	// Then: rows carry no content field value
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.NotEmpty(t, rows)
	_, hasContent := rows[0]["content"]
	assert.False(t, hasContent)
}

func TestSearchCmd_FilesOnlyDeduplicates(t *testing.T) {
	// Given: a file with two matching blocks, indexed on first search
	t.Setenv("CORELENS_AUTO_BUILD", "1")
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc ComputeA() int { return 1 }\n\nfunc ComputeB() int { return 2 }\n")

	// When: searching with --files-only
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-l", "Compute", root})
	err := cmd.Execute()

	// Then: the file path is printed once
	require.NoError(t, err)
	lines := 0
	for _, b := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(b) > 0 {
			lines++
		}
	}
	assert.Equal(t, 1, lines)
}

func TestSearchCmd_ScopeFlagFiltersToSubtree(t *testing.T) {
	// Given: an indexed project with matching blocks both inside and
	// outside the subtree named by --scope
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "pkg", "foo", "foo.go"), "package foo\nfunc DoFoo() {}\n")
	writeTestFile(t, filepath.Join(root, "pkg", "bar", "bar.go"), "package bar\nfunc DoBar() {}\n")

	build := newBuildCmd()
	build.SetOut(&bytes.Buffer{})
	build.SetArgs([]string{root})
	require.NoError(t, build.Execute())

	// When: searching with --scope restricted to pkg/foo
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", "--scope", filepath.Join(root, "pkg", "foo"), "Do", root})
	err := cmd.Execute()

	// Then: every result's file is under pkg/foo
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Contains(t, r["file"], "pkg/foo")
	}
}

func TestSearchCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: looking up the search subcommand
	found, _, err := root.Find([]string{"search"})

	// Then: it is registered
	require.NoError(t, err)
	assert.Equal(t, "search", found.Name())
}
