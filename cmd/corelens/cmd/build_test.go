package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/corelens/internal/manifest"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildCmd_CreatesIndexAndReportsSummary(t *testing.T) {
	// Given: a small Go project with no index yet
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc Add(x, y int) int {\n\treturn x + y\n}\n")

	// When: running build against it
	cmd := newBuildCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{root})
	err := cmd.Execute()

	// Then: it succeeds, writes a manifest, and reports a non-zero count
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "indexed 1 files")

	mf, loadErr := manifest.Load(filepath.Join(root, ".corelens"))
	require.NoError(t, loadErr)
	assert.Contains(t, mf.Files, "a.go")
}

func TestBuildCmd_ForceAllowsBuildUnderParent(t *testing.T) {
	// Given: an existing index at root and an unindexed subdirectory
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\nfunc F() {}\n")

	buildCmd := newBuildCmd()
	buildCmd.SetOut(&bytes.Buffer{})
	buildCmd.SetArgs([]string{root})
	require.NoError(t, buildCmd.Execute())

	sub := filepath.Join(root, "vendor")
	writeTestFile(t, filepath.Join(sub, "b.go"), "package vendor\nfunc G() {}\n")

	// When: building the subdirectory without --force
	refused := newBuildCmd()
	refused.SetOut(&bytes.Buffer{})
	refused.SetArgs([]string{sub})
	err := refused.Execute()

	// Then: it refuses, citing the parent index
	require.Error(t, err)

	// When: retried with --force
	forced := newBuildCmd()
	forcedBuf := &bytes.Buffer{}
	forced.SetOut(forcedBuf)
	forced.SetArgs([]string{"--force", sub})
	err = forced.Execute()

	// Then: it succeeds
	require.NoError(t, err)
}

func TestBuildCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: looking up the build subcommand
	found, _, err := root.Find([]string{"build"})

	// Then: it is registered
	require.NoError(t, err)
	assert.Equal(t, "build", found.Name())
}
