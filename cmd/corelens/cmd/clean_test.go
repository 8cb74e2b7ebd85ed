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

func TestCleanCmd_NoIndex(t *testing.T) {
	// Given: a directory with no index anywhere above it
	tmpDir := t.TempDir()

	// When: running clean against it
	cmd := newCleanCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{tmpDir})
	err := cmd.Execute()

	// Then: it errors with no index found
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestCleanCmd_RemovesIndexAtRoot(t *testing.T) {
	// Given: a directory that is itself an index root
	tmpDir := t.TempDir()
	indexDir := filepath.Join(tmpDir, ".corelens")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(indexDir, "manifest"), []byte("{}"), 0o644))

	// When: running clean directly on the index root
	cmd := newCleanCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})
	err := cmd.Execute()

	// Then: the whole marker directory is removed
	require.NoError(t, err)
	_, statErr := os.Stat(indexDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCleanCmd_RemovesSubtreeBlocksOnly(t *testing.T) {
	// Given: an index at the parent with files both inside and outside
	// the subtree being cleaned
	root := t.TempDir()
	indexDir := filepath.Join(root, ".corelens")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))
	sub := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	mf := manifest.New("static-hash-v1:f32:128", 1000)
	mf.Put(manifest.FileRecord{RelativePath: "pkg/sub/a.go", BlockIDs: nil})
	mf.Put(manifest.FileRecord{RelativePath: "other/b.go", BlockIDs: nil})
	require.NoError(t, mf.Save(indexDir))

	// When: running clean scoped to the subtree
	cmd := newCleanCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{sub})
	err := cmd.Execute()

	// Then: only the subtree's file record is dropped, the index itself survives
	require.NoError(t, err)
	reloaded, loadErr := manifest.Load(indexDir)
	require.NoError(t, loadErr)
	_, hasSub := reloaded.Files["pkg/sub/a.go"]
	_, hasOther := reloaded.Files["other/b.go"]
	assert.False(t, hasSub)
	assert.True(t, hasOther)
}

func TestCleanCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: looking up the clean subcommand
	found, _, err := root.Find([]string{"clean"})

	// Then: it is registered
	require.NoError(t, err)
	assert.Equal(t, "clean", found.Name())
}
