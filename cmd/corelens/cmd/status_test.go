package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/corelens/internal/manifest"
)

func TestStatusCmd_NoIndex(t *testing.T) {
	// Given: a directory with no index
	tmpDir := t.TempDir()

	// When: running status against it
	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{tmpDir})
	err := cmd.Execute()

	// Then: it errors with no index found
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestStatusCmd_PlainOutput(t *testing.T) {
	// Given: a directory with a manifest already built
	tmpDir := t.TempDir()
	indexDir := filepath.Join(tmpDir, ".corelens")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))

	mf := manifest.New("static-hash-v1:f32:128", 1000)
	mf.Put(manifest.FileRecord{RelativePath: "a.go", BlockIDs: []string{"b1", "b2"}})
	require.NoError(t, mf.Save(indexDir))

	// When: running status without --json
	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})
	err := cmd.Execute()

	// Then: it prints the file/block counts and model identity
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "files:          1")
	assert.Contains(t, out, "blocks:         2")
	assert.Contains(t, out, "static-hash-v1:f32:128")
}

func TestStatusCmd_JSONOutput(t *testing.T) {
	// Given: a directory with a manifest already built
	tmpDir := t.TempDir()
	indexDir := filepath.Join(tmpDir, ".corelens")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))

	mf := manifest.New("static-hash-v1:f32:128", 1000)
	mf.Put(manifest.FileRecord{RelativePath: "a.go", BlockIDs: []string{"b1"}})
	require.NoError(t, mf.Save(indexDir))

	// When: running status with --json
	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", tmpDir})
	err := cmd.Execute()

	// Then: output decodes with the expected fields
	require.NoError(t, err)
	var info statusInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, 1, info.FileCount)
	assert.Equal(t, 1, info.BlockCount)
	assert.Equal(t, "static-hash-v1:f32:128", info.ModelIdentity)
}

func TestStatusCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: looking up the status subcommand
	found, _, err := root.Find([]string{"status"})

	// Then: it is registered
	require.NoError(t, err)
	assert.Equal(t, "status", found.Name())
}
