package walker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelativePath
	}
	return out
}

func TestScan_HonorsDefaultIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "node_modules/pkg/index.js", "console.log(1)")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main")

	w, err := New()
	require.NoError(t, err)
	entries, err := w.Scan(Options{RootDir: dir})
	require.NoError(t, err)

	assert.Contains(t, relPaths(entries), "main.go")
	for _, p := range relPaths(entries) {
		assert.NotContains(t, p, "node_modules")
		assert.NotContains(t, p, ".git/")
	}
}

func TestScan_HonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "secrets/\n*.log\n")
	writeFile(t, dir, "secrets/token.go", "package secrets")
	writeFile(t, dir, "app.log", "log line")
	writeFile(t, dir, "main.go", "package main")

	w, err := New()
	require.NoError(t, err)
	entries, err := w.Scan(Options{RootDir: dir})
	require.NoError(t, err)

	paths := relPaths(entries)
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "secrets/token.go")
	assert.NotContains(t, paths, "app.log")
}

func TestScan_RespectsMaxFileSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", string(make([]byte, 2048)))
	writeFile(t, dir, "small.go", "package main")

	w, err := New()
	require.NoError(t, err)
	entries, err := w.Scan(Options{RootDir: dir, MaxFileSize: 1024})
	require.NoError(t, err)

	paths := relPaths(entries)
	assert.Contains(t, paths, "small.go")
	assert.NotContains(t, paths, "big.go")
}

func TestScan_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "readme.md", "# hi")

	w, err := New()
	require.NoError(t, err)
	entries, err := w.Scan(Options{RootDir: dir, Extensions: []string{".go"}})
	require.NoError(t, err)

	paths := relPaths(entries)
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "readme.md")
}

func TestScanMetadata_MatchesScanSizes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")

	w, err := New()
	require.NoError(t, err)
	meta, err := w.ScanMetadata(Options{RootDir: dir})
	require.NoError(t, err)

	require.Contains(t, meta, "main.go")
	assert.Equal(t, int64(len("package main")), meta["main.go"].Size)
}

func TestScan_SkipsCyclicSymlink(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.Symlink(dir, filepath.Join(sub, "loop")))

	w, err := New()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = w.Scan(Options{RootDir: dir, FollowSymlinks: true})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scan did not terminate — likely infinite symlink recursion")
	}
}
