package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/embed"
	"github.com/corelens/corelens/internal/vectorstore"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestSearcher(t *testing.T) *Searcher {
	t.Helper()
	cfg := config.Default()
	s, err := New(cfg, embed.NewStaticEmbedder())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSearch_FindsExactNameMatchFirst(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "user.go"), "package user\n\nfunc ValidateEmail(s string) bool {\n\treturn true\n}\n\nfunc ParseConfig(path string) error {\n\treturn nil\n}\n")

	s := newTestSearcher(t)
	_, err := s.idx.Build(context.Background(), root, false)
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "ValidateEmail", root, 5, "", false)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "ValidateEmail", hits[0].Name)
}

func TestSearch_AutoBuildCreatesIndexWhenMissing(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\nfunc Compute() int { return 1 }\n")

	s := newTestSearcher(t)
	_, err := s.Search(context.Background(), "Compute", root, 5, "", true)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, ".corelens"))
}

func TestSearch_WithoutAutoBuildReturnsIndexMissing(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\nfunc Compute() int { return 1 }\n")

	s := newTestSearcher(t)
	_, err := s.Search(context.Background(), "Compute", root, 5, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_201")
}

func TestSearch_ScopeFiltersToPathPrefix(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "pkg", "foo", "foo.go"), "package foo\nfunc DoFoo() {}\n")
	writeTestFile(t, filepath.Join(root, "pkg", "bar", "bar.go"), "package bar\nfunc DoBar() {}\n")

	s := newTestSearcher(t)
	_, err := s.idx.Build(context.Background(), root, false)
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "Do", root, 10, filepath.Join(root, "pkg", "foo"), false)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Contains(t, h.RelativePath, "pkg/foo")
	}
}

func TestFindSimilar_ExcludesSameFile(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc Add(x, y int) int { return x + y }\n\nfunc Sum(x, y int) int { return x + y }\n")
	writeTestFile(t, filepath.Join(root, "b.go"), "package a\n\nfunc Plus(x, y int) int { return x + y }\n")

	s := newTestSearcher(t)
	_, err := s.idx.Build(context.Background(), root, false)
	require.NoError(t, err)

	ref, err := ParseBlockRef("a.go#Add")
	require.NoError(t, err)

	hits, err := s.FindSimilar(context.Background(), ref, root, 5)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "a.go", h.RelativePath)
	}
}

func TestParseBlockRef_NameAndLineForms(t *testing.T) {
	ref, err := ParseBlockRef("src/a.go#Handler")
	require.NoError(t, err)
	assert.Equal(t, "src/a.go", ref.RelativePath)
	assert.Equal(t, "Handler", ref.Name)

	ref, err = ParseBlockRef("src/a.go:42")
	require.NoError(t, err)
	assert.Equal(t, "src/a.go", ref.RelativePath)
	assert.Equal(t, 42, ref.Line)

	_, err = ParseBlockRef("nopunctuation")
	require.Error(t, err)
}

func TestMergeCandidates_KeepsHigherScoreAndItsMetadata(t *testing.T) {
	c1 := []vectorstore.Result{{ID: "x", Score: 1.0, Metadata: map[string]string{"name": "fromC1"}}}
	c2 := []vectorstore.Result{{ID: "x", Score: 2.0, Metadata: map[string]string{"name": "fromC2"}}}

	merged := mergeCandidates(c1, c2)
	require.Contains(t, merged, "x")
	assert.Equal(t, 2.0, merged["x"].score)
	assert.Equal(t, "fromC2", merged["x"].metadata["name"])
}
