package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/corelens/internal/blocks"
)

func TestProseExtractor_ExtractsFencedCodeBlock(t *testing.T) {
	src := []byte("# Title\n\nSome intro text.\n\n```go\nfunc f() {}\n```\n\nMore text.\n")

	e := NewProseExtractor()
	got, err := e.Extract("README.md", src, blocks.LanguageMarkdown)
	require.NoError(t, err)

	var fence *blocks.Block
	for _, b := range got {
		if b.Kind == blocks.KindOther {
			fence = b
		}
	}
	require.NotNil(t, fence)
	assert.Equal(t, "go code block", fence.Name)
	assert.Contains(t, fence.Content, "func f()")
}

func TestProseExtractor_HeadingSplitsSections(t *testing.T) {
	src := []byte("# First\n\nbody one\n\n# Second\n\nbody two\n")

	e := NewProseExtractor()
	got, err := e.Extract("doc.md", src, blocks.LanguageMarkdown)
	require.NoError(t, err)

	titles := map[string]bool{}
	for _, b := range got {
		titles[b.Name] = true
	}
	assert.True(t, titles["First"])
	assert.True(t, titles["Second"])
}

func TestProseExtractor_NestedHeadingsChainName(t *testing.T) {
	src := []byte("# A\n\nintro\n\n## B\n\nbody\n")

	e := NewProseExtractor()
	got, err := e.Extract("doc.md", src, blocks.LanguageMarkdown)
	require.NoError(t, err)

	titles := map[string]bool{}
	for _, b := range got {
		titles[b.Name] = true
	}
	assert.True(t, titles["A"])
	assert.True(t, titles["A > B"])
}

func TestProseExtractor_SiblingSubsectionsDontChainAcrossEachOther(t *testing.T) {
	src := []byte("# A\n\n## B\n\nbody b\n\n## C\n\nbody c\n")

	e := NewProseExtractor()
	got, err := e.Extract("doc.md", src, blocks.LanguageMarkdown)
	require.NoError(t, err)

	titles := map[string]bool{}
	for _, b := range got {
		titles[b.Name] = true
	}
	assert.True(t, titles["A > B"])
	assert.True(t, titles["A > C"])
	assert.False(t, titles["A > B > C"])
}

func TestProseExtractor_SplitsLongSectionWithOverlap(t *testing.T) {
	long := strings.Repeat("word ", 3000)
	src := []byte("# Big\n\n" + long)

	e := NewProseExtractor()
	got, err := e.Extract("big.md", src, blocks.LanguageMarkdown)
	require.NoError(t, err)

	assert.Greater(t, len(got), 1)
}

func TestProseExtractor_PlainTextWholeFile(t *testing.T) {
	src := []byte("line one\nline two\nline three\n")

	e := NewProseExtractor()
	got, err := e.Extract("notes.txt", src, blocks.LanguageText)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, blocks.KindTextChunk, got[0].Kind)
}
