package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)
	w.Status("🔍", "Checking embedder...")
	assert.Contains(t, buf.String(), "🔍")
	assert.Contains(t, buf.String(), "Checking embedder...")
}

func TestWriter_Success_PrintsCheckmark(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)
	w.Success("Index complete")
	assert.Contains(t, buf.String(), "✓")
}

func TestWriter_Progress_NonFileWriterRendersPercentBar(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf) // *bytes.Buffer is not *os.File, treated as always-terminal per isTerminalWriter
	w.Progress(50, 100, "indexing")
	assert.Contains(t, buf.String(), "50%")
}

func TestWriteResults_JSONAlwaysEmitsArrayEvenWhenEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteResults(buf, nil, RenderOptions{JSON: true})
	require.NoError(t, err)

	var rows []ResultRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Empty(t, rows)
}

func TestWriteResults_CompactOmitsContent(t *testing.T) {
	buf := &bytes.Buffer{}
	rows := []ResultRow{{File: "a.go", Name: "Foo", Content: "func Foo() {}"}}
	require.NoError(t, WriteResults(buf, rows, RenderOptions{JSON: true, Compact: true}))

	var out []ResultRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Content)
}

func TestWriteResults_FilesOnlyDeduplicates(t *testing.T) {
	buf := &bytes.Buffer{}
	rows := []ResultRow{
		{File: "a.go", Name: "Foo"},
		{File: "a.go", Name: "Bar"},
		{File: "b.go", Name: "Baz"},
	}
	require.NoError(t, WriteResults(buf, rows, RenderOptions{FilesOnly: true}))
	assert.Equal(t, "a.go\nb.go\n", buf.String())
}
