package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StampsSchemaAndModel(t *testing.T) {
	m := New("static-hash-v1:f32:128", 1000)
	assert.Equal(t, SchemaVersion, m.SchemaVersion)
	assert.Equal(t, "static-hash-v1:f32:128", m.ModelIdentity)
	assert.Equal(t, int64(1000), m.CreatedAtNS)
	assert.NotNil(t, m.Files)
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := New("static-hash-v1:f32:128", 1000)
	m.Put(FileRecord{RelativePath: "a.go", MTimeNS: 5, ContentHash: "abc", BlockIDs: []string{"id1", "id2"}})

	require.NoError(t, m.Save(dir))
	require.True(t, Exists(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, m.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, m.ModelIdentity, loaded.ModelIdentity)
	assert.Equal(t, []string{"id1", "id2"}, loaded.Files["a.go"].BlockIDs)
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	m := New("m", 1)
	require.NoError(t, m.Save(dir))

	matches, err := filepath.Glob(filepath.Join(dir, ".manifest-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNeedsRebuild_SchemaMismatch(t *testing.T) {
	m := New("model-a", 1)
	m.SchemaVersion = SchemaVersion + 1
	needs, reason := m.NeedsRebuild("model-a")
	assert.True(t, needs)
	assert.Contains(t, reason, "schema version")
}

func TestNeedsRebuild_ModelMismatch(t *testing.T) {
	m := New("model-a", 1)
	needs, reason := m.NeedsRebuild("model-b")
	assert.True(t, needs)
	assert.Contains(t, reason, "model identity")
}

func TestNeedsRebuild_MatchingIsFalse(t *testing.T) {
	m := New("model-a", 1)
	needs, _ := m.NeedsRebuild("model-a")
	assert.False(t, needs)
}

func TestRemove_ReturnsBlockIDsAndDeletes(t *testing.T) {
	m := New("model-a", 1)
	m.Put(FileRecord{RelativePath: "a.go", BlockIDs: []string{"x", "y"}})

	ids := m.Remove("a.go")
	assert.Equal(t, []string{"x", "y"}, ids)
	_, ok := m.Files["a.go"]
	assert.False(t, ok)
}

func TestRemove_UnknownPathReturnsNil(t *testing.T) {
	m := New("model-a", 1)
	assert.Nil(t, m.Remove("missing.go"))
}

func TestBlockCount_SumsAcrossFiles(t *testing.T) {
	m := New("model-a", 1)
	m.Put(FileRecord{RelativePath: "a.go", BlockIDs: []string{"1", "2"}})
	m.Put(FileRecord{RelativePath: "b.go", BlockIDs: []string{"3"}})
	assert.Equal(t, 3, m.BlockCount())
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash([]byte("hello"))
	h2 := ContentHash([]byte("hello"))
	h3 := ContentHash([]byte("world"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestLoad_MissingManifestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}
