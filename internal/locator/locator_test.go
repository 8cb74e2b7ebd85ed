package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkIndex(t *testing.T, root, markerDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, markerDir), 0o755))
}

func TestFindParent_FindsIndexAtStartPath(t *testing.T) {
	root := t.TempDir()
	mkIndex(t, root, ".corelens")

	loc, ok, err := FindParent(root, ".corelens")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, loc.Root)
}

func TestFindParent_WalksUpward(t *testing.T) {
	root := t.TempDir()
	mkIndex(t, root, ".corelens")
	sub := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	loc, ok, err := FindParent(sub, ".corelens")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, loc.Root)
}

func TestFindParent_NoneFound(t *testing.T) {
	root := t.TempDir()
	_, ok, err := FindParent(root, ".corelens")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckNoParent_RefusesUnderExistingIndex(t *testing.T) {
	root := t.TempDir()
	mkIndex(t, root, ".corelens")
	sub := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	err := CheckNoParent(sub, ".corelens")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_401")
}

func TestCheckNoParent_AllowsWhenNoParent(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, CheckNoParent(root, ".corelens"))
}

func TestCheckNoParent_AllowsRebuildingSamePath(t *testing.T) {
	root := t.TempDir()
	mkIndex(t, root, ".corelens")
	assert.NoError(t, CheckNoParent(root, ".corelens"))
}

func TestFindSubordinates_DiscoversNestedIndexes(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "api")
	mkIndex(t, nested, ".corelens")

	subs, err := FindSubordinates(root, ".corelens")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, nested, subs[0].Root)
	assert.Equal(t, "services/api", subs[0].RelativeTo)
}

func TestFindSubordinates_DoesNotDescendPastFoundIndex(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "api")
	mkIndex(t, nested, ".corelens")
	deeplyNested := filepath.Join(nested, "internal")
	mkIndex(t, deeplyNested, ".corelens")

	subs, err := FindSubordinates(root, ".corelens")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestJoinRelative(t *testing.T) {
	assert.Equal(t, "src/a.go", JoinRelative("src", "a.go"))
	assert.Equal(t, "a.go", JoinRelative("", "a.go"))
	assert.Equal(t, "a.go", JoinRelative(".", "a.go"))
}
