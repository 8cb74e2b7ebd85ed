package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_OneVectorPerToken(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	out, err := e.EmbedBatch(context.Background(), []string{"getUserName returns a user"}, ModeDocument)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Greater(t, len(out[0]), 0)
	for _, tok := range out[0] {
		assert.Len(t, tok, TokenDimensions)
	}
}

func TestStaticEmbedder_DeterministicAcrossCalls(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	a, err := e.EmbedBatch(context.Background(), []string{"hello world"}, ModeDocument)
	require.NoError(t, err)
	b, err := e.EmbedBatch(context.Background(), []string{"hello world"}, ModeDocument)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStaticEmbedder_EmptyTextYieldsNoVectors(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	out, err := e.EmbedBatch(context.Background(), []string{"   "}, ModeDocument)
	require.NoError(t, err)
	assert.Empty(t, out[0])
}

func TestStaticEmbedder_ClosedRejectsRequests(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.EmbedBatch(context.Background(), []string{"text"}, ModeDocument)
	assert.Error(t, err)
}

func TestStaticEmbedder_TruncatesAtTokenCap(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	text := ""
	for i := 0; i < PerTextTokenCap+50; i++ {
		text += "word "
	}
	out, err := e.EmbedBatch(context.Background(), []string{text}, ModeDocument)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out[0]), PerTextTokenCap)
}
