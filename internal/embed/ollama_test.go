package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllamaServer(t *testing.T, model string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaModelListResponse{Models: []ollamaModelInfo{{Name: model}}})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n int
		switch v := req.Input.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}
		embeddings := make([][]float64, n)
		for i := range embeddings {
			embeddings[i] = []float64{1, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: model, Embeddings: embeddings})
	})
	return httptest.NewServer(mux)
}

func TestOllamaEmbedder_EmbedBatchSplitsAcrossTexts(t *testing.T) {
	srv := fakeOllamaServer(t, "test-model")
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Model = "test-model"

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	out, err := e.EmbedBatch(context.Background(), []string{"hello world", "second text here"}, ModeDocument)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Greater(t, len(out[0]), 0)
	assert.Greater(t, len(out[1]), 0)
}

func TestOllamaEmbedder_FindsFallbackModel(t *testing.T) {
	srv := fakeOllamaServer(t, FallbackOllamaModels[0])
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Model = "not-installed"

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, FallbackOllamaModels[0], e.ModelName())
}

func TestOllamaEmbedder_NoModelAvailableErrors(t *testing.T) {
	srv := fakeOllamaServer(t, "unrelated-model")
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Model = "missing"
	cfg.FallbackModels = []string{}

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	assert.Error(t, err)
}
