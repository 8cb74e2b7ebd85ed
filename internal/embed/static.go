package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/corelens/corelens/internal/lexer"
)

// StaticEmbedder produces deterministic, hash-based per-token vectors
// with no network dependency or model download, for offline use and
// for tests that need reproducible embeddings.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

func (e *StaticEmbedder) EmbedBatch(_ context.Context, texts []string, mode Mode) ([][]TokenVector, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	out := make([][]TokenVector, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text, mode)
	}
	return out, nil
}

func (e *StaticEmbedder) embedOne(text string, mode Mode) []TokenVector {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	tokens := lexer.Tokenize(trimmed)
	if len(tokens) > PerTextTokenCap {
		tokens = tokens[:PerTextTokenCap]
	}
	if len(tokens) == 0 {
		tokens = []string{trimmed}
	}

	prefix := "doc"
	if mode == ModeQuery {
		prefix = "query"
	}

	out := make([]TokenVector, len(tokens))
	for i, tok := range tokens {
		out[i] = normalizeVector(hashVector(prefix, tok, i))
	}
	return out
}

// hashVector derives a deterministic vector for a token from a family
// of FNV hashes seeded by (prefix, token, dimension index, position),
// so distinct tokens land in distinct directions and repeated tokens
// at different positions still contribute comparable vectors.
func hashVector(prefix, token string, position int) []float32 {
	v := make([]float32, TokenDimensions)
	for d := 0; d < TokenDimensions; d++ {
		h := fnv.New64a()
		fmt.Fprintf(h, "%s:%s:%d:%d", prefix, token, d, position%8)
		sum := h.Sum64()
		// Map the hash into [-1, 1).
		v[d] = float32(sum%2000)/1000.0 - 1.0
	}
	return v
}

func (e *StaticEmbedder) Dimensions() int { return TokenDimensions }

func (e *StaticEmbedder) ModelName() string { return "static-hash-v1" }

func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
