package embed

import (
	"context"
	"math"
	"time"
)

const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 32

	// DefaultWarmTimeout is used once a provider has already served a
	// request recently (within ModelUnloadThreshold).
	DefaultWarmTimeout = 30 * time.Second
	// DefaultColdTimeout covers the first request, when a local model
	// server may still need to load weights.
	DefaultColdTimeout = 120 * time.Second
	// ModelUnloadThreshold is how long a provider can sit idle before a
	// request is treated as cold again.
	ModelUnloadThreshold = 5 * time.Minute

	DefaultMaxRetries = 3

	// PerTextTokenCap bounds how many token vectors a single block
	// contributes, so one pathological file (a minified bundle, a huge
	// generated table) can't blow up memory or a MaxSim comparison.
	PerTextTokenCap = 256

	// TokenDimensions is the per-token vector width used by every
	// embedder in this package, so token matrices from different
	// providers stay comparable dimension-wise within one index.
	TokenDimensions = 128
)

// Mode distinguishes how a batch of texts is being embedded: documents
// being indexed vs. a query being searched. Providers that apply
// asymmetric instructions (e.g. "query: " / "passage: " prefixes)
// branch on this.
type Mode int

const (
	ModeDocument Mode = iota
	ModeQuery
)

// TokenVector is one token's embedding within a Block's token matrix.
type TokenVector []float32

// Embedder produces a per-token embedding matrix for each input text,
// the multi-vector representation MaxSim late-interaction scoring
// needs (see internal/vectorstore).
type Embedder interface {
	// EmbedBatch returns one token matrix per input text, in order.
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]TokenVector, error)

	// Dimensions returns the width of every TokenVector this embedder
	// produces.
	Dimensions() int

	// ModelName identifies the embedding model, persisted into the
	// manifest's model_identity so a model change forces a rebuild.
	ModelName() string

	// Available reports whether the embedder can currently serve
	// requests (e.g. whether a local provider is reachable).
	Available(ctx context.Context) bool

	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
