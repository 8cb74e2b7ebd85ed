package embed

import "time"

const (
	DefaultOllamaHost  = "http://127.0.0.1:11434"
	DefaultOllamaModel = "embeddinggemma"

	OllamaConnectTimeout = 5 * time.Second
	OllamaPoolSize       = 4
)

// FallbackOllamaModels are tried, in order, if the primary model isn't
// pulled locally.
var FallbackOllamaModels = []string{"nomic-embed-text", "mxbai-embed-large"}

// OllamaConfig configures OllamaEmbedder.
type OllamaConfig struct {
	Host           string
	Model          string
	FallbackModels []string
	Dimensions     int
	BatchSize      int
	MaxRetries     int
	PoolSize       int

	// SkipHealthCheck skips the startup model-discovery round trip, for
	// tests that construct an OllamaEmbedder against a fake server with
	// a fixed model name already known.
	SkipHealthCheck bool
}

func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:           DefaultOllamaHost,
		Model:          DefaultOllamaModel,
		FallbackModels: FallbackOllamaModels,
		Dimensions:     TokenDimensions,
		BatchSize:      DefaultBatchSize,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       OllamaPoolSize,
	}
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaModelListResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

type ollamaModelInfo struct {
	Name string `json:"name"`
}
