// Package indexer orchestrates the build and incremental-update
// pipelines: walk -> extract (parallel) -> sort-by-length -> embed
// (batched) -> vector-store write -> manifest write. It also resolves
// the index hierarchy (parent refusal, subordinate merge-in) before a
// fresh build.
package indexer

import (
	"fmt"
	"log/slog"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/embed"
	"github.com/corelens/corelens/internal/extract"
	"github.com/corelens/corelens/internal/vectorstore"
	"github.com/corelens/corelens/internal/walker"
)

// ProgressFunc receives progress events during a long-running build or
// update. phase is one of "walk", "extract", "embed".
type ProgressFunc func(phase string, current, total int)

func noopProgress(string, int, int) {}

// Indexer wires together the pipeline stages. One Indexer can run
// builds and updates against any number of target paths; it holds no
// per-target state itself.
type Indexer struct {
	cfg        *config.Config
	embedder   embed.Embedder
	extractor  *extract.Extractor
	walker     *walker.Walker
	onProgress ProgressFunc
}

// New constructs an Indexer. Callers own the embedder's lifecycle (it
// may be shared across multiple Indexers via embed.NewEmbedder's
// process-wide memoization).
func New(cfg *config.Config, embedder embed.Embedder, onProgress ProgressFunc) (*Indexer, error) {
	w, err := walker.New()
	if err != nil {
		return nil, fmt.Errorf("create walker: %w", err)
	}
	ext := extract.New()
	if onProgress == nil {
		onProgress = noopProgress
	}
	return &Indexer{cfg: cfg, embedder: embedder, extractor: ext, walker: w, onProgress: onProgress}, nil
}

func (ix *Indexer) Close() {
	ix.extractor.Close()
}

// modelIdentity is the manifest's model_identity string: name +
// precision + dimension, so a model swap or a dimension change forces
// a rebuild rather than silently comparing incompatible vectors.
func modelIdentity(e embed.Embedder) string {
	return fmt.Sprintf("%s:f32:%d", e.ModelName(), e.Dimensions())
}

// Summary reports the outcome of a build or update.
type Summary struct {
	FilesIndexed int
	FilesSkipped int
	FilesRemoved int
	BlocksTotal  int
	SkippedFiles []SkipReason
}

// SkipReason records a single per-file failure, kept non-fatal per
// the pipeline's failure semantics: a file that fails extraction or
// embedding is logged and skipped, its previous manifest entry (if
// any) left untouched.
type SkipReason struct {
	RelativePath string
	Err          error
}

func logSkip(path string, err error) {
	slog.Warn("skipping file", slog.String("path", path), slog.Any("error", err))
}
