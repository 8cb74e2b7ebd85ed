package indexer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/corelens/corelens/internal/blocks"
	"github.com/corelens/corelens/internal/corerr"
	"github.com/corelens/corelens/internal/embed"
	"github.com/corelens/corelens/internal/extract"
	"github.com/corelens/corelens/internal/manifest"
	"github.com/corelens/corelens/internal/vectorstore"
)

// extractedFile is one file's extraction result, carried through the
// pipeline so the caller can build both manifest records and progress
// counts.
type extractedFile struct {
	relativePath string
	contentHash  string
	mtimeNS      int64
	blocks       []*blocks.Block
}

// extractFiles runs extraction over entries on a worker pool sized to
// min(NumCPU, len(entries)), one extractor per worker since
// extract.Extractor wraps a non-goroutine-safe tree-sitter parser.
// Per-file failures are collected as skips rather than aborting the
// whole run.
func (ix *Indexer) extractFiles(ctx context.Context, entries []fileToIndex) ([]extractedFile, []SkipReason) {
	workers := len(entries)
	if cpu := numCPU(); workers > cpu {
		workers = cpu
	}
	if workers < 1 {
		workers = 1
	}

	type job struct {
		idx   int
		entry fileToIndex
	}
	jobs := make(chan job)
	results := make([]*extractedFile, len(entries))
	var skipsMu sync.Mutex
	var skips []SkipReason

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			worker := extract.New()
			defer worker.Close()

			for j := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				content, err := os.ReadFile(j.entry.absolutePath)
				if err != nil {
					skipsMu.Lock()
					skips = append(skips, SkipReason{RelativePath: j.entry.relativePath, Err: err})
					skipsMu.Unlock()
					continue
				}
				language := extract.LanguageForExtension(filepath.Ext(j.entry.absolutePath))
				fileBlocks, err := worker.Extract(gctx, j.entry.relativePath, content, language)
				if err != nil {
					logSkip(j.entry.relativePath, err)
					skipsMu.Lock()
					skips = append(skips, SkipReason{RelativePath: j.entry.relativePath, Err: corerr.ExtractionError(j.entry.relativePath, err)})
					skipsMu.Unlock()
					continue
				}
				results[j.idx] = &extractedFile{
					relativePath: j.entry.relativePath,
					contentHash:  manifest.ContentHash(content),
					mtimeNS:      j.entry.mtimeNS,
					blocks:       fileBlocks,
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i, e := range entries {
			select {
			case jobs <- job{idx: i, entry: e}:
			case <-gctx.Done():
				return
			}
		}
	}()

	_ = g.Wait() // per-file errors are already captured as skips; a ctx cancellation just stops early

	out := make([]extractedFile, 0, len(entries))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, skips
}

type fileToIndex struct {
	absolutePath string
	relativePath string
	mtimeNS      int64
}

// embedAndStore sorts all blocks across files by embedding_text length
// (ascending, to minimize batch padding waste), embeds them in
// document-mode batches, and writes each to the store. It returns the
// block ids written per relative path.
func (ix *Indexer) embedAndStore(ctx context.Context, store *vectorstore.Store, files []extractedFile) (map[string][]string, error) {
	type indexedBlock struct {
		block        *blocks.Block
		relativePath string
	}

	var all []indexedBlock
	for _, f := range files {
		for _, b := range f.blocks {
			all = append(all, indexedBlock{block: b, relativePath: f.relativePath})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return len(all[i].block.EmbeddingText) < len(all[j].block.EmbeddingText)
	})

	blockIDs := make(map[string][]string, len(files))
	batchSize := ix.cfg.Index.BatchSize
	if batchSize < 1 {
		batchSize = embed.DefaultBatchSize
	}

	total := len(all)
	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return blockIDs, err
		}
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := all[start:end]

		texts := make([]string, len(batch))
		for i, ib := range batch {
			texts[i] = ib.block.EmbeddingText
		}

		matrices, err := ix.embedder.EmbedBatch(ctx, texts, embed.ModeDocument)
		if err != nil {
			return blockIDs, corerr.EmbeddingBatchError(err)
		}

		for i, ib := range batch {
			b := ib.block
			id := blocks.NewID(b.RelativePath, b.StartLine, b.Name)
			tokens := make([]vectorstore.TokenVector, len(matrices[i]))
			for t, v := range matrices[i] {
				tokens[t] = vectorstore.TokenVector(v)
			}
			md := blockMetadata(b)
			if err := store.Store(id, b.RelativePath, string(b.Kind), tokens, b.EmbeddingText, md); err != nil {
				return blockIDs, corerr.StoreWriteError(err)
			}
			blockIDs[ib.relativePath] = append(blockIDs[ib.relativePath], id)
		}
		ix.onProgress("embed", end, total)
	}

	return blockIDs, nil
}

// blockMetadata captures a Block's fields other than Content and
// EmbeddingText — the store persists Content separately under the
// metadata "content" key so a search can return the exact source span
// without a second file read.
func blockMetadata(b *blocks.Block) map[string]string {
	return map[string]string{
		"name":          b.Name,
		"kind":          string(b.Kind),
		"language":      string(b.Language),
		"relative_path": b.RelativePath,
		"start_line":    strconv.Itoa(b.StartLine),
		"end_line":      strconv.Itoa(b.EndLine),
		"content":       b.Content,
	}
}

func numCPU() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
