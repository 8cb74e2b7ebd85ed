// Package search implements the query-side pipeline: locate the
// governing index, run an incremental freshness update, embed and
// tokenize the query, fetch hybrid and pure-semantic candidate pools
// from the vector store, fuse and boost them, apply a scope filter,
// and return a stable top-k.
package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/corerr"
	"github.com/corelens/corelens/internal/embed"
	"github.com/corelens/corelens/internal/indexer"
	"github.com/corelens/corelens/internal/lexer"
	"github.com/corelens/corelens/internal/locator"
	"github.com/corelens/corelens/internal/manifest"
	"github.com/corelens/corelens/internal/vectorstore"
)

// Hit is one ranked, boosted search result with the fields a
// front-end needs to render or navigate to it.
type Hit struct {
	ID           string
	Score        float64
	Name         string
	Kind         string
	Language     string
	RelativePath string
	StartLine    int
	EndLine      int
	Content      string
}

// Searcher runs queries against indexes discovered on disk.
type Searcher struct {
	cfg      *config.Config
	embedder embed.Embedder
	idx      *indexer.Indexer
}

// New constructs a Searcher. The Indexer it wraps is reused for the
// freshness pass every query performs before searching.
func New(cfg *config.Config, embedder embed.Embedder) (*Searcher, error) {
	idx, err := indexer.New(cfg, embedder, nil)
	if err != nil {
		return nil, err
	}
	return &Searcher{cfg: cfg, embedder: embedder, idx: idx}, nil
}

func (s *Searcher) Close() {
	s.idx.Close()
}

// Search runs the full query pipeline against the index governing
// rootPath, optionally scoped to scopePath.
func (s *Searcher) Search(ctx context.Context, queryText, rootPath string, k int, scopePath string, autoBuild bool) ([]Hit, error) {
	markerDir := locator.MarkerDir(s.cfg)
	loc, ok, err := locator.FindParent(rootPath, markerDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !autoBuild {
			return nil, corerr.IndexMissing(rootPath)
		}
		if _, err := s.idx.Build(ctx, rootPath, false); err != nil {
			return nil, err
		}
		loc, ok, err = locator.FindParent(rootPath, markerDir)
		if err != nil || !ok {
			return nil, corerr.IndexMissing(rootPath)
		}
	}

	if _, err := s.idx.Update(ctx, loc.Root); err != nil {
		return nil, err
	}

	mf, err := manifest.Load(loc.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	identity := fmt.Sprintf("%s:f32:%d", s.embedder.ModelName(), s.embedder.Dimensions())
	if needs, reason := mf.NeedsRebuild(identity); needs {
		return nil, corerr.IndexNeedsRebuild(reason)
	}

	store, err := vectorstore.Open(loc.IndexDir, s.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	queryMatrices, err := s.embedder.EmbedBatch(ctx, []string{queryText}, embed.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryTokens := toTokenVectors(queryMatrices[0])
	queryTextSplit := lexer.Rejoin(lexer.Tokenize(queryText))

	overfetch := s.cfg.Search.UnscopedOverfetch
	if scopePath != "" {
		overfetch = s.cfg.Search.ScopedOverfetch
	}
	fanout := overfetch * k

	filter := vectorstore.Filter{}
	if scopePath != "" {
		filter.PathPrefix = relativeScopePath(loc.Root, scopePath)
	}

	c1, err := store.SearchMultiWithText(queryTokens, queryTextSplit, fanout, vectorstore.QueryOptions{Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	c2, err := store.QueryWithOptions(queryTokens, fanout, vectorstore.QueryOptions{Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	merged := mergeCandidates(c1, c2)
	hits := s.boostAndRank(merged, queryText, k)
	return hits, nil
}

// FindSimilar implements the find_similar variant: given a resolved
// block reference, it queries by that block's own tokens and drops
// results from the same file (including the reference block itself).
func (s *Searcher) FindSimilar(ctx context.Context, ref BlockRef, rootPath string, k int) ([]Hit, error) {
	markerDir := locator.MarkerDir(s.cfg)
	loc, ok, err := locator.FindParent(rootPath, markerDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corerr.IndexMissing(rootPath)
	}
	if _, err := s.idx.Update(ctx, loc.Root); err != nil {
		return nil, err
	}

	store, err := vectorstore.Open(loc.IndexDir, s.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	resolved, err := ResolveBlockRef(store, loc.Root, ref)
	if err != nil {
		return nil, err
	}

	sameFileCount, err := countBlocksInFile(store, resolved.RelativePath)
	if err != nil {
		return nil, err
	}

	results, err := store.QueryWithOptions(resolved.Tokens, k+sameFileCount, vectorstore.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("query similar: %w", err)
	}

	filtered := make([]vectorstore.Result, 0, len(results))
	for _, r := range results {
		if r.Metadata["relative_path"] == resolved.RelativePath {
			continue
		}
		filtered = append(filtered, r)
	}

	hits := s.boostAndRank(toScoreMap(filtered), resolved.Name, k)
	return hits, nil
}

func (s *Searcher) boostAndRank(candidates map[string]scoredMetadata, queryText string, k int) []Hit {
	boostCap := s.cfg.Search.BoostCap
	hits := make([]Hit, 0, len(candidates))
	for id, c := range candidates {
		meta := c.metadata
		cand := candidateMeta{
			name:         meta["name"],
			kind:         meta["kind"],
			relativePath: meta["relative_path"],
		}
		score := boost(c.score, queryText, cand, boostCap)
		startLine, _ := strconv.Atoi(meta["start_line"])
		endLine, _ := strconv.Atoi(meta["end_line"])
		hits = append(hits, Hit{
			ID:           id,
			Score:        score,
			Name:         meta["name"],
			Kind:         meta["kind"],
			Language:     meta["language"],
			RelativePath: meta["relative_path"],
			StartLine:    startLine,
			EndLine:      endLine,
			Content:      meta["content"],
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

type scoredMetadata struct {
	score    float64
	metadata map[string]string
}

// mergeCandidates implements the max-of-two-streams merge: for every
// id present in either candidate pool, keep the higher score and the
// metadata from whichever stream supplied it.
func mergeCandidates(c1, c2 []vectorstore.Result) map[string]scoredMetadata {
	out := make(map[string]scoredMetadata, len(c1)+len(c2))
	for _, r := range c1 {
		out[r.ID] = scoredMetadata{score: r.Score, metadata: r.Metadata}
	}
	for _, r := range c2 {
		if existing, ok := out[r.ID]; !ok || r.Score > existing.score {
			out[r.ID] = scoredMetadata{score: r.Score, metadata: r.Metadata}
		}
	}
	return out
}

func toScoreMap(results []vectorstore.Result) map[string]scoredMetadata {
	out := make(map[string]scoredMetadata, len(results))
	for _, r := range results {
		out[r.ID] = scoredMetadata{score: r.Score, metadata: r.Metadata}
	}
	return out
}

func toTokenVectors(matrix []embed.TokenVector) []vectorstore.TokenVector {
	out := make([]vectorstore.TokenVector, len(matrix))
	for i, v := range matrix {
		out[i] = vectorstore.TokenVector(v)
	}
	return out
}

func countBlocksInFile(store *vectorstore.Store, relativePath string) (int, error) {
	results, err := store.QueryWithOptions(nil, 1<<20, vectorstore.QueryOptions{Filter: vectorstore.Filter{PathPrefix: relativePath}})
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// relativeScopePath converts an absolute or root-relative scope path
// into the POSIX-form, index-root-relative prefix the store expects.
func relativeScopePath(indexRoot, scopePath string) string {
	trimmed := strings.TrimPrefix(scopePath, indexRoot)
	trimmed = strings.TrimPrefix(trimmed, "/")
	trimmed = strings.TrimPrefix(trimmed, "\\")
	return strings.ReplaceAll(trimmed, "\\", "/")
}
