// Package vectorstore persists Block token matrices and their lexical
// text, and answers hybrid BM25 + multi-vector MaxSim queries over
// them. It is the concrete implementation behind the external
// "vector store" collaborator: a bleve/v2 index for BM25 lexical
// scoring, a modernc.org/sqlite database for token-matrix and
// metadata persistence, and a coder/hnsw approximate index over
// Fixed-Dimensional Encoding (FDE) summary vectors once a project
// grows past brute-force MaxSim's practical size.
package vectorstore

import "fmt"

// BruteForceThreshold is the record count below which MaxSim search
// compares the query against every stored token matrix directly.
// Above it, an ANN shortlist over FDE summary vectors narrows the
// candidate set before the exact MaxSim re-rank.
const BruteForceThreshold = 5000

// TokenVector is one token's embedding within a Block's token matrix.
type TokenVector []float32

// Filter scopes a search to a path prefix and/or a set of Kinds,
// mirroring the searcher's scope-narrowing step.
type Filter struct {
	PathPrefix string
	Kinds      []string
}

func (f Filter) matches(relativePath, kind string) bool {
	if f.PathPrefix != "" && !hasPathPrefix(relativePath, f.PathPrefix) {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

// Result is one ranked hit from a query against the store.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// ErrNotFound is returned when an ID isn't present in the store.
type ErrNotFound struct{ ID string }

func (e ErrNotFound) Error() string { return fmt.Sprintf("vectorstore: id not found: %s", e.ID) }

// ErrDimensionMismatch flags a stored/queried token width disagreement,
// which indicates an index built under a different embedding model.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d (rebuild the index)", e.Expected, e.Got)
}
