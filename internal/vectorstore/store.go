package vectorstore

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the concrete vector store: BM25 lexical scoring (bleve),
// token-matrix and metadata persistence (sqlite), and an FDE-backed
// ANN shortlist (coder/hnsw) for collections too large to brute-force
// MaxSim over every record.
type Store struct {
	mu  sync.RWMutex
	dim int

	meta    *sqliteMeta
	lexical *lexicalIndex
	ann     *annIndex
}

// Open opens or creates a store rooted at dir. An empty dir opens an
// in-memory store, used by tests and by ephemeral search-only runs.
func Open(dir string, dim int) (*Store, error) {
	var metaPath, lexicalPath string
	if dir != "" {
		metaPath = filepath.Join(dir, "records.db")
		lexicalPath = filepath.Join(dir, "lexical.bleve")
	}

	meta, err := openSQLiteMeta(metaPath)
	if err != nil {
		return nil, err
	}
	lexical, err := openLexicalIndex(lexicalPath)
	if err != nil {
		meta.close()
		return nil, err
	}

	s := &Store{dim: dim, meta: meta, lexical: lexical, ann: newANNIndex()}
	if err := s.rebuildANN(); err != nil {
		meta.close()
		lexical.close()
		return nil, err
	}
	return s, nil
}

func (s *Store) rebuildANN() error {
	records, err := s.meta.allActive()
	if err != nil {
		return fmt.Errorf("load records for ann rebuild: %w", err)
	}
	ann := newANNIndex()
	for _, rec := range records {
		fde := rec.fde
		if len(fde) == 0 {
			fde = encodeFDE(rec.tokens, s.dim)
		}
		ann.upsert(rec.id, fde)
	}
	s.ann = ann
	return nil
}

// Store upserts a record's token matrix, lexical text, and metadata
// across all three backing indexes.
func (s *Store) Store(id, path, kind string, tokens []TokenVector, text string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fde := encodeFDE(tokens, s.dim)
	if err := s.meta.put(id, path, kind, tokens, fde, metadata); err != nil {
		return err
	}
	if err := s.lexical.put(id, text); err != nil {
		return err
	}
	s.ann.upsert(id, fde)
	return nil
}

// Delete removes a record from every backing index. Deletion from
// sqlite is a soft delete so GetTokens keeps working for callers that
// already hold the id (e.g. mid-incremental-update staleness checks)
// until the next Compact.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.meta.softDelete(id); err != nil {
		return err
	}
	if err := s.lexical.delete(id); err != nil {
		return err
	}
	s.ann.delete(id)
	return nil
}

// GetTokens returns the stored token matrix for id.
func (s *Store) GetTokens(id string) ([]TokenVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.meta.get(id)
	if err != nil {
		return nil, err
	}
	return rec.tokens, nil
}

// GetRecord returns a record's full stored state (tokens, kind, and
// metadata) without scoring, used to copy a block between stores
// during subordinate-index merge without re-embedding it.
func (s *Store) GetRecord(id string) (tokens []TokenVector, kind string, metadata map[string]string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.meta.get(id)
	if err != nil {
		return nil, "", nil, err
	}
	return rec.tokens, rec.kind, rec.metadata, nil
}

// QueryOptions narrows a SearchMultiWithText call.
type QueryOptions struct {
	Filter       Filter
	LexicalBoost float64 // weight applied to the BM25 stream before summing with MaxSim
}

// SearchMultiWithText runs hybrid retrieval: MaxSim over query token
// vectors against each candidate's token matrix, combined with a BM25
// score for queryText. Below BruteForceThreshold every active record is
// scored exactly; above it, an ANN shortlist from the FDE index narrows
// the candidate set before exact MaxSim re-ranking.
func (s *Store) SearchMultiWithText(queryTokens []TokenVector, queryText string, k int, opts QueryOptions) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lexicalScores, err := s.lexical.search(queryText, max(k*10, 200))
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidateRecords(queryTokens, k, opts.Filter)
	if err != nil {
		return nil, err
	}

	lexicalWeight := opts.LexicalBoost
	if lexicalWeight <= 0 {
		lexicalWeight = 1.0
	}

	results := make([]Result, 0, len(candidates))
	for _, rec := range candidates {
		if !opts.Filter.matches(rec.path, rec.kind) {
			continue
		}
		score := maxSim(queryTokens, rec.tokens) + lexicalWeight*lexicalScores[rec.id]
		md, err := s.meta.metadataFor(rec.id)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{ID: rec.id, Score: score, Metadata: md})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// QueryWithOptions runs MaxSim-only retrieval (no lexical fusion),
// used by callers that already have a pure embedding similarity need,
// such as find_similar against a single known block's vectors.
func (s *Store) QueryWithOptions(queryTokens []TokenVector, k int, opts QueryOptions) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.candidateRecords(queryTokens, k, opts.Filter)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, rec := range candidates {
		if !opts.Filter.matches(rec.path, rec.kind) {
			continue
		}
		md, err := s.meta.metadataFor(rec.id)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{ID: rec.id, Score: maxSim(queryTokens, rec.tokens), Metadata: md})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// candidateRecords returns the records to exactly score with MaxSim:
// every active record below BruteForceThreshold, or an ANN shortlist
// above it.
func (s *Store) candidateRecords(queryTokens []TokenVector, k int, filter Filter) ([]*storedRecord, error) {
	count, err := s.meta.count()
	if err != nil {
		return nil, err
	}

	if count <= BruteForceThreshold {
		return s.meta.allActive()
	}

	shortlistSize := k * 20
	if shortlistSize < 200 {
		shortlistSize = 200
	}
	queryFDE := encodeFDE(queryTokens, s.dim)
	ids := s.ann.shortlist(queryFDE, shortlistSize)

	out := make([]*storedRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.meta.get(id)
		if err != nil {
			continue
		}
		if rec.deleted {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Flush is a no-op for bleve/sqlite (both commit synchronously on
// write) but exists so the indexer has one place to call when an index
// build completes; a disk-backed ANN snapshot could be added here
// without changing its call sites.
func (s *Store) Flush() error {
	return nil
}

// Compact removes soft-deleted sqlite rows and rebuilds the ANN
// index so it no longer carries orphaned nodes from deleted records.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.meta.compact(); err != nil {
		return err
	}
	return s.rebuildANNLocked()
}

func (s *Store) rebuildANNLocked() error {
	records, err := s.meta.allActive()
	if err != nil {
		return fmt.Errorf("load records for ann rebuild: %w", err)
	}
	ann := newANNIndex()
	for _, rec := range records {
		fde := rec.fde
		if len(fde) == 0 {
			fde = encodeFDE(rec.tokens, s.dim)
		}
		ann.upsert(rec.id, fde)
	}
	s.ann = ann
	return nil
}

func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.count()
}

func (s *Store) DeletedCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.deletedCount()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lexErr := s.lexical.close()
	metaErr := s.meta.close()
	if metaErr != nil {
		return metaErr
	}
	return lexErr
}
