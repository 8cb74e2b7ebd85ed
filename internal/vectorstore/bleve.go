package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// lexicalIndex wraps bleve/v2 for BM25 scoring over each record's
// lexical text (the same text fed to the tokenizer for query
// expansion). bleve's default analyzer already lowercases and splits
// on word boundaries; the identifier-aware splitting corelens needs
// happens upstream, in the text handed to Index, so this wrapper keeps
// bleve's stock analyzer rather than registering a custom one.
type lexicalIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

type bleveDoc struct {
	Content string `json:"content"`
}

func openLexicalIndex(path string) (*lexicalIndex, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, err
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create lexical index dir: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &lexicalIndex{index: idx}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	return m, nil
}

func (l *lexicalIndex) put(id, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Index(id, bleveDoc{Content: text})
}

func (l *lexicalIndex) delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Delete(id)
}

// search returns up to limit (id -> bm25 score) pairs matching query.
func (l *lexicalIndex) search(query string, limit int) (map[string]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if query == "" {
		return map[string]float64{}, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	result, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	out := make(map[string]float64, len(result.Hits))
	for _, hit := range result.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

func (l *lexicalIndex) close() error {
	return l.index.Close()
}
