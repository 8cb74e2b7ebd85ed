package vectorstore

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no cgo
)

// sqliteMeta persists token matrices and block metadata in a WAL-mode
// SQLite database using the pure Go modernc.org/sqlite driver, so the
// module never depends on cgo.
type sqliteMeta struct {
	mu sync.RWMutex
	db *sql.DB
}

func openSQLiteMeta(path string) (*sqliteMeta, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteMeta{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	tokens BLOB NOT NULL,
	fde BLOB,
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);
CREATE TABLE IF NOT EXISTS record_metadata (
	record_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (record_id, key)
);
`

func encodeTokens(tokens []TokenVector) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tokens); err != nil {
		return nil, fmt.Errorf("encode tokens: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTokens(data []byte) ([]TokenVector, error) {
	var tokens []TokenVector
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return tokens, nil
}

func encodeFloats(v []float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode fde vector: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeFloats(data []byte) ([]float32, error) {
	var v []float32
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode fde vector: %w", err)
	}
	return v, nil
}

func (s *sqliteMeta) put(id, path, kind string, tokens []TokenVector, fde []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenBytes, err := encodeTokens(tokens)
	if err != nil {
		return err
	}
	fdeBytes, err := encodeFloats(fde)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO records (id, path, kind, tokens, fde, deleted)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET path=excluded.path, kind=excluded.kind,
			tokens=excluded.tokens, fde=excluded.fde, deleted=0`,
		id, path, kind, tokenBytes, fdeBytes); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM record_metadata WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	for k, v := range metadata {
		if _, err := tx.Exec(`INSERT INTO record_metadata (record_id, key, value) VALUES (?, ?, ?)`, id, k, v); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteMeta) softDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE records SET deleted = 1 WHERE id = ?`, id)
	return err
}

type storedRecord struct {
	id       string
	path     string
	kind     string
	tokens   []TokenVector
	fde      []float32
	deleted  bool
	metadata map[string]string
}

func (s *sqliteMeta) get(id string) (*storedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec storedRecord
	var tokenBytes, fdeBytes []byte
	var deletedInt int
	err := s.db.QueryRow(`SELECT id, path, kind, tokens, fde, deleted FROM records WHERE id = ?`, id).
		Scan(&rec.id, &rec.path, &rec.kind, &tokenBytes, &fdeBytes, &deletedInt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	rec.deleted = deletedInt != 0

	if rec.tokens, err = decodeTokens(tokenBytes); err != nil {
		return nil, err
	}
	if len(fdeBytes) > 0 {
		if rec.fde, err = decodeFloats(fdeBytes); err != nil {
			return nil, err
		}
	}
	rec.metadata, err = s.metadataFor(id)
	return &rec, err
}

func (s *sqliteMeta) metadataFor(id string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM record_metadata WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// allActive returns every non-deleted record, used for brute-force
// MaxSim scans and for rebuilding the HNSW index after a compaction.
func (s *sqliteMeta) allActive() ([]*storedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, path, kind, tokens, fde FROM records WHERE deleted = 0`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*storedRecord
	for rows.Next() {
		var rec storedRecord
		var tokenBytes, fdeBytes []byte
		if err := rows.Scan(&rec.id, &rec.path, &rec.kind, &tokenBytes, &fdeBytes); err != nil {
			return nil, err
		}
		if rec.tokens, err = decodeTokens(tokenBytes); err != nil {
			return nil, err
		}
		if len(fdeBytes) > 0 {
			if rec.fde, err = decodeFloats(fdeBytes); err != nil {
				return nil, err
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *sqliteMeta) count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE deleted = 0`).Scan(&n)
	return n, err
}

func (s *sqliteMeta) deletedCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE deleted = 1`).Scan(&n)
	return n, err
}

// compact permanently removes soft-deleted rows, reclaiming space.
func (s *sqliteMeta) compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id FROM records WHERE deleted = 1`)
	if err != nil {
		return fmt.Errorf("query deleted: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.Exec(`DELETE FROM record_metadata WHERE record_id = ?`, id); err != nil {
			return fmt.Errorf("compact metadata: %w", err)
		}
		if _, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("compact records: %w", err)
		}
	}

	_, err = s.db.Exec(`VACUUM`)
	return err
}

func (s *sqliteMeta) close() error {
	return s.db.Close()
}
