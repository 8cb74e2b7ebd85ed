// Package manifest persists per-index metadata: the schema version
// and embedding model identity an index was built against, and a
// per-file record of what was indexed, so an incremental update can
// tell which files changed without re-reading and re-embedding the
// whole project.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion is bumped whenever the on-disk manifest or store
// layout changes incompatibly. A mismatch forces a rebuild rather than
// risking a corrupt incremental update against old data.
const SchemaVersion = 1

// FileRecord is what's known about one indexed file as of the last
// successful build or update.
type FileRecord struct {
	RelativePath string   `json:"relative_path"`
	MTimeNS      int64    `json:"mtime_ns"`
	ContentHash  string   `json:"content_hash"`
	BlockIDs     []string `json:"block_ids"`
}

// Manifest is the full persisted state of an index, excluding the
// vector store's own opaque files.
type Manifest struct {
	SchemaVersion int                   `json:"schema_version"`
	ModelIdentity string                `json:"model_identity"`
	CreatedAtNS   int64                 `json:"created_at"`
	UpdatedAtNS   int64                 `json:"updated_at"`
	Files         map[string]FileRecord `json:"files"`
}

// New returns an empty manifest stamped with the current schema
// version and the given model identity, ready for a fresh build.
func New(modelIdentity string, nowNS int64) *Manifest {
	return &Manifest{
		SchemaVersion: SchemaVersion,
		ModelIdentity: modelIdentity,
		CreatedAtNS:   nowNS,
		UpdatedAtNS:   nowNS,
		Files:         map[string]FileRecord{},
	}
}

const fileName = "manifest"

// Path returns the manifest file path under an index directory.
func Path(indexDir string) string {
	return filepath.Join(indexDir, fileName)
}

// Load reads and parses the manifest at indexDir. It returns
// os.ErrNotExist (wrapped) if no manifest exists there.
func Load(indexDir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(indexDir))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest at %s: %w", Path(indexDir), err)
	}
	if m.Files == nil {
		m.Files = map[string]FileRecord{}
	}
	return &m, nil
}

// Exists reports whether a manifest is present at indexDir.
func Exists(indexDir string) bool {
	_, err := os.Stat(Path(indexDir))
	return err == nil
}

// Save writes the manifest atomically: encode to a temp file in the
// same directory, then rename over the target, so a crash or
// concurrent reader never observes a half-written manifest.
func (m *Manifest) Save(indexDir string) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	target := Path(indexDir)
	tmp, err := os.CreateTemp(indexDir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp manifest: %w", err)
	}
	return nil
}

// NeedsRebuild reports whether this manifest can no longer serve as
// the basis for an incremental update against the given model
// identity: either its schema predates this binary's, or it was built
// against a different embedding model (name, precision, or dimension).
func (m *Manifest) NeedsRebuild(modelIdentity string) (bool, string) {
	if m.SchemaVersion != SchemaVersion {
		return true, fmt.Sprintf("schema version %d, expected %d", m.SchemaVersion, SchemaVersion)
	}
	if m.ModelIdentity != modelIdentity {
		return true, fmt.Sprintf("model identity %q, expected %q", m.ModelIdentity, modelIdentity)
	}
	return false, ""
}

// Touch stamps UpdatedAtNS, called whenever the manifest's Files map
// is mutated before a Save.
func (m *Manifest) Touch(nowNS int64) {
	m.UpdatedAtNS = nowNS
}

// Put inserts or replaces the file record for rec.RelativePath.
func (m *Manifest) Put(rec FileRecord) {
	if m.Files == nil {
		m.Files = map[string]FileRecord{}
	}
	m.Files[rec.RelativePath] = rec
}

// Remove deletes the file record for relativePath, returning the
// block ids it carried (the caller is responsible for deleting them
// from the vector store).
func (m *Manifest) Remove(relativePath string) []string {
	rec, ok := m.Files[relativePath]
	if !ok {
		return nil
	}
	delete(m.Files, relativePath)
	return rec.BlockIDs
}

// ContentHash hashes file bytes for staleness detection. sha256 is
// stdlib rather than a pack dependency: the pack's hashing libraries
// are domain-specific (bleve's internal term hashing, sqlite's own)
// and none is meant for general-purpose content hashing.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// BlockCount sums BlockIDs across every file record.
func (m *Manifest) BlockCount() int {
	n := 0
	for _, rec := range m.Files {
		n += len(rec.BlockIDs)
	}
	return n
}
