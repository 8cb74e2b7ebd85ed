package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writeLock guards the index directory for the duration of any write
// (build, update, merge, compact). Readers never take it; they
// tolerate the store's append-style writes happening concurrently.
type writeLock struct {
	flock *flock.Flock
}

func newWriteLock(indexDir string) *writeLock {
	return &writeLock{flock: flock.New(filepath.Join(indexDir, ".write.lock"))}
}

// acquire blocks until the lock is held. The lock file's directory is
// created first since a fresh build's index directory may not exist yet.
func (l *writeLock) acquire() error {
	dir := filepath.Dir(l.flock.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	return nil
}

func (l *writeLock) release() error {
	return l.flock.Unlock()
}
