package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName is the advisory lock guarding an index directory.
const lockFileName = ".index.lock"

// reindexLock serializes indexing runs across processes. The in-process
// guard in ChunkIndex handles same-process races; this covers a second
// CLI invocation against the same index directory.
type reindexLock struct {
	fl *flock.Flock
}

// newReindexLock creates a lock for the given index directory.
func newReindexLock(indexDir string) (*reindexLock, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return &reindexLock{fl: flock.New(filepath.Join(indexDir, lockFileName))}, nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *reindexLock) TryLock() error {
	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index is locked by another process")
	}
	return nil
}

// Unlock releases the lock.
func (l *reindexLock) Unlock() error {
	return l.fl.Unlock()
}
