package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// runLock serializes runs of one workflow across processes.
type runLock struct {
	path string
	lock *flock.Flock
}

func newRunLock(dir string, workflowID int64) (*runLock, error) {
	if dir == "" {
		return &runLock{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("workflow-%d.lock", workflowID))
	return &runLock{path: path, lock: flock.New(path)}, nil
}

// TryLock reports false when another process holds the lock.
func (l *runLock) TryLock() (bool, error) {
	if l.lock == nil {
		return true, nil
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	return ok, nil
}

func (l *runLock) Unlock() error {
	if l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
