package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"qmunlock/internal/services"
)

// Lock is the exclusive per-state-directory run lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// AcquireLock takes the run lock at path without blocking. A lock held by
// another run yields ErrLocked.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "lock", "create state directory", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrLocked, "runner", "lock", path, nil)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
