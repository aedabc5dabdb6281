package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"mediasort/internal/services"
)

// LockFileName is created in the destination directory for the duration of a
// non-dry run.
const LockFileName = ".mediasort.lock"

type destinationLock struct {
	path string
	lock *flock.Flock
}

func acquireLock(destinationDir string) (*destinationLock, error) {
	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "create destination", destinationDir, err)
	}
	path := filepath.Join(destinationDir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "pipeline", "acquire lock",
			"another mediasort run is writing to "+destinationDir, nil)
	}
	return &destinationLock{path: path, lock: lock}, nil
}

func (l *destinationLock) release() error {
	if l == nil {
		return nil
	}
	unlockErr := l.lock.Unlock()
	removeErr := os.Remove(l.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(unlockErr, removeErr)
}
