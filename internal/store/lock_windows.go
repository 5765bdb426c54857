//go:build windows

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirLock is an exclusive lock on <dataDir>/hub.lock, taken by atomically
// creating the file. Creation fails while another process owns it.
type DirLock struct {
	path   string
	locked bool
}

// LockDir takes the writer lock of dir. It returns ErrLocked when another
// process holds it.
func LockDir(dir string) (*DirLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &DirLock{path: path, locked: true}, nil
}

// Unlock releases the lock and removes the lock file.
func (l *DirLock) Unlock() error {
	if l == nil || !l.locked {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	l.locked = false
	return nil
}
