//go:build windows

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockFile = "apidiff.lock"

// Lock marks a state directory as in use. Windows gets a PID file without
// exclusion.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock writes the PID file of dir.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release removes the PID file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
	l.file = nil
}
