//go:build !windows

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"apidiff/internal/errors"
)

const lockFile = "apidiff.lock"

// Lock is an exclusive lock on a state directory. It keeps two apidiff
// processes from writing the same cache at once.
type Lock struct {
	file *os.File
}

// AcquireLock takes the lock of dir without waiting. A lock held by another
// process is an IOError naming its PID.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		msg := "state directory is locked by another apidiff process"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			msg += " (PID " + strings.TrimSpace(string(content)) + ")"
		}
		return nil, errors.New(errors.IOError, msg, err).WithInput(path)
	}

	unlock := func(err error) (*Lock, error) {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, err
	}
	if err := file.Truncate(0); err != nil {
		return unlock(fmt.Errorf("truncate lock file: %w", err))
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return unlock(fmt.Errorf("write lock file: %w", err))
	}
	return &Lock{file: file}, nil
}

// Release drops the lock. The lock file stays in place so every process
// locks the same inode.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
