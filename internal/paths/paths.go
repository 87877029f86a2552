package paths

import (
	"os"
	"path"
	"path/filepath"
)

// StateDir is the per-project directory holding configuration, the cache
// database and logs.
const StateDir = ".apidiff"

const (
	configFile   = "config.toml"
	databaseFile = "apidiff.db"
	logFile      = "apidiff.log"
)

// StateDirPath returns <root>/.apidiff.
func StateDirPath(root string) string {
	return filepath.Join(root, StateDir)
}

// ConfigPath returns the default configuration file.
func ConfigPath(root string) string {
	return filepath.Join(root, StateDir, configFile)
}

// DatabasePath returns the default snapshot and history database.
func DatabasePath(root string) string {
	return filepath.Join(root, StateDir, databaseFile)
}

// LogPath returns the default log file.
func LogPath(root string) string {
	return filepath.Join(root, StateDir, logFile)
}

// EnsureStateDir creates <root>/.apidiff if needed and returns its path.
func EnsureStateDir(root string) (string, error) {
	dir := StateDirPath(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CanonicalizePath returns file relative to root with forward slashes.
// Symlinks are resolved when the path exists.
func CanonicalizePath(file, root string) (string, error) {
	resolved, err := evalIfExists(file)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if os.IsNotExist(err) {
		return p, nil
	}
	return resolved, err
}

// ImportPath returns the import path of the package in dir for a module
// rooted at root.
func ImportPath(modulePath, root, dir string) (string, error) {
	rel, err := CanonicalizePath(dir, root)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return modulePath, nil
	}
	return path.Join(modulePath, rel), nil
}

// IsInternal reports whether the import path has an "internal" element.
func IsInternal(importPath string) bool {
	for p := importPath; p != "." && p != "/" && p != ""; p = path.Dir(p) {
		if path.Base(p) == "internal" {
			return true
		}
	}
	return false
}
