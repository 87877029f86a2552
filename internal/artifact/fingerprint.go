package artifact

import (
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"apidiff/internal/errors"
)

// Fingerprint hashes every file a backend may read from a: Go sources,
// go.mod and the SCIP index. Two artifacts with equal fingerprints produce
// the same element set.
func Fingerprint(a *Artifact) (string, error) {
	var files []string
	err := filepath.WalkDir(a.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != a.Dir && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".go") || name == "go.mod" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", errors.New(errors.IOError, "cannot scan artifact", err).WithInput(a.Dir)
	}
	sort.Strings(files)
	if a.Index != "" {
		if _, err := os.Stat(a.Index); err == nil {
			files = append(files, a.Index)
		}
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	for _, path := range files {
		rel, err := filepath.Rel(a.Dir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		// Length-prefixed so that name and content boundaries stay unambiguous.
		io.WriteString(h, strconv.Itoa(len(rel))+":"+rel)
		if err := hashFile(h, path); err != nil {
			return "", errors.New(errors.IOError, "cannot read artifact file", err).WithInput(path)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	io.WriteString(w, strconv.FormatInt(info.Size(), 10)+":")
	_, err = io.Copy(w, f)
	return err
}

// SkipDir reports whether a directory of this name is never part of a
// package tree: testdata, vendor and names starting with "." or "_".
func SkipDir(name string) bool {
	return name == "testdata" || name == "vendor" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
