// Package backends opens the introspection backends by name and picks the
// one used for each artifact.
package backends

import (
	"fmt"
	"strings"

	"apidiff/internal/backends/scip"
	"apidiff/internal/backends/source"
	"apidiff/internal/backends/treesitter"
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
)

// BackendID uniquely identifies a backend type
type BackendID string

const (
	// BackendSource parses module sources with go/parser
	BackendSource BackendID = source.Name
	// BackendTreeSitter parses module sources with tree-sitter (cgo only)
	BackendTreeSitter BackendID = treesitter.Name
	// BackendSCIP reads a SCIP index of the artifact
	BackendSCIP BackendID = scip.Name
)

// All lists the known backends, most complete first.
func All() []BackendID {
	return []BackendID{BackendSource, BackendTreeSitter, BackendSCIP}
}

// ParseID validates a backend name.
func ParseID(name string) (BackendID, error) {
	id := BackendID(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All() {
		if id == known {
			return id, nil
		}
	}
	return "", errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown backend %q", name), nil).
		WithInput(name)
}

// IsAvailable reports whether the backend can be opened in this build.
func IsAvailable(id BackendID) bool {
	if id == BackendTreeSitter {
		return treesitter.Available()
	}
	return id == BackendSource || id == BackendSCIP
}

// Open creates the backend id with opts.
func Open(id BackendID, opts introspect.WalkOptions) (introspect.Backend, error) {
	switch id {
	case BackendSource:
		return source.New(opts), nil
	case BackendTreeSitter:
		b, err := treesitter.New(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendSCIP:
		return scip.New(opts), nil
	}
	return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown backend %q", id), nil).
		WithInput(string(id))
}
