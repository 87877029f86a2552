//go:build !cgo

package treesitter

import (
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
)

// Available reports whether the backend was built with cgo.
func Available() bool {
	return false
}

// New fails when cgo is not available.
func New(opts introspect.WalkOptions) (*introspect.SourceBackend, error) {
	return nil, errors.New(errors.ConfigInvalid, "treesitter backend requires cgo", nil).
		WithInput(Name)
}
