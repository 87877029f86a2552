// Package treesitter reads declarations with the tree-sitter Go grammar.
// It needs cgo; without it New reports the backend as unavailable.
package treesitter

// Name is the backend name used in configuration.
const Name = "treesitter"
