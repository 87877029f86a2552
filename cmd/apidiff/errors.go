package main

import (
	"fmt"
	"strings"

	"apidiff/internal/errors"
)

// formatError renders err for the terminal, naming the failing stage and
// the suggested fixes when err carries them.
func formatError(err error) string {
	e, ok := errors.As(err)
	if !ok {
		return "apidiff: " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString("apidiff: ")
	if e.Stage != "" {
		fmt.Fprintf(&b, "%s failed: ", e.Stage)
	}
	b.WriteString(e.Message)
	if e.Input != "" {
		fmt.Fprintf(&b, " (%s)", e.Input)
	}
	if cause := e.Unwrap(); cause != nil {
		fmt.Fprintf(&b, ": %v", cause)
	}
	fmt.Fprintf(&b, " [%s]\n", e.Code)

	for _, fix := range e.SuggestedFixes {
		switch fix.Type {
		case errors.RunCommand:
			fmt.Fprintf(&b, "  hint: run '%s': %s\n", fix.Command, fix.Description)
		case errors.EditFile:
			fmt.Fprintf(&b, "  hint: edit %s: %s\n", fix.Path, fix.Description)
		default:
			fmt.Fprintf(&b, "  hint: %s\n", fix.Description)
		}
	}
	return b.String()
}
