package introspect

import (
	"go/ast"
	"reflect"
	"strconv"
	"strings"
)

// Doc holds the raw lines of a doc comment, comment markers included.
// Directive lines such as //uml:... are kept.
type Doc []string

// DocFromGroup copies the raw comment lines of g.
func DocFromGroup(g *ast.CommentGroup) Doc {
	if g == nil {
		return nil
	}
	var out Doc
	for _, c := range g.List {
		out = append(out, c.Text)
	}
	return out
}

// lines returns the comment text split into lines, markers removed.
func (d Doc) lines() []string {
	var out []string
	for _, raw := range d {
		switch {
		case strings.HasPrefix(raw, "//"):
			line := strings.TrimPrefix(raw, "//")
			out = append(out, strings.TrimPrefix(line, " "))
		case strings.HasPrefix(raw, "/*"):
			body := strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
			for _, line := range strings.Split(body, "\n") {
				line = strings.TrimSpace(line)
				line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
				out = append(out, line)
			}
		default:
			out = append(out, raw)
		}
	}
	return out
}

// Text returns the comment text without directive lines.
func (d Doc) Text() string {
	var kept Doc
	for _, raw := range d {
		if !isDirective(raw) {
			kept = append(kept, raw)
		}
	}
	return strings.TrimSpace(strings.Join(kept.lines(), "\n"))
}

// Deprecated reports whether a paragraph of the comment starts with
// "Deprecated:".
func (d Doc) Deprecated() bool {
	paragraphStart := true
	for _, line := range d.lines() {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			paragraphStart = true
			continue
		}
		if paragraphStart && strings.HasPrefix(trimmed, "Deprecated:") {
			return true
		}
		paragraphStart = false
	}
	return false
}

// Annotation returns the UML annotation from the first //uml: directive.
func (d Doc) Annotation() Annotation {
	for _, raw := range d {
		if isDirective(raw) {
			return ParseDirective(raw)
		}
	}
	return Annotation{}
}

const directivePrefix = "//uml:"

func isDirective(raw string) bool {
	return strings.HasPrefix(raw, directivePrefix)
}

// Annotation is the traceability payload of a declaration: its identifier
// in the external standard, its obligation and the specification name.
type Annotation struct {
	Identifier    string
	Obligation    string
	Specification string
}

// IsZero reports whether no attribute is present.
func (a Annotation) IsZero() bool {
	return a == Annotation{}
}

// Or returns a, or other when a is empty.
func (a Annotation) Or(other Annotation) Annotation {
	if a.IsZero() {
		return other
	}
	return a
}

// ParseDirective parses "//uml:identifier=MD_Metadata obligation=mandatory
// specification=ISO_19115". Values may be Go-quoted; unknown keys are
// ignored and blank values are absent.
func ParseDirective(line string) Annotation {
	rest := strings.TrimPrefix(line, directivePrefix)
	var a Annotation
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return a
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return a
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "`") {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return a
			}
			value, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			value, rest = rest[:end], rest[end:]
		}
		a.set(key, strings.TrimSpace(value))
	}
}

func (a *Annotation) set(key, value string) {
	switch key {
	case "identifier", "id":
		a.Identifier = value
	case "obligation":
		a.Obligation = value
	case "specification", "spec":
		a.Specification = value
	}
}

// ParseTag reads the `uml:"identifier,obligation,specification"` struct
// tag. tag is the raw literal including the backquotes, or its content.
func ParseTag(tag string) Annotation {
	if unquoted, err := strconv.Unquote(tag); err == nil {
		tag = unquoted
	}
	value, ok := reflect.StructTag(tag).Lookup("uml")
	if !ok {
		return Annotation{}
	}
	parts := strings.Split(value, ",")
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return Annotation{
		Identifier:    strings.TrimSpace(parts[0]),
		Obligation:    strings.TrimSpace(parts[1]),
		Specification: strings.TrimSpace(parts[2]),
	}
}
