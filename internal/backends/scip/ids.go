package scip

import (
	"fmt"
	"strings"
)

// Suffix marks what a SCIP descriptor names.
type Suffix int

const (
	SuffixNamespace Suffix = iota
	SuffixType
	SuffixTerm
	SuffixMethod
	SuffixTypeParameter
	SuffixParameter
	SuffixMeta
	SuffixMacro
)

// Descriptor is one component of a symbol's descriptor path.
type Descriptor struct {
	Name          string
	Disambiguator string
	Suffix        Suffix
}

// Symbol is a parsed global SCIP symbol.
// Format: <scheme> <manager> <package> <version> <descriptor>...
//
//	scip-go gomod example.com/geoapi v3.1.0 `example.com/geoapi/metadata`/Citation#Title().
type Symbol struct {
	Scheme      string
	Manager     string
	Package     string
	Version     string
	Descriptors []Descriptor
}

// ParseSymbol parses a global symbol. Local symbols are rejected.
func ParseSymbol(id string) (*Symbol, error) {
	if id == "" {
		return nil, fmt.Errorf("empty SCIP symbol")
	}
	if strings.HasPrefix(id, "local ") {
		return nil, fmt.Errorf("local SCIP symbol: %s", id)
	}

	parts := strings.SplitN(id, " ", 5)
	if len(parts) < 5 {
		return nil, fmt.Errorf("invalid SCIP symbol format: %s", id)
	}
	descriptors, err := parseDescriptors(parts[4])
	if err != nil {
		return nil, fmt.Errorf("invalid SCIP symbol %s: %w", id, err)
	}
	return &Symbol{
		Scheme:      parts[0],
		Manager:     parts[1],
		Package:     parts[2],
		Version:     parts[3],
		Descriptors: descriptors,
	}, nil
}

// PackagePath joins the namespace descriptors.
func (s *Symbol) PackagePath() string {
	var parts []string
	for _, d := range s.Descriptors {
		if d.Suffix != SuffixNamespace {
			break
		}
		parts = append(parts, d.Name)
	}
	return strings.Join(parts, "/")
}

// Members returns the descriptors after the namespaces.
func (s *Symbol) Members() []Descriptor {
	for i, d := range s.Descriptors {
		if d.Suffix != SuffixNamespace {
			return s.Descriptors[i:]
		}
	}
	return nil
}

func parseDescriptors(s string) ([]Descriptor, error) {
	var out []Descriptor
	for i := 0; i < len(s); {
		var d Descriptor
		switch s[i] {
		case '[':
			name, n, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if n >= len(s) || s[n] != ']' {
				return nil, fmt.Errorf("unterminated type parameter at %d", i)
			}
			d = Descriptor{Name: name, Suffix: SuffixTypeParameter}
			i = n + 1
		case '(':
			name, n, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if n >= len(s) || s[n] != ')' {
				return nil, fmt.Errorf("unterminated parameter at %d", i)
			}
			d = Descriptor{Name: name, Suffix: SuffixParameter}
			i = n + 1
		default:
			name, n, err := readName(s, i)
			if err != nil {
				return nil, err
			}
			if n >= len(s) {
				return nil, fmt.Errorf("descriptor %q has no suffix", name)
			}
			d.Name = name
			switch s[n] {
			case '/':
				d.Suffix = SuffixNamespace
				i = n + 1
			case '#':
				d.Suffix = SuffixType
				i = n + 1
			case '.':
				d.Suffix = SuffixTerm
				i = n + 1
			case ':':
				d.Suffix = SuffixMeta
				i = n + 1
			case '!':
				d.Suffix = SuffixMacro
				i = n + 1
			case '(':
				end := strings.IndexByte(s[n:], ')')
				if end < 0 || n+end+1 >= len(s) || s[n+end+1] != '.' {
					return nil, fmt.Errorf("malformed method descriptor %q", name)
				}
				d.Suffix = SuffixMethod
				d.Disambiguator = s[n+1 : n+end]
				i = n + end + 2
			default:
				return nil, fmt.Errorf("unexpected %q after %q", s[n], name)
			}
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty descriptor")
	}
	return out, nil
}

// readName reads a simple or backtick-escaped name starting at i and
// returns it with the index following it.
func readName(s string, i int) (string, int, error) {
	if i < len(s) && s[i] == '`' {
		var b strings.Builder
		for j := i + 1; j < len(s); j++ {
			if s[j] != '`' {
				b.WriteByte(s[j])
				continue
			}
			if j+1 < len(s) && s[j+1] == '`' {
				b.WriteByte('`')
				j++
				continue
			}
			return b.String(), j + 1, nil
		}
		return "", 0, fmt.Errorf("unterminated escaped name at %d", i)
	}
	j := i
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	return s[i:j], j, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80
}
