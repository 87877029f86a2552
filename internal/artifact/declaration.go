// Package artifact locates the versioned source trees (or indexes) of the
// API artifacts being compared, together with the dependency modules each
// API release builds against.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"apidiff/internal/errors"
)

// DeclarationFile is the default filename for artifact declarations.
const DeclarationFile = "ARTIFACTS.toml"

// Declaration describes one artifact scanned for every report.
type Declaration struct {
	// Name is the short identifier used on the command line and in the cache.
	Name string `toml:"name"`

	// Title heads the artifact's section of the report.
	Title string `toml:"title"`

	// Module is the Go module path of the artifact.
	Module string `toml:"module"`

	// Source is a directory template expanded with {name}, {version},
	// {semver} and {tag}. Empty means the Go module cache.
	Source string `toml:"source,omitempty"`

	// Index is the SCIP index template, relative to the source directory.
	Index string `toml:"index,omitempty"`

	// Backend overrides the configured introspection backend.
	Backend string `toml:"backend,omitempty"`
}

// DeclarationsFile is the root structure of ARTIFACTS.toml.
type DeclarationsFile struct {
	Version   int           `toml:"version"`
	Artifacts []Declaration `toml:"artifact"`
}

// DefaultDeclarations returns the main API and its conformance companion.
func DefaultDeclarations() []Declaration {
	return []Declaration{
		{
			Name:   "main",
			Title:  "Main API",
			Module: "github.com/opengeospatial/geoapi",
		},
		{
			Name:   "conformance",
			Title:  "Conformance API",
			Module: "github.com/opengeospatial/geoapi/conformance",
		},
	}
}

// ParseDeclarations parses an ARTIFACTS.toml file.
func ParseDeclarations(path string) (*DeclarationsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IOError, "cannot read artifact declarations", err).WithInput(path)
	}

	var file DeclarationsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot parse artifact declarations", err).WithInput(path)
	}
	if file.Version < 1 {
		file.Version = 1
	}
	if err := validateDeclarations(file.Artifacts); err != nil {
		return nil, err
	}
	return &file, nil
}

// LoadDeclarations reads the declarations of the project at root. A missing
// file yields DefaultDeclarations.
func LoadDeclarations(root, file string) ([]Declaration, error) {
	if file == "" {
		file = DeclarationFile
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, file)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultDeclarations(), nil
	}

	parsed, err := ParseDeclarations(path)
	if err != nil {
		return nil, err
	}
	if len(parsed.Artifacts) == 0 {
		return DefaultDeclarations(), nil
	}
	return parsed.Artifacts, nil
}

func validateDeclarations(decls []Declaration) error {
	seen := make(map[string]bool, len(decls))
	for i, d := range decls {
		switch {
		case d.Name == "":
			return errors.Newf(errors.ConfigInvalid, "artifact %d is missing a name", i+1)
		case seen[d.Name]:
			return errors.Newf(errors.ConfigInvalid, "artifact %q is declared twice", d.Name).WithInput(d.Name)
		case d.Module == "":
			return errors.Newf(errors.ConfigInvalid, "artifact %q is missing a module path", d.Name).WithInput(d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// WriteDeclarations writes decls to path.
func WriteDeclarations(path string, decls []Declaration) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(DeclarationsFile{Version: 1, Artifacts: decls}); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", DeclarationFile, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Select returns the declarations named in names, in declaration order. An
// empty names selects all.
func Select(decls []Declaration, names []string) ([]Declaration, error) {
	if len(names) == 0 {
		return decls, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Declaration
	for _, d := range decls {
		if wanted[d.Name] {
			out = append(out, d)
			delete(wanted, d.Name)
		}
	}
	for n := range wanted {
		return nil, errors.Newf(errors.ConfigInvalid, "unknown artifact %q", n).WithInput(n)
	}
	return out, nil
}

// Heading returns the title, or the name when no title is declared.
func (d Declaration) Heading() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}
