package artifact

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/module"

	"apidiff/internal/errors"
	"apidiff/internal/release"
)

// Dependency is an external module the API builds against.
type Dependency int

const (
	UnitsOfMeasure Dependency = iota
	TestFramework
)

// VersionRule selects a dependency version for API releases from Since on.
type VersionRule struct {
	Since   string `toml:"since"`
	Version string `toml:"version"`
}

// DependencyEntry is one row of the dependency table.
type DependencyEntry struct {
	Name     string        `toml:"name"`
	Module   string        `toml:"module"`
	Versions []VersionRule `toml:"versions"`
}

// DependencyTable lists the dependency modules and their versions per API
// release.
type DependencyTable struct {
	Dependencies []DependencyEntry `toml:"dependency"`
}

var builtinTable = DependencyTable{
	Dependencies: []DependencyEntry{
		UnitsOfMeasure: {
			Name:   "units-of-measure",
			Module: "github.com/bcicen/go-units",
			Versions: []VersionRule{
				{Since: "3.0.0", Version: "v1.0.4"},
				{Since: "3.1-M01", Version: "v1.0.5"},
			},
		},
		TestFramework: {
			Name:   "test-framework",
			Module: "github.com/stretchr/testify",
			Versions: []VersionRule{
				{Since: "3.0.0", Version: "v1.8.4"},
				{Since: "3.1-M01", Version: "v1.11.1"},
			},
		},
	},
}

// Dependencies lists the fixed dependencies.
func Dependencies() []Dependency {
	return []Dependency{UnitsOfMeasure, TestFramework}
}

func (d Dependency) entry() DependencyEntry {
	return builtinTable.Dependencies[d]
}

func (d Dependency) String() string { return d.entry().Name }

// Module returns the dependency's module path.
func (d Dependency) Module() string { return d.entry().Module }

// Version returns the module version used by the given API release.
func (d Dependency) Version(api release.Version) string {
	return d.entry().versionFor(api)
}

// RepositoryPath returns module@version for the given API release.
func (d Dependency) RepositoryPath(api release.Version) string {
	return d.Module() + "@" + d.Version(api)
}

// versionFor returns the version of the last rule whose Since is not after
// api, or the first rule's version when api predates all of them.
func (e DependencyEntry) versionFor(api release.Version) string {
	if len(e.Versions) == 0 {
		return ""
	}
	chosen := e.Versions[0].Version
	for _, r := range e.Versions {
		since, err := release.Parse(r.Since)
		if err != nil || api.Less(since) {
			continue
		}
		chosen = r.Version
	}
	return chosen
}

// DefaultDependencyTable returns a copy of the built-in table.
func DefaultDependencyTable() *DependencyTable {
	t := &DependencyTable{}
	for _, e := range builtinTable.Dependencies {
		e.Versions = append([]VersionRule(nil), e.Versions...)
		t.Dependencies = append(t.Dependencies, e)
	}
	return t
}

// LoadDependencyTable reads a dependency table file. Entries replace the
// built-in entry of the same name; other entries are appended.
func LoadDependencyTable(path string) (*DependencyTable, error) {
	table := DefaultDependencyTable()
	if path == "" {
		return table, nil
	}

	var file DependencyTable
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.IOError, "dependency table not found", err).WithInput(path)
		}
		return nil, errors.New(errors.ConfigInvalid, "cannot parse dependency table", err).WithInput(path)
	}

	for _, e := range file.Dependencies {
		if e.Name == "" || e.Module == "" {
			return nil, errors.Newf(errors.ConfigInvalid, "dependency entry needs a name and a module").WithInput(path)
		}
		for _, r := range e.Versions {
			if _, err := release.Parse(r.Since); err != nil {
				return nil, err
			}
		}
		table.put(e)
	}
	return table, nil
}

func (t *DependencyTable) put(e DependencyEntry) {
	for i := range t.Dependencies {
		if t.Dependencies[i].Name == e.Name {
			t.Dependencies[i] = e
			return
		}
	}
	t.Dependencies = append(t.Dependencies, e)
}

// Resolve returns module@version pairs for the given API release.
func (t *DependencyTable) Resolve(api release.Version) []module.Version {
	out := make([]module.Version, 0, len(t.Dependencies))
	for _, e := range t.Dependencies {
		out = append(out, module.Version{Path: e.Module, Version: e.versionFor(api)})
	}
	return out
}

// ResolvedDependency is one line of the dependency listing of a release.
type ResolvedDependency struct {
	Name    string `toml:"name" json:"name"`
	Module  string `toml:"module" json:"module"`
	Version string `toml:"version" json:"version"`
	Path    string `toml:"path" json:"path"`
}

// Listing returns the dependencies of the given API release.
func (t *DependencyTable) Listing(api release.Version) []ResolvedDependency {
	out := make([]ResolvedDependency, 0, len(t.Dependencies))
	for _, e := range t.Dependencies {
		v := e.versionFor(api)
		out = append(out, ResolvedDependency{
			Name:    e.Name,
			Module:  e.Module,
			Version: v,
			Path:    e.Module + "@" + v,
		})
	}
	return out
}

// WriteDependencyTable writes the dependencies of api as TOML.
func WriteDependencyTable(w io.Writer, t *DependencyTable, api release.Version) error {
	doc := struct {
		API          string               `toml:"api"`
		Dependencies []ResolvedDependency `toml:"dependency"`
	}{
		API:          api.String(),
		Dependencies: t.Listing(api),
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode dependency table: %w", err)
	}
	return nil
}

// Save writes the table itself (with its version rules) to path.
func (t *DependencyTable) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(t)
}
