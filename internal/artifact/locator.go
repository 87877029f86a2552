package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"apidiff/internal/errors"
	"apidiff/internal/release"
)

// DefaultIndexFile is looked up in the artifact directory when a
// declaration names no index.
const DefaultIndexFile = "index.scip"

// Artifact is one declared artifact resolved for one API release.
type Artifact struct {
	Declaration Declaration
	Version     release.Version

	// Dir is the root of the module source tree.
	Dir string
	// Module is the module path from go.mod, or the declared one.
	Module string
	// GoVersion is the go directive of go.mod, if any.
	GoVersion string
	// Index is the SCIP index path, empty when none exists.
	Index string
	// Requires lists the go.mod requirements.
	Requires []module.Version
	// Dependencies lists the dependency table entries for Version.
	Dependencies []module.Version
}

// KnowsImport reports whether importPath belongs to the artifact module,
// one of its requirements or a known dependency.
func (a *Artifact) KnowsImport(importPath string) bool {
	if within(importPath, a.Module) {
		return true
	}
	for _, r := range a.Requires {
		if within(importPath, r.Path) {
			return true
		}
	}
	for _, d := range a.Dependencies {
		if within(importPath, d.Path) {
			return true
		}
	}
	return false
}

func within(importPath, modulePath string) bool {
	return modulePath != "" &&
		(importPath == modulePath || strings.HasPrefix(importPath, modulePath+"/"))
}

// Locator resolves declarations to artifacts on disk.
type Locator struct {
	// Root anchors relative source templates.
	Root string
	// ModCache is the Go module cache directory.
	ModCache string
	Table    *DependencyTable
}

// NewLocator creates a locator using the module cache of the environment.
func NewLocator(root string, table *DependencyTable) *Locator {
	if table == nil {
		table = DefaultDependencyTable()
	}
	return &Locator{Root: root, ModCache: DefaultModCache(), Table: table}
}

// DefaultModCache returns $GOMODCACHE, $GOPATH/pkg/mod or ~/go/pkg/mod.
func DefaultModCache() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		return filepath.Join(filepath.SplitList(gopath)[0], "pkg", "mod")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "go", "pkg", "mod")
}

// Expand substitutes {name}, {version}, {semver} and {tag} in template.
func Expand(template string, d Declaration, v release.Version) string {
	return strings.NewReplacer(
		"{name}", d.Name,
		"{version}", v.String(),
		"{semver}", v.Semver(),
		"{tag}", v.Tag(),
	).Replace(template)
}

// Locate resolves d at version v. A missing directory is an IOError.
func (l *Locator) Locate(ctx context.Context, d Declaration, v release.Version) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := l.sourceDir(d, v)
	if err != nil {
		return nil, err
	}

	a := &Artifact{
		Declaration:  d,
		Version:      v,
		Dir:          dir,
		Module:       d.Module,
		Dependencies: l.Table.Resolve(v),
	}
	if err := readGoMod(a); err != nil {
		return nil, err
	}
	a.Index = l.indexPath(a)
	return a, nil
}

func (l *Locator) sourceDir(d Declaration, v release.Version) (string, error) {
	var candidates []string
	if d.Source != "" {
		dir := Expand(d.Source, d, v)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(l.Root, dir)
		}
		candidates = append(candidates, dir)
	} else {
		escaped, err := module.EscapePath(d.Module)
		if err != nil {
			return "", errors.New(errors.FormatError, "invalid module path", err).WithInput(d.Module)
		}
		base := filepath.Join(l.ModCache, filepath.FromSlash(escaped))
		semver := v.Semver()
		candidates = append(candidates, base+"@"+semver, base+"@"+semver+"+incompatible")
	}

	for _, dir := range candidates {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errors.Newf(errors.IOError, "artifact %s %s not found", d.Name, v).
		WithInput(candidates[0])
}

func readGoMod(a *Artifact) error {
	path := filepath.Join(a.Dir, "go.mod")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New(errors.IOError, "cannot read go.mod", err).WithInput(path)
	}

	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return errors.New(errors.IOError, "cannot parse go.mod", err).WithInput(path)
	}
	if f.Module != nil && f.Module.Mod.Path != "" {
		a.Module = f.Module.Mod.Path
	}
	if f.Go != nil {
		a.GoVersion = f.Go.Version
	}
	for _, r := range f.Require {
		a.Requires = append(a.Requires, r.Mod)
	}
	return nil
}

func (l *Locator) indexPath(a *Artifact) string {
	name := DefaultIndexFile
	if a.Declaration.Index != "" {
		name = Expand(a.Declaration.Index, a.Declaration, a.Version)
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(a.Dir, name)
	}
	if _, err := os.Stat(name); err != nil {
		if a.Declaration.Index != "" {
			// Declared but absent: keep the path so the index backend can
			// report it.
			return name
		}
		return ""
	}
	return name
}
