package introspect

import (
	"context"
	"go/build"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"apidiff/internal/artifact"
	"apidiff/internal/errors"
	"apidiff/internal/paths"
)

// Backend loads the declarations of an artifact.
type Backend interface {
	Name() string
	Load(ctx context.Context, a *artifact.Artifact) ([]*File, error)
}

// LenientBackend is implemented by backends whose type information is
// incomplete, such as index readers. Their names are resolved leniently.
type LenientBackend interface {
	Lenient() bool
}

// FileParser converts one Go source file into declarations. Path, ImportPath
// and Generated may be left for the caller to fill in.
type FileParser interface {
	ParseFile(path string, src []byte) (*File, error)
}

// BuildOptions describe the build context used to select files.
type BuildOptions struct {
	GOOS   string
	GOARCH string
	Tags   []string
}

// WalkOptions configure a SourceBackend.
type WalkOptions struct {
	// Exclude holds doublestar patterns over package directories relative
	// to the module root.
	Exclude []string
	Build   BuildOptions
	Logger  *slog.Logger
}

// SourceBackend walks a module tree and hands every selected file to a
// FileParser.
type SourceBackend struct {
	name    string
	parser  FileParser
	exclude []string
	ctx     build.Context
	logger  *slog.Logger
}

// NewSourceBackend creates a backend named name around p.
func NewSourceBackend(name string, p FileParser, opts WalkOptions) *SourceBackend {
	ctx := build.Default
	if opts.Build.GOOS != "" {
		ctx.GOOS = opts.Build.GOOS
	}
	if opts.Build.GOARCH != "" {
		ctx.GOARCH = opts.Build.GOARCH
	}
	ctx.BuildTags = append([]string(nil), opts.Build.Tags...)
	ctx.CgoEnabled = true

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceBackend{
		name:    name,
		parser:  p,
		exclude: opts.Exclude,
		ctx:     ctx,
		logger:  logger,
	}
}

func (b *SourceBackend) Name() string { return b.name }

// Load parses every package file of a. Test files, files rejected by the
// build context, nested modules, excluded packages and testdata, vendor,
// hidden and underscore directories are skipped.
func (b *SourceBackend) Load(ctx context.Context, a *artifact.Artifact) ([]*File, error) {
	var files []*File
	err := filepath.WalkDir(a.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return b.enterDir(a.Dir, path, d.Name())
		}
		if !b.selectFile(path, d.Name()) {
			return nil
		}
		rel, err := paths.CanonicalizePath(path, a.Dir)
		if err != nil {
			return err
		}
		if b.excluded(rel) {
			return nil
		}

		f, err := b.parse(a, path, rel)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.New(errors.IOError, "cannot read artifact", err).WithInput(a.Dir)
	}
	b.logger.Debug("Loaded source files", "backend", b.name, "artifact", a.Declaration.Name, "files", len(files))
	return files, nil
}

func (b *SourceBackend) enterDir(root, path, name string) error {
	if path == root {
		return nil
	}
	if artifact.SkipDir(name) {
		return filepath.SkipDir
	}
	if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
		b.logger.Debug("Skipping nested module", "dir", path)
		return filepath.SkipDir
	}
	return nil
}

func (b *SourceBackend) selectFile(path, name string) bool {
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	ok, err := b.ctx.MatchFile(filepath.Dir(path), name)
	if err != nil {
		b.logger.Debug("Cannot evaluate build constraints", "file", path, "error", err)
		return false
	}
	return ok
}

// excluded reports whether the package directory of rel matches an
// exclusion pattern.
func (b *SourceBackend) excluded(rel string) bool {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
	for _, pattern := range b.exclude {
		if ok, _ := doublestar.Match(pattern, dir); ok {
			return true
		}
	}
	return false
}

func (b *SourceBackend) parse(a *artifact.Artifact, path, rel string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IOError, "cannot read source file", err).WithInput(rel)
	}
	f, err := b.parser.ParseFile(rel, src)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.New(errors.IOError, "cannot parse source file", err).WithInput(rel)
	}
	importPath, err := paths.ImportPath(a.Module, a.Dir, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	f.Path = rel
	f.ImportPath = importPath
	if !f.Generated {
		f.Generated = IsGenerated(src)
	}
	return f, nil
}

// IsGenerated reports whether src carries the standard
// "// Code generated ... DO NOT EDIT." line before the package clause.
func IsGenerated(src []byte) bool {
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package ") {
			return false
		}
		if strings.HasPrefix(line, "// Code generated ") && strings.HasSuffix(line, " DO NOT EDIT.") {
			return true
		}
	}
	return false
}
