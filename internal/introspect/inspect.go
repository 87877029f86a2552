package introspect

import (
	"context"
	"go/ast"
	"log/slog"
	"sort"
	"strings"

	"apidiff/internal/artifact"
	"apidiff/internal/paths"
)

// Options configure Inspect.
type Options struct {
	// Lenient keeps unresolvable names verbatim. Backends implementing
	// LenientBackend turn it on themselves.
	Lenient bool
	Logger  *slog.Logger
}

// Inspect loads a with backend and resolves the result.
func Inspect(ctx context.Context, backend Backend, a *artifact.Artifact, opts Options) (*API, error) {
	files, err := backend.Load(ctx, a)
	if err != nil {
		return nil, err
	}
	if lb, ok := backend.(LenientBackend); ok && lb.Lenient() {
		opts.Lenient = true
	}
	return Build(ctx, a, files, opts)
}

// Build resolves files loaded from a.
func Build(ctx context.Context, a *artifact.Artifact, files []*File, opts Options) (*API, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver := NewResolver(a, opts.Lenient)

	byPath := make(map[string][]*File)
	var order []string
	for _, f := range files {
		if _, ok := byPath[f.ImportPath]; !ok {
			order = append(order, f.ImportPath)
		}
		byPath[f.ImportPath] = append(byPath[f.ImportPath], f)
	}
	sort.Strings(order)

	api := &API{Module: a.Module}
	for _, importPath := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkgFiles := byPath[importPath]
		if pkgFiles[0].Package == "main" {
			logger.Debug("Skipping command package", "package", importPath)
			continue
		}
		b := newPackageBuilder(importPath, pkgFiles, resolver, logger)
		pkg, err := b.build()
		if err != nil {
			return nil, err
		}
		api.Packages = append(api.Packages, pkg)
	}
	return api, nil
}

type packageBuilder struct {
	pkg      *Package
	files    []*File
	resolver *Resolver
	logger   *slog.Logger

	locals map[string]bool
	types  map[string]*Type
	// ctors maps constructor function names to the type they build.
	ctors map[string]string
}

func newPackageBuilder(importPath string, files []*File, r *Resolver, logger *slog.Logger) *packageBuilder {
	b := &packageBuilder{
		pkg: &Package{
			Path:     importPath,
			Name:     files[0].Package,
			Internal: paths.IsInternal(importPath),
		},
		files:    files,
		resolver: r,
		logger:   logger,
		locals:   make(map[string]bool),
		types:    make(map[string]*Type),
		ctors:    make(map[string]string),
	}
	for _, f := range files {
		for _, td := range f.Types {
			b.locals[td.Name] = true
		}
	}
	return b
}

func (b *packageBuilder) scope(f *File) Scope {
	return Scope{PkgPath: b.pkg.Path, Locals: b.locals, File: f}
}

func (b *packageBuilder) build() (*Package, error) {
	for _, f := range b.files {
		for _, td := range f.Types {
			t, err := b.typeDecl(f, td)
			if err != nil {
				return nil, err
			}
			b.pkg.Types = append(b.pkg.Types, t)
			if _, dup := b.types[t.Name]; !dup {
				b.types[t.Name] = t
			}
		}
	}
	for _, f := range b.files {
		for _, fd := range f.Funcs {
			if err := b.funcDecl(f, fd); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range b.files {
		for _, vd := range f.Values {
			if err := b.valueDecl(f, vd); err != nil {
				return nil, err
			}
		}
	}
	return b.pkg, nil
}

func (b *packageBuilder) typeDecl(f *File, td *TypeDecl) (*Type, error) {
	t := &Type{
		Name:        td.Name,
		Alias:       td.Alias,
		TypeParams:  td.TypeParams,
		Exported:    ast.IsExported(td.Name),
		Synthesized: f.Generated || td.Name == "_",
		Deprecated:  td.Doc.Deprecated(),
		Annotation:  td.Doc.Annotation(),
	}
	s := b.scope(f).With(td.TypeParams)

	var parents []ast.Expr
	switch td.Expr.(type) {
	case *ast.StructType:
		t.Form = FormStruct
		parents = td.Embeds
	case *ast.InterfaceType:
		t.Form = FormInterface
		for _, e := range td.Embeds {
			if isTypeElement(e) {
				parents = append(parents, e)
			}
		}
	default:
		if td.Expr != nil {
			parents = []ast.Expr{td.Expr}
		}
	}
	refs, err := b.resolver.ResolveAll(parents, s)
	if err != nil {
		return nil, err
	}
	t.Parents = refs

	for _, fd := range td.Fields {
		ref, err := b.resolver.Resolve(fd.Type, s)
		if err != nil {
			return nil, err
		}
		ann := fd.Doc.Annotation().Or(ParseTag(fd.Tag))
		for _, name := range fd.Names {
			t.Fields = append(t.Fields, &Field{
				Name:        name,
				Type:        ref,
				Exported:    ast.IsExported(name),
				Synthesized: t.Synthesized || name == "_",
				Deprecated:  fd.Doc.Deprecated(),
				Annotation:  ann,
			})
		}
	}

	for _, md := range td.Methods {
		fn, err := b.function(f, md, s, t.Synthesized)
		if err != nil {
			return nil, err
		}
		t.Methods = append(t.Methods, fn)
	}
	return t, nil
}

// isTypeElement reports whether an interface element names a type rather
// than a constraint union or approximation.
func isTypeElement(e ast.Expr) bool {
	switch e.(type) {
	case *ast.BinaryExpr, *ast.UnaryExpr:
		return false
	}
	return true
}

func (b *packageBuilder) function(f *File, fd *FuncDecl, s Scope, synthesized bool) (*Func, error) {
	s = s.With(fd.TypeParams)
	fn := &Func{
		Name:        fd.Name,
		Exported:    ast.IsExported(fd.Name),
		Synthesized: synthesized || f.Generated || fd.Name == "_",
		Deprecated:  fd.Doc.Deprecated(),
		Annotation:  fd.Doc.Annotation(),
	}
	for i, p := range fd.Params {
		ref, err := b.resolver.Resolve(p.Type, s)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, ref)
		if p.Variadic && i == len(fd.Params)-1 {
			fn.Variadic = true
		}
	}
	results, err := b.resolver.ResolveAll(fd.Results, s)
	if err != nil {
		return nil, err
	}
	fn.Results = results
	return fn, nil
}

func (b *packageBuilder) funcDecl(f *File, fd *FuncDecl) error {
	if fd.Recv != "" {
		t, ok := b.types[fd.Recv]
		if !ok {
			b.logger.Debug("Method receiver not declared in package", "package", b.pkg.Path, "method", fd.Recv+"."+fd.Name)
			return nil
		}
		fn, err := b.function(f, fd, b.scope(f).With(t.TypeParams), false)
		if err != nil {
			return err
		}
		t.Methods = append(t.Methods, fn)
		return nil
	}

	fn, err := b.function(f, fd, b.scope(f), false)
	if err != nil {
		return err
	}
	if target := b.constructed(fd); target != nil {
		target.Constructors = append(target.Constructors, fn)
		b.ctors[fd.Name] = target.Name
		return nil
	}
	b.pkg.Funcs = append(b.pkg.Funcs, fn)
	return nil
}

// constructed returns the local type built by a New... function: its first
// result is T or *T.
func (b *packageBuilder) constructed(fd *FuncDecl) *Type {
	if !strings.HasPrefix(fd.Name, "New") || len(fd.Results) == 0 {
		return nil
	}
	if name := localTypeName(fd.Results[0], true); name != "" {
		return b.types[name]
	}
	return nil
}

// localTypeName returns the identifier of T or, if pointer is set, *T.
// Generic instantiations T[X] count as T.
func localTypeName(e ast.Expr, pointer bool) string {
	if star, ok := e.(*ast.StarExpr); ok && pointer {
		e = star.X
	}
	switch x := e.(type) {
	case *ast.IndexExpr:
		e = x.X
	case *ast.IndexListExpr:
		e = x.X
	}
	return identName(e)
}

func (b *packageBuilder) valueDecl(f *File, vd *ValueDecl) error {
	s := b.scope(f)
	for i, name := range vd.Names {
		typeExpr := vd.Type
		if typeExpr == nil && i < len(vd.Values) {
			typeExpr = b.inferType(vd.Values[i])
		}
		ref, err := b.resolver.Resolve(typeExpr, s)
		if err != nil {
			return err
		}
		field := &Field{
			Name:        name,
			Type:        ref,
			Const:       vd.Const,
			Exported:    ast.IsExported(name),
			Synthesized: f.Generated || name == "_",
			Deprecated:  vd.Doc.Deprecated(),
			Annotation:  vd.Doc.Annotation(),
		}
		if typeExpr != nil {
			// A variable named like a field of its struct type stays at
			// package level.
			if t := b.types[localTypeName(typeExpr, !vd.Const)]; t != nil && (vd.Const || !t.HasField(name)) {
				t.Constants = append(t.Constants, field)
				continue
			}
		}
		b.pkg.Values = append(b.pkg.Values, field)
	}
	return nil
}

// inferType guesses the type of an untyped value spec from its initializer:
// T(x) conversions, T{...} and &T{...} literals and calls of constructors.
func (b *packageBuilder) inferType(v ast.Expr) ast.Expr {
	switch e := v.(type) {
	case *ast.ParenExpr:
		return b.inferType(e.X)
	case *ast.CompositeLit:
		if e.Type != nil && b.locals[localTypeName(e.Type, false)] {
			return e.Type
		}
	case *ast.UnaryExpr:
		if lit, ok := e.X.(*ast.CompositeLit); ok && lit.Type != nil && b.locals[localTypeName(lit.Type, false)] {
			return &ast.StarExpr{X: lit.Type}
		}
	case *ast.CallExpr:
		name := identName(e.Fun)
		if b.locals[name] && len(e.Args) == 1 {
			return e.Fun
		}
		if t, ok := b.ctors[name]; ok {
			return b.constructorResult(t, name)
		}
	}
	return nil
}

func (b *packageBuilder) constructorResult(typeName, ctor string) ast.Expr {
	for _, f := range b.files {
		for _, fd := range f.Funcs {
			if fd.Recv == "" && fd.Name == ctor && len(fd.Results) > 0 {
				return fd.Results[0]
			}
		}
	}
	return ast.NewIdent(typeName)
}
