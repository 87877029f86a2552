package introspect

import (
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"regexp"
	"strings"

	"apidiff/internal/artifact"
	"apidiff/internal/errors"
)

// Scope is the naming context of a type expression.
type Scope struct {
	PkgPath string
	// Locals are the type names declared in the package.
	Locals     map[string]bool
	File       *File
	TypeParams map[string]bool
}

// With returns a copy of s with additional type parameter names.
func (s Scope) With(params []string) Scope {
	if len(params) == 0 {
		return s
	}
	merged := make(map[string]bool, len(s.TypeParams)+len(params))
	for k := range s.TypeParams {
		merged[k] = true
	}
	for _, p := range params {
		merged[p] = true
	}
	s.TypeParams = merged
	return s
}

// Resolver qualifies type expressions.
type Resolver struct {
	known   func(importPath string) bool
	lenient bool
}

// NewResolver creates a resolver accepting imports that are standard
// library packages or known to a. In lenient mode unresolvable names are
// kept verbatim instead of failing.
func NewResolver(a *artifact.Artifact, lenient bool) *Resolver {
	known := func(string) bool { return false }
	if a != nil {
		known = a.KnowsImport
	}
	return &Resolver{known: known, lenient: lenient}
}

// Resolve renders expr in qualified and display form.
func (r *Resolver) Resolve(expr ast.Expr, s Scope) (TypeRef, error) {
	if expr == nil {
		return TypeRef{}, nil
	}
	w := &refWriter{r: r, s: s}
	if err := w.expr(expr); err != nil {
		return TypeRef{}, err
	}
	return TypeRef{Qualified: w.q.String(), Display: w.d.String()}, nil
}

// ResolveAll resolves every expression of exprs.
func (r *Resolver) ResolveAll(exprs []ast.Expr, s Scope) ([]TypeRef, error) {
	out := make([]TypeRef, 0, len(exprs))
	for _, e := range exprs {
		ref, err := r.Resolve(e, s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

type refWriter struct {
	r    *Resolver
	s    Scope
	q, d strings.Builder
}

func (w *refWriter) both(s string) {
	w.q.WriteString(s)
	w.d.WriteString(s)
}

func (w *refWriter) named(qualified, display string) {
	w.q.WriteString(qualified)
	w.d.WriteString(display)
}

func (w *refWriter) expr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Ident:
		return w.ident(e)
	case *ast.SelectorExpr:
		return w.selector(e)
	case *ast.StarExpr:
		w.both("*")
		return w.expr(e.X)
	case *ast.ParenExpr:
		return w.expr(e.X)
	case *ast.Ellipsis:
		w.both("...")
		return w.expr(e.Elt)
	case *ast.ArrayType:
		if e.Len == nil {
			w.both("[]")
		} else {
			w.both("[" + types.ExprString(e.Len) + "]")
		}
		return w.expr(e.Elt)
	case *ast.MapType:
		w.both("map[")
		if err := w.expr(e.Key); err != nil {
			return err
		}
		w.both("]")
		return w.expr(e.Value)
	case *ast.ChanType:
		switch e.Dir {
		case ast.SEND:
			w.both("chan<- ")
		case ast.RECV:
			w.both("<-chan ")
		default:
			w.both("chan ")
		}
		return w.expr(e.Value)
	case *ast.FuncType:
		return w.funcType(e)
	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			w.both("interface{}")
		} else {
			w.both("interface{...}")
		}
		return nil
	case *ast.StructType:
		if e.Fields == nil || len(e.Fields.List) == 0 {
			w.both("struct{}")
		} else {
			w.both("struct{...}")
		}
		return nil
	case *ast.IndexExpr:
		return w.instance(e.X, []ast.Expr{e.Index})
	case *ast.IndexListExpr:
		return w.instance(e.X, e.Indices)
	case *ast.UnaryExpr:
		if e.Op != token.TILDE {
			break
		}
		w.both("~")
		return w.expr(e.X)
	case *ast.BinaryExpr:
		if e.Op != token.OR {
			break
		}
		if err := w.expr(e.X); err != nil {
			return err
		}
		w.both(" | ")
		return w.expr(e.Y)
	}
	return w.fail("unsupported type expression", types.ExprString(expr))
}

func (w *refWriter) list(exprs []ast.Expr) error {
	for i, e := range exprs {
		if i > 0 {
			w.both(", ")
		}
		if err := w.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *refWriter) instance(x ast.Expr, args []ast.Expr) error {
	if err := w.expr(x); err != nil {
		return err
	}
	w.both("[")
	if err := w.list(args); err != nil {
		return err
	}
	w.both("]")
	return nil
}

func (w *refWriter) funcType(ft *ast.FuncType) error {
	w.both("func(")
	for i, p := range expandParams(ft.Params) {
		if i > 0 {
			w.both(", ")
		}
		if p.Variadic {
			w.both("...")
		}
		if err := w.expr(p.Type); err != nil {
			return err
		}
	}
	w.both(")")

	results := expandResults(ft.Results)
	switch len(results) {
	case 0:
		return nil
	case 1:
		w.both(" ")
		return w.expr(results[0])
	}
	w.both(" (")
	if err := w.list(results); err != nil {
		return err
	}
	w.both(")")
	return nil
}

func (w *refWriter) ident(id *ast.Ident) error {
	name := id.Name
	switch {
	case w.s.TypeParams[name]:
		w.both(name)
		return nil
	case w.s.Locals[name]:
		w.named(w.s.PkgPath+"."+name, name)
		return nil
	case isBuiltinType(name):
		w.both(name)
		return nil
	}

	if w.s.File != nil && len(w.s.File.DotImports) == 1 {
		p := w.s.File.DotImports[0]
		if err := w.checkImport(p, name); err != nil {
			return err
		}
		w.named(p+"."+name, name)
		return nil
	}
	if w.r.lenient {
		w.both(name)
		return nil
	}
	return w.fail("cannot resolve type name", name)
}

func (w *refWriter) selector(sel *ast.SelectorExpr) error {
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return w.fail("unsupported qualified expression", types.ExprString(sel))
	}
	display := x.Name + "." + sel.Sel.Name

	importPath, found := lookupImport(w.s.File, x.Name)
	if !found {
		if w.r.lenient {
			w.both(display)
			return nil
		}
		return w.fail("unknown package qualifier", display)
	}
	if err := w.checkImport(importPath, display); err != nil {
		return err
	}
	w.named(importPath+"."+sel.Sel.Name, display)
	return nil
}

// checkImport rejects imports that are neither standard library nor known
// to the artifact.
func (w *refWriter) checkImport(importPath, input string) error {
	if w.r.lenient || IsStdlib(importPath) || w.r.known(importPath) {
		return nil
	}
	return errors.Newf(errors.ResolutionError, "missing dependency %s", importPath).
		WithInput(w.where(input))
}

func (w *refWriter) fail(msg, input string) error {
	return errors.Newf(errors.ResolutionError, "%s", msg).WithInput(w.where(input))
}

func (w *refWriter) where(input string) string {
	if w.s.File != nil && w.s.File.Path != "" {
		return w.s.File.Path + ": " + input
	}
	return input
}

func isBuiltinType(name string) bool {
	_, ok := types.Universe.Lookup(name).(*types.TypeName)
	return ok
}

// IsStdlib reports whether importPath names a standard library package:
// its first element has no dot.
func IsStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != "" && !strings.Contains(first, ".")
}

func lookupImport(f *File, qualifier string) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, imp := range f.Imports {
		if imp.Name == qualifier {
			return imp.Path, true
		}
	}
	for _, imp := range f.Imports {
		if imp.Name != "" {
			continue
		}
		for _, candidate := range PackageNames(imp.Path) {
			if candidate == qualifier {
				return imp.Path, true
			}
		}
	}
	return "", false
}

var (
	majorElem   = regexp.MustCompile(`^v[0-9]+$`)
	majorSuffix = regexp.MustCompile(`\.v[0-9]+$`)
)

// PackageNames guesses the package names an unnamed import of importPath
// may be referred to by, most likely first.
func PackageNames(importPath string) []string {
	base := path.Base(importPath)
	if majorElem.MatchString(base) && path.Dir(importPath) != "." {
		base = path.Base(path.Dir(importPath))
	}
	base = majorSuffix.ReplaceAllString(base, "")

	candidates := []string{base}
	add := func(s string) {
		if s == "" {
			return
		}
		for _, c := range candidates {
			if c == s {
				return
			}
		}
		candidates = append(candidates, s)
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(base, "go-"), "-go")
	add(trimmed)
	if i := strings.LastIndexAny(trimmed, "-."); i >= 0 {
		add(trimmed[i+1:])
	}
	add(strings.NewReplacer("-", "", ".", "").Replace(trimmed))
	return candidates
}
