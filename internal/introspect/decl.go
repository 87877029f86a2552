// Package introspect turns the declarations of a Go module into a resolved
// API model. Parser backends produce the declaration layer (File and the
// *Decl types); Inspect qualifies every type expression and groups members
// under their types.
package introspect

import (
	"go/ast"
)

// Import is one import spec of a file.
type Import struct {
	// Name is the explicit local name, empty when the import is unnamed.
	Name string
	Path string
}

// File holds the top-level declarations of one source file.
type File struct {
	// Path is relative to the artifact root, with forward slashes.
	Path       string
	ImportPath string
	Package    string
	Imports    []Import
	DotImports []string
	// Generated marks files whose declarations are all synthesized.
	Generated bool

	Types  []*TypeDecl
	Funcs  []*FuncDecl
	Values []*ValueDecl
}

// TypeDecl is a type spec.
type TypeDecl struct {
	Name       string
	TypeParams []string
	Alias      bool
	// Expr is the right-hand side of the declaration.
	Expr ast.Expr
	// Fields are the named struct fields.
	Fields []*FieldDecl
	// Methods are the interface methods.
	Methods []*FuncDecl
	// Embeds are embedded struct fields or embedded interface elements, in
	// declaration order.
	Embeds []ast.Expr
	Doc    Doc
}

// FieldDecl is one struct field line, possibly declaring several names.
type FieldDecl struct {
	Names []string
	Type  ast.Expr
	Tag   string
	Doc   Doc
}

// Param is one parameter or result position.
type Param struct {
	Type     ast.Expr
	Variadic bool
}

// FuncDecl is a function, a method or an interface method.
type FuncDecl struct {
	Name string
	// Recv is the base type name of the receiver, empty for functions and
	// interface methods.
	Recv       string
	TypeParams []string
	Params     []Param
	Results    []ast.Expr
	Doc        Doc
}

// ValueDecl is one const or var spec.
type ValueDecl struct {
	Names []string
	// Type is the declared type, nil when omitted. Constants inside an iota
	// group carry the type of the previous spec.
	Type   ast.Expr
	Values []ast.Expr
	Const  bool
	Doc    Doc
}

// expandParams returns one Param per name of each field in fl.
func expandParams(fl *ast.FieldList) []Param {
	if fl == nil {
		return nil
	}
	var out []Param
	for _, f := range fl.List {
		p := Param{Type: f.Type}
		if e, ok := f.Type.(*ast.Ellipsis); ok {
			p = Param{Type: e.Elt, Variadic: true}
		}
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, p)
		}
	}
	return out
}

// expandResults returns one expression per result position.
func expandResults(fl *ast.FieldList) []ast.Expr {
	var out []ast.Expr
	for _, p := range expandParams(fl) {
		out = append(out, p.Type)
	}
	return out
}

// FuncFromType builds a FuncDecl from a function signature.
func FuncFromType(name string, ft *ast.FuncType, doc Doc) *FuncDecl {
	fd := &FuncDecl{
		Name:    name,
		Params:  expandParams(ft.Params),
		Results: expandResults(ft.Results),
		Doc:     doc,
	}
	fd.TypeParams = FieldNames(ft.TypeParams)
	return fd
}

// FieldNames returns the names declared by a field list, such as a type
// parameter list.
func FieldNames(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var out []string
	for _, f := range fl.List {
		for _, n := range f.Names {
			out = append(out, n.Name)
		}
	}
	return out
}

// ReceiverBase returns the base type name and type parameter names of a
// receiver type expression such as *List[T].
func ReceiverBase(expr ast.Expr) (string, []string) {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			return identName(e.X), identNames(e.Index)
		case *ast.IndexListExpr:
			return identName(e.X), identNames(e.Indices...)
		default:
			return identName(expr), nil
		}
	}
}

func identName(expr ast.Expr) string {
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func identNames(exprs ...ast.Expr) []string {
	var out []string
	for _, e := range exprs {
		if n := identName(e); n != "" && n != "_" {
			out = append(out, n)
		}
	}
	return out
}
