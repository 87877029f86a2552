// Package source reads declarations with go/parser.
package source

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	"apidiff/internal/introspect"
)

// Name is the backend name used in configuration.
const Name = "source"

// Parser is the go/parser FileParser.
type Parser struct{}

// New returns a SourceBackend reading files with go/parser.
func New(opts introspect.WalkOptions) *introspect.SourceBackend {
	return introspect.NewSourceBackend(Name, Parser{}, opts)
}

// ParseFile implements introspect.FileParser.
func (Parser) ParseFile(path string, src []byte) (*introspect.File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	return Convert(af), nil
}

// Convert turns a parsed file into the declaration layer.
func Convert(af *ast.File) *introspect.File {
	f := &introspect.File{
		Package:   af.Name.Name,
		Generated: ast.IsGenerated(af),
	}
	for _, spec := range af.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		switch {
		case spec.Name == nil:
			f.Imports = append(f.Imports, introspect.Import{Path: p})
		case spec.Name.Name == ".":
			f.DotImports = append(f.DotImports, p)
		case spec.Name.Name == "_":
		default:
			f.Imports = append(f.Imports, introspect.Import{Name: spec.Name.Name, Path: p})
		}
	}

	for _, decl := range af.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			f.Funcs = append(f.Funcs, funcDecl(d))
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					f.Types = append(f.Types, typeDecl(d, spec.(*ast.TypeSpec)))
				}
			case token.CONST, token.VAR:
				f.Values = append(f.Values, valueDecls(d)...)
			}
		}
	}
	return f
}

// specDoc returns the doc of a spec, falling back to the doc of its
// declaration when the declaration holds a single spec.
func specDoc(d *ast.GenDecl, own *ast.CommentGroup) introspect.Doc {
	if own != nil {
		return introspect.DocFromGroup(own)
	}
	if len(d.Specs) == 1 {
		return introspect.DocFromGroup(d.Doc)
	}
	return nil
}

func funcDecl(d *ast.FuncDecl) *introspect.FuncDecl {
	fd := introspect.FuncFromType(d.Name.Name, d.Type, introspect.DocFromGroup(d.Doc))
	if d.Recv != nil && len(d.Recv.List) > 0 {
		fd.Recv, fd.TypeParams = introspect.ReceiverBase(d.Recv.List[0].Type)
	}
	return fd
}

func typeDecl(d *ast.GenDecl, ts *ast.TypeSpec) *introspect.TypeDecl {
	td := &introspect.TypeDecl{
		Name:       ts.Name.Name,
		TypeParams: introspect.FieldNames(ts.TypeParams),
		Alias:      ts.Assign.IsValid(),
		Expr:       ts.Type,
		Doc:        specDoc(d, ts.Doc),
	}
	switch t := ts.Type.(type) {
	case *ast.StructType:
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				td.Embeds = append(td.Embeds, field.Type)
				continue
			}
			fd := &introspect.FieldDecl{
				Type: field.Type,
				Doc:  introspect.DocFromGroup(field.Doc),
			}
			for _, n := range field.Names {
				fd.Names = append(fd.Names, n.Name)
			}
			if field.Tag != nil {
				fd.Tag = field.Tag.Value
			}
			td.Fields = append(td.Fields, fd)
		}
	case *ast.InterfaceType:
		for _, field := range t.Methods.List {
			ft, ok := field.Type.(*ast.FuncType)
			if !ok || len(field.Names) == 0 {
				td.Embeds = append(td.Embeds, field.Type)
				continue
			}
			for _, n := range field.Names {
				td.Methods = append(td.Methods, introspect.FuncFromType(n.Name, ft, introspect.DocFromGroup(field.Doc)))
			}
		}
	}
	return td
}

// valueDecls converts a const or var declaration. Within a const group a
// spec without type or values repeats the previous spec.
func valueDecls(d *ast.GenDecl) []*introspect.ValueDecl {
	var out []*introspect.ValueDecl
	var prevType ast.Expr
	var prevValues []ast.Expr
	isConst := d.Tok == token.CONST
	for _, spec := range d.Specs {
		vs := spec.(*ast.ValueSpec)
		typ, values := vs.Type, vs.Values
		if isConst {
			if typ == nil && len(values) == 0 {
				typ, values = prevType, prevValues
			} else {
				prevType, prevValues = typ, values
			}
		}
		vd := &introspect.ValueDecl{
			Type:   typ,
			Values: values,
			Const:  isConst,
			Doc:    specDoc(d, vs.Doc),
		}
		for _, n := range vs.Names {
			vd.Names = append(vd.Names, n.Name)
		}
		out = append(out, vd)
	}
	return out
}
