//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"strconv"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"apidiff/internal/introspect"
)

// Available reports whether the backend was built with cgo.
func Available() bool {
	return true
}

// New returns a SourceBackend reading files with tree-sitter.
func New(opts introspect.WalkOptions) (*introspect.SourceBackend, error) {
	return introspect.NewSourceBackend(Name, NewParser(), opts), nil
}

// Parser is the tree-sitter FileParser. Declarations are located in the
// syntax tree; type expressions are handed to go/parser.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a parser for the Go grammar.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile implements introspect.FileParser.
func (p *Parser) ParseFile(path string, src []byte) (*introspect.File, error) {
	p.mu.Lock()
	tree, err := p.parser.ParseCtx(context.Background(), nil, src)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			return nil, fmt.Errorf("%s:%d: syntax error", path, bad.StartPoint().Row+1)
		}
		return nil, fmt.Errorf("%s: syntax error", path)
	}

	c := &converter{src: src, file: &introspect.File{}}
	if err := c.sourceFile(root); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c.file, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

type converter struct {
	src  []byte
	file *introspect.File
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// expr parses the text of a type or value node.
func (c *converter) expr(n *sitter.Node) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	return parseExpr(c.text(n))
}

func parseExpr(text string) (ast.Expr, error) {
	e, err := parser.ParseExpr(text)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q: %w", text, err)
	}
	return e, nil
}

func (c *converter) sourceFile(root *sitter.Node) error {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		var err error
		switch n.Type() {
		case "package_clause":
			c.file.Package = c.text(namedChildOfType(n, "package_identifier"))
		case "import_declaration":
			c.imports(n)
		case "function_declaration", "method_declaration":
			err = c.function(n)
		case "type_declaration":
			err = c.typeDeclaration(n)
		case "const_declaration", "var_declaration":
			err = c.valueDeclaration(n, n.Type() == "const_declaration")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) imports(n *sitter.Node) {
	for _, spec := range descendantsOfType(n, "import_spec") {
		p, err := strconv.Unquote(c.text(spec.ChildByFieldName("path")))
		if err != nil {
			continue
		}
		name := c.text(spec.ChildByFieldName("name"))
		switch name {
		case "":
			c.file.Imports = append(c.file.Imports, introspect.Import{Path: p})
		case ".":
			c.file.DotImports = append(c.file.DotImports, p)
		case "_":
		default:
			c.file.Imports = append(c.file.Imports, introspect.Import{Name: name, Path: p})
		}
	}
}

// doc collects the comment siblings ending on the line just above n.
func (c *converter) doc(n *sitter.Node) introspect.Doc {
	var lines []string
	line := n.StartPoint().Row
	for prev := n.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		if prev.EndPoint().Row+1 != line {
			break
		}
		if before := prev.PrevSibling(); before != nil && before.EndPoint().Row == prev.StartPoint().Row {
			break
		}
		lines = append([]string{c.text(prev)}, lines...)
		line = prev.StartPoint().Row
	}
	if len(lines) == 0 {
		return nil
	}
	return introspect.Doc(lines)
}

// signature builds a FuncDecl from the parameters and result nodes of n.
func (c *converter) signature(name string, n *sitter.Node, doc introspect.Doc) (*introspect.FuncDecl, error) {
	text := "func" + c.text(n.ChildByFieldName("parameters"))
	if result := n.ChildByFieldName("result"); result != nil {
		text += " " + c.text(result)
	}
	e, err := parseExpr(text)
	if err != nil {
		return nil, err
	}
	ft, ok := e.(*ast.FuncType)
	if !ok {
		return nil, fmt.Errorf("unexpected signature %q", text)
	}
	fd := introspect.FuncFromType(name, ft, doc)
	fd.TypeParams = c.typeParams(n.ChildByFieldName("type_parameters"))
	return fd, nil
}

func (c *converter) typeParams(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var names []string
	for _, decl := range descendantsOfType(n, "type_parameter_declaration") {
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			if child := decl.NamedChild(i); child.Type() == "identifier" {
				names = append(names, c.text(child))
			}
		}
	}
	return names
}

func (c *converter) function(n *sitter.Node) error {
	fd, err := c.signature(c.text(n.ChildByFieldName("name")), n, c.doc(n))
	if err != nil {
		return err
	}
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		params := namedChildOfType(recv, "parameter_declaration")
		if params == nil {
			return fmt.Errorf("method %s has no receiver", fd.Name)
		}
		e, err := c.expr(params.ChildByFieldName("type"))
		if err != nil {
			return err
		}
		fd.Recv, fd.TypeParams = introspect.ReceiverBase(e)
	}
	c.file.Funcs = append(c.file.Funcs, fd)
	return nil
}

func (c *converter) typeDeclaration(n *sitter.Node) error {
	var specs []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "type_spec" || child.Type() == "type_alias" {
			specs = append(specs, child)
		}
	}
	for _, spec := range specs {
		doc := c.doc(spec)
		if doc == nil && len(specs) == 1 {
			doc = c.doc(n)
		}
		td, err := c.typeSpec(spec, doc)
		if err != nil {
			return err
		}
		c.file.Types = append(c.file.Types, td)
	}
	return nil
}

func (c *converter) typeSpec(spec *sitter.Node, doc introspect.Doc) (*introspect.TypeDecl, error) {
	typeNode := spec.ChildByFieldName("type")
	e, err := c.expr(typeNode)
	if err != nil {
		return nil, err
	}
	td := &introspect.TypeDecl{
		Name:       c.text(spec.ChildByFieldName("name")),
		TypeParams: c.typeParams(spec.ChildByFieldName("type_parameters")),
		Alias:      spec.Type() == "type_alias",
		Expr:       e,
		Doc:        doc,
	}
	switch typeNode.Type() {
	case "struct_type":
		err = c.structFields(td, typeNode)
	case "interface_type":
		err = c.interfaceElems(td, typeNode)
	}
	return td, err
}

func (c *converter) structFields(td *introspect.TypeDecl, st *sitter.Node) error {
	list := namedChildOfType(st, "field_declaration_list")
	if list == nil {
		return nil
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		field := list.NamedChild(i)
		if field.Type() != "field_declaration" {
			continue
		}
		var names []string
		for j := 0; j < int(field.NamedChildCount()); j++ {
			if child := field.NamedChild(j); child.Type() == "field_identifier" {
				names = append(names, c.text(child))
			}
		}
		tag := c.text(field.ChildByFieldName("tag"))

		if len(names) == 0 {
			// Embedded fields may carry a leading '*' outside the type node.
			text := c.text(field)
			if tag != "" {
				text = strings.TrimSuffix(strings.TrimSpace(text), tag)
			}
			e, err := parseExpr(strings.TrimSpace(text))
			if err != nil {
				return err
			}
			td.Embeds = append(td.Embeds, e)
			continue
		}

		e, err := c.expr(field.ChildByFieldName("type"))
		if err != nil {
			return err
		}
		td.Fields = append(td.Fields, &introspect.FieldDecl{
			Names: names,
			Type:  e,
			Tag:   tag,
			Doc:   c.doc(field),
		})
	}
	return nil
}

func (c *converter) interfaceElems(td *introspect.TypeDecl, it *sitter.Node) error {
	for i := 0; i < int(it.NamedChildCount()); i++ {
		elem := it.NamedChild(i)
		switch elem.Type() {
		case "comment":
		case "method_elem", "method_spec":
			fd, err := c.signature(c.text(elem.ChildByFieldName("name")), elem, c.doc(elem))
			if err != nil {
				return err
			}
			td.Methods = append(td.Methods, fd)
		default:
			e, err := c.expr(elem)
			if err != nil {
				return err
			}
			td.Embeds = append(td.Embeds, e)
		}
	}
	return nil
}

// valueDeclaration converts const and var declarations. Const specs without
// type and values repeat the previous spec.
func (c *converter) valueDeclaration(n *sitter.Node, isConst bool) error {
	specType := "var_spec"
	if isConst {
		specType = "const_spec"
	}
	specs := descendantsOfType(n, specType)

	var prevType ast.Expr
	var prevValues []ast.Expr
	for _, spec := range specs {
		typ, err := c.expr(spec.ChildByFieldName("type"))
		if err != nil {
			return err
		}
		var values []ast.Expr
		if list := spec.ChildByFieldName("value"); list != nil {
			for i := 0; i < int(list.NamedChildCount()); i++ {
				v, err := c.expr(list.NamedChild(i))
				if err != nil {
					return err
				}
				values = append(values, v)
			}
		}
		if isConst {
			if typ == nil && len(values) == 0 {
				typ, values = prevType, prevValues
			} else {
				prevType, prevValues = typ, values
			}
		}

		doc := c.doc(spec)
		if doc == nil && len(specs) == 1 {
			doc = c.doc(n)
		}
		vd := &introspect.ValueDecl{Type: typ, Values: values, Const: isConst, Doc: doc}
		for i := 0; i < int(spec.NamedChildCount()); i++ {
			if child := spec.NamedChild(i); child.Type() == "identifier" {
				vd.Names = append(vd.Names, c.text(child))
			}
		}
		c.file.Values = append(c.file.Values, vd)
	}
	return nil
}

func namedChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			return child
		}
	}
	return nil
}

// descendantsOfType returns the nodes of type typ below n, not descending
// into matches.
func descendantsOfType(n *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == typ {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(n)
	return out
}
