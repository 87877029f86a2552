package source

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apidiff/internal/introspect"
)

const sample = `// Package metadata mirrors ISO 19115.
package metadata

import (
	"time"
	geo "example.com/geoapi/geometry"
	. "example.com/geoapi/util"
	_ "embed"
)

// Citation is a standardized resource reference.
//
//uml:identifier=CI_Citation obligation=mandatory specification=ISO_19115
type Citation interface {
	Identified
	// Title returns the name of the resource.
	//uml:identifier=title obligation=mandatory
	Title() string
	Dates() ([]time.Time, error)
}

type (
	// Role is a function performed by a party.
	Role int

	Point struct {
		geo.Position
		*Base
		X, Y float64 ` + "`uml:\"x,mandatory\"`" + `
		// Deprecated: use Z.
		Height float64
	}
)

// Roles.
const (
	// Owner owns the resource.
	Owner Role = iota
	Custodian
	limit = 3
)

var Default = NewPoint(0, 0)

// NewPoint creates a point.
func NewPoint(x, y float64) *Point { return &Point{X: x, Y: y} }

func (p *Point) Move(dx float64, rest ...float64) {}

func (l *List[T]) Push(v T) {}
`

func TestConvert(t *testing.T) {
	f, err := Parser{}.ParseFile("metadata/citation.go", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "metadata", f.Package)
	assert.False(t, f.Generated)
	assert.Equal(t, []introspect.Import{
		{Path: "time"},
		{Name: "geo", Path: "example.com/geoapi/geometry"},
	}, f.Imports)
	assert.Equal(t, []string{"example.com/geoapi/util"}, f.DotImports)

	require.Len(t, f.Types, 3)

	citation := f.Types[0]
	assert.Equal(t, "Citation", citation.Name)
	assert.IsType(t, &ast.InterfaceType{}, citation.Expr)
	assert.Equal(t, introspect.Annotation{
		Identifier:    "CI_Citation",
		Obligation:    "mandatory",
		Specification: "ISO_19115",
	}, citation.Doc.Annotation())
	require.Len(t, citation.Embeds, 1)
	require.Len(t, citation.Methods, 2)
	assert.Equal(t, "Title", citation.Methods[0].Name)
	assert.Equal(t, "title", citation.Methods[0].Doc.Annotation().Identifier)
	assert.Len(t, citation.Methods[1].Results, 2)

	role := f.Types[1]
	assert.Equal(t, "Role", role.Name)
	assert.Equal(t, "Role is a function performed by a party.", role.Doc.Text())

	point := f.Types[2]
	assert.Nil(t, point.Doc)
	assert.Len(t, point.Embeds, 2)
	require.Len(t, point.Fields, 2)
	assert.Equal(t, []string{"X", "Y"}, point.Fields[0].Names)
	assert.Equal(t, "x", introspect.ParseTag(point.Fields[0].Tag).Identifier)
	assert.True(t, point.Fields[1].Doc.Deprecated())

	require.Len(t, f.Values, 4)
	assert.Equal(t, []string{"Owner"}, f.Values[0].Names)
	assert.Equal(t, "Owner owns the resource.", f.Values[0].Doc.Text())
	assert.Equal(t, []string{"Custodian"}, f.Values[1].Names)
	assert.NotNil(t, f.Values[1].Type, "iota type carried forward")
	assert.Nil(t, f.Values[2].Type)
	assert.True(t, f.Values[2].Const)
	assert.False(t, f.Values[3].Const)
	assert.Len(t, f.Values[3].Values, 1)

	require.Len(t, f.Funcs, 3)
	assert.Equal(t, "NewPoint", f.Funcs[0].Name)
	assert.Empty(t, f.Funcs[0].Recv)
	assert.Len(t, f.Funcs[0].Params, 2)
	move := f.Funcs[1]
	assert.Equal(t, "Point", move.Recv)
	require.Len(t, move.Params, 2)
	assert.True(t, move.Params[1].Variadic)
	push := f.Funcs[2]
	assert.Equal(t, "List", push.Recv)
	assert.Equal(t, []string{"T"}, push.TypeParams)
}

func TestConvertGenerated(t *testing.T) {
	src := "// Code generated by stringer. DO NOT EDIT.\n\npackage metadata\n\nfunc (r Role) String() string { return \"\" }\n"
	f, err := Parser{}.ParseFile("role_string.go", []byte(src))
	require.NoError(t, err)
	assert.True(t, f.Generated)
}

func TestConvertSyntaxError(t *testing.T) {
	_, err := Parser{}.ParseFile("bad.go", []byte("package x\n\nfunc {"))
	assert.Error(t, err)
}

func TestSingleSpecDoc(t *testing.T) {
	src := `package x

// Limit bounds results.
const Limit = 10

var (
	// A is first.
	A = 1
	B = 2
)
`
	f, err := Parser{}.ParseFile("x.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Values, 3)
	assert.Equal(t, "Limit bounds results.", f.Values[0].Doc.Text())
	assert.Equal(t, "A is first.", f.Values[1].Doc.Text())
	assert.Nil(t, f.Values[2].Doc)
}
