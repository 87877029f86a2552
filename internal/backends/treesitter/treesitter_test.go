//go:build cgo

package treesitter

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apidiff/internal/introspect"
)

const sample = `package metadata

import (
	"time"
	geo "example.com/geoapi/geometry"
)

// Citation is a standardized resource reference.
//
//uml:identifier=CI_Citation obligation=mandatory specification=ISO_19115
type Citation interface {
	// Title returns the name of the resource.
	Title() string
	Dates() ([]time.Time, error)
}

type Point struct {
	geo.Position
	X, Y float64
	// Deprecated: use Z.
	Height float64
}

const (
	Owner Role = iota
	Custodian
)

// NewPoint creates a point.
func NewPoint(x, y float64) *Point { return &Point{X: x, Y: y} }

func (p *Point) Move(dx float64, rest ...float64) {}
`

func TestParseFile(t *testing.T) {
	f, err := NewParser().ParseFile("metadata/citation.go", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "metadata", f.Package)
	assert.Equal(t, []introspect.Import{
		{Path: "time"},
		{Name: "geo", Path: "example.com/geoapi/geometry"},
	}, f.Imports)

	require.Len(t, f.Types, 2)
	citation := f.Types[0]
	assert.Equal(t, "Citation", citation.Name)
	assert.IsType(t, &ast.InterfaceType{}, citation.Expr)
	assert.Equal(t, "CI_Citation", citation.Doc.Annotation().Identifier)
	require.Len(t, citation.Methods, 2)
	assert.Equal(t, "Title", citation.Methods[0].Name)
	assert.Equal(t, "Title returns the name of the resource.", citation.Methods[0].Doc.Text())
	assert.Len(t, citation.Methods[1].Results, 2)

	point := f.Types[1]
	assert.IsType(t, &ast.StructType{}, point.Expr)
	require.Len(t, point.Embeds, 1)
	assert.IsType(t, &ast.SelectorExpr{}, point.Embeds[0])
	require.Len(t, point.Fields, 2)
	assert.Equal(t, []string{"X", "Y"}, point.Fields[0].Names)
	assert.True(t, point.Fields[1].Doc.Deprecated())

	require.Len(t, f.Values, 2)
	assert.NotNil(t, f.Values[1].Type)
	assert.True(t, f.Values[1].Const)

	require.Len(t, f.Funcs, 2)
	assert.Equal(t, "NewPoint creates a point.", f.Funcs[0].Doc.Text())
	move := f.Funcs[1]
	assert.Equal(t, "Point", move.Recv)
	require.Len(t, move.Params, 2)
	assert.True(t, move.Params[1].Variadic)
}

func TestParseFileSyntaxError(t *testing.T) {
	_, err := NewParser().ParseFile("bad.go", []byte("package x\n\nfunc {"))
	assert.Error(t, err)
}

func TestAvailable(t *testing.T) {
	assert.True(t, Available())
	b, err := New(introspect.WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
}
