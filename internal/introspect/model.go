package introspect

import (
	"strings"
)

// TypeRef is a resolved type expression. Qualified spells every named type
// with its full import path ("example.com/api/geometry.Point"); Display
// spells it as in source ("geometry.Point", local types bare).
type TypeRef struct {
	Qualified string
	Display   string
}

// IsZero reports whether the reference is absent.
func (r TypeRef) IsZero() bool {
	return r.Qualified == "" && r.Display == ""
}

// Form is the shape of a defined type.
type Form int

const (
	FormOther Form = iota
	FormStruct
	FormInterface
)

// API is the resolved model of one artifact.
type API struct {
	Module   string
	Packages []*Package
}

// Package is one Go package of the artifact.
type Package struct {
	Path     string
	Name     string
	Internal bool
	Types    []*Type
	// Funcs are package-level functions that are not constructors.
	Funcs []*Func
	// Values are package-level constants and variables not bound to a
	// local type.
	Values []*Field
}

// Type is a defined type or alias.
type Type struct {
	Name       string
	Form       Form
	Alias      bool
	TypeParams []string
	// Parents lists embedded types, or the underlying type expression of a
	// type that is neither a struct nor an interface.
	Parents     []TypeRef
	Exported    bool
	Synthesized bool
	Deprecated  bool
	Annotation  Annotation

	Fields       []*Field
	Methods      []*Func
	Constructors []*Func
	// Constants are the package-level constants and variables whose type
	// is this type. Variables sharing a name with a field are left in
	// Package.Values.
	Constants []*Field
}

// HasField reports whether t has a field or constant called name.
func (t *Type) HasField(name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	for _, c := range t.Constants {
		if c.Name == name {
			return true
		}
	}
	return false
}

// QualifiedName returns pkgPath + "." + Name.
func (t *Type) QualifiedName(pkgPath string) string {
	return pkgPath + "." + t.Name
}

// Enumerated reports whether at least one constant has this type.
func (t *Type) Enumerated() bool {
	for _, c := range t.Constants {
		if c.Const {
			return true
		}
	}
	return false
}

// Field is a struct field or a package-level value.
type Field struct {
	Name        string
	Type        TypeRef
	Const       bool
	Exported    bool
	Synthesized bool
	Deprecated  bool
	Annotation  Annotation
}

// Func is a method, interface method, constructor or function.
type Func struct {
	Name        string
	Params      []TypeRef
	Variadic    bool
	Results     []TypeRef
	Exported    bool
	Synthesized bool
	Deprecated  bool
	Annotation  Annotation
}

// Signature returns Name(T1, T2) with fully qualified parameter types.
func (f *Func) Signature() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if f.Variadic && i == len(f.Params)-1 {
			b.WriteString("...")
		}
		b.WriteString(p.Qualified)
	}
	b.WriteByte(')')
	return b.String()
}

// Result returns the display form of the results: empty for none, the
// type for one, "(A, B)" for several.
func (f *Func) Result() string {
	switch len(f.Results) {
	case 0:
		return ""
	case 1:
		return f.Results[0].Display
	}
	parts := make([]string, len(f.Results))
	for i, r := range f.Results {
		parts[i] = r.Display
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
