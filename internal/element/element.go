// Package element models the API elements compared between two releases:
// packages, types and their members, with identity rules that survive
// attribute changes across versions.
package element

import (
	"fmt"
	"strings"
)

// Spec holds the attributes of a new Element.
type Spec struct {
	Container  *Element
	Kind       Kind
	Type       string
	Name       string
	Identifier string
	Obligation string
	Public     bool
	Deprecated bool
}

// Element describes one API element. All attributes are fixed at
// construction; only the change record is assigned later, once.
type Element struct {
	container  *Element
	kind       Kind
	typ        string
	name       string
	identifier string
	obligation string
	public     bool
	deprecated bool

	changes *Changes
}

// New creates an element. Blank identifier and obligation values are
// stored as absent.
func New(s Spec) *Element {
	return &Element{
		container:  s.Container,
		kind:       s.Kind,
		typ:        strings.TrimSpace(s.Type),
		name:       s.Name,
		identifier: strings.TrimSpace(s.Identifier),
		obligation: strings.TrimSpace(s.Obligation),
		public:     s.Public,
		deprecated: s.Deprecated,
	}
}

func (e *Element) Container() *Element { return e.container }
func (e *Element) Kind() Kind          { return e.kind }

// Type is the field type, the result type of a method or constructor, or
// the first parent of a type. Empty when absent.
func (e *Element) Type() string { return e.typ }

// Name is the simple type name, the signature name of a method or
// constructor, or the import path of a package.
func (e *Element) Name() string { return e.name }

func (e *Element) Identifier() string { return e.identifier }
func (e *Element) Obligation() string { return e.obligation }
func (e *Element) IsPublic() bool     { return e.public }
func (e *Element) IsDeprecated() bool { return e.deprecated }

// Changes returns the change record, or nil if the element is unchanged or
// was not compared.
func (e *Element) Changes() *Changes { return e.changes }

// SameAs reports whether e and other denote the same logical element: the
// same container chain, name and kind. No other attribute is considered.
func (e *Element) SameAs(other *Element) bool {
	for a, b := e, other; ; a, b = a.container, b.container {
		if a == b {
			return true
		}
		if a == nil || b == nil || a.kind != b.kind || a.name != b.name {
			return false
		}
	}
}

// Equal reports whether e and other are the same element with identical
// attributes.
func (e *Element) Equal(other *Element) bool {
	return e.SameAs(other) &&
		e.typ == other.typ &&
		e.identifier == other.identifier &&
		e.obligation == other.obligation &&
		e.public == other.public &&
		e.deprecated == other.deprecated
}

// Key returns a string that is equal for two elements exactly when SameAs
// holds between them.
func (e *Element) Key() string {
	var b strings.Builder
	e.writeKey(&b)
	return b.String()
}

func (e *Element) writeKey(b *strings.Builder) {
	if e.container != nil {
		e.container.writeKey(b)
		b.WriteString(" > ")
	}
	b.WriteString(e.kind.String())
	b.WriteByte(' ')
	b.WriteString(e.name)
}

// Package returns the package element e belongs to (e itself for a package).
func (e *Element) Package() *Element {
	p := e
	for p.container != nil {
		p = p.container
	}
	return p
}

// EnclosingType returns the type declaring a member, or nil for packages,
// types and package-level members.
func (e *Element) EnclosingType() *Element {
	if e.container == nil || e.container.kind == Package {
		return nil
	}
	return e.container
}

// QualifiedName joins the container chain with dots: "example.com/api.Foo.Bar(int)".
func (e *Element) QualifiedName() string {
	if e.container == nil {
		return e.name
	}
	return e.container.QualifiedName() + "." + e.name
}

func (e *Element) String() string {
	return fmt.Sprintf("%s %s", e.kind, e.QualifiedName())
}

// CompareWith records the changes from old to e. old must denote the same
// element. Panics if a change record was already assigned.
func (e *Element) CompareWith(old *Element) {
	e.setChanges(NewChanges(old, e))
}

// MarkAsRemoved records that e has no counterpart in the newer release.
// Panics if a change record was already assigned.
func (e *Element) MarkAsRemoved() {
	e.setChanges(Removal())
}

func (e *Element) setChanges(c *Changes) {
	if e.changes != nil {
		panic(fmt.Sprintf("element: change record of %s assigned twice", e))
	}
	e.changes = c
}

// clone copies e and its container chain through memo, without the
// change record.
func (e *Element) clone(memo map[*Element]*Element) *Element {
	if e == nil {
		return nil
	}
	if c, ok := memo[e]; ok {
		return c
	}
	c := *e
	c.changes = nil
	c.container = e.container.clone(memo)
	memo[e] = &c
	return &c
}
