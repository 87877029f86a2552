package element

import (
	"fmt"
	"strings"
)

// Change is an (old, new) pair for one attribute.
type Change[T comparable] struct {
	Old T `json:"old"`
	New T `json:"new"`
}

func diff[T comparable](old, new T) *Change[T] {
	if old == new {
		return nil
	}
	return &Change[T]{Old: old, New: new}
}

// Changes is the difference between two versions of one element. A removal
// record carries nothing but Removed.
type Changes struct {
	Removed    bool            `json:"removed,omitempty"`
	Identifier *Change[string] `json:"identifier,omitempty"`
	Type       *Change[string] `json:"type,omitempty"`
	Obligation *Change[string] `json:"obligation,omitempty"`
	Public     *Change[bool]   `json:"public,omitempty"`
	Deprecated *Change[bool]   `json:"deprecated,omitempty"`
	// MovedTo names the sibling member that received the UML annotation
	// this element lost.
	MovedTo string `json:"movedTo,omitempty"`
}

// NewChanges compares old with new. A nil new yields a removal record.
// Every differing attribute is recorded.
func NewChanges(old, new *Element) *Changes {
	if new == nil {
		return Removal()
	}
	return &Changes{
		Identifier: diff(old.identifier, new.identifier),
		Type:       diff(old.typ, new.typ),
		Obligation: diff(old.obligation, new.obligation),
		Public:     diff(old.public, new.public),
		Deprecated: diff(old.deprecated, new.deprecated),
	}
}

// Removal returns a removal record.
func Removal() *Changes {
	return &Changes{Removed: true}
}

// IsUMLRemoved reports whether the old element had both an identifier and
// an obligation and the new element has neither.
func (c *Changes) IsUMLRemoved() bool {
	return c.Identifier != nil && c.Obligation != nil &&
		c.Identifier.Old != "" && c.Obligation.Old != "" &&
		c.Identifier.New == "" && c.Obligation.New == ""
}

// MarkMovedTo records that the UML annotation moved to the named sibling.
func (c *Changes) MarkMovedTo(member string) {
	c.MovedTo = member
}

// IsEmpty reports whether nothing changed.
func (c *Changes) IsEmpty() bool {
	return !c.Removed &&
		c.Identifier == nil && c.Type == nil && c.Obligation == nil &&
		c.Public == nil && c.Deprecated == nil &&
		c.MovedTo == ""
}

// Descriptions renders the recorded changes as short phrases for an
// element of the given kind, e.g. `Return type changed from "string" to "int"`.
// A removal has no descriptions.
func (c *Changes) Descriptions(kind Kind) []string {
	if c == nil || c.Removed {
		return nil
	}
	var out []string
	if c.MovedTo != "" {
		out = append(out, "UML moved to "+c.MovedTo)
	} else if c.Identifier != nil {
		out = append(out, changed("Identifier", c.Identifier))
	}
	if c.Type != nil {
		out = append(out, changed(typeLabel(kind), c.Type))
	}
	if c.Obligation != nil && c.MovedTo == "" {
		out = append(out, changed("Obligation", c.Obligation))
	}
	if c.Public != nil {
		if c.Public.New {
			out = append(out, "Public")
		} else {
			out = append(out, "Protected")
		}
	}
	if c.Deprecated != nil {
		if c.Deprecated.New {
			out = append(out, "Deprecated")
		} else {
			out = append(out, "Undeprecated")
		}
	}
	return out
}

// Summary joins Descriptions with commas.
func (c *Changes) Summary(kind Kind) string {
	return strings.Join(c.Descriptions(kind), ", ")
}

func typeLabel(kind Kind) string {
	switch {
	case kind == Method:
		return "Return type"
	case kind.IsType():
		return "Parent"
	default:
		return "Type"
	}
}

func changed(label string, c *Change[string]) string {
	return fmt.Sprintf("%s changed from %s to %s", label, quoteOrNone(c.Old), quoteOrNone(c.New))
}

func quoteOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return `"` + s + `"`
}
