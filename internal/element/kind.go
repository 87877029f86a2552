package element

import (
	"fmt"
	"strings"
)

// Kind classifies an API element. The declaration order is the order in
// which report sections appear.
type Kind int

const (
	Package Kind = iota
	Enum
	CodeList
	Class
	Interface
	Field
	Constructor
	Method
)

var kindNames = [...]string{
	Package:     "PACKAGE",
	Enum:        "ENUM",
	CodeList:    "CODE_LIST",
	Class:       "CLASS",
	Interface:   "INTERFACE",
	Field:       "FIELD",
	Constructor: "CONSTRUCTOR",
	Method:      "METHOD",
}

var kindHeadings = [...]string{
	Package:     "Packages",
	Enum:        "Enumerations",
	CodeList:    "Code lists",
	Class:       "Classes",
	Interface:   "Interfaces",
	Field:       "Fields",
	Constructor: "Constructors",
	Method:      "Methods",
}

// Kinds lists every kind in rendering order.
func Kinds() []Kind {
	return []Kind{Package, Enum, CodeList, Class, Interface, Field, Constructor, Method}
}

func (k Kind) valid() bool {
	return k >= Package && k <= Method
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Heading is the plural title of the report section listing elements of k.
func (k Kind) Heading() string {
	if !k.valid() {
		return k.String()
	}
	return kindHeadings[k]
}

// IsMember reports whether k is declared inside a type.
func (k Kind) IsMember() bool {
	return k == Field || k == Constructor || k == Method
}

// IsType reports whether k denotes a type declaration.
func (k Kind) IsType() bool {
	return k == Enum || k == CodeList || k == Class || k == Interface
}

// ParseKind parses a kind name ("METHOD", "method" or "code_list").
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == upper {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid element kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
