package element

import (
	"apidiff/internal/errors"
)

// Record is the flat form of an element. Parent indexes an earlier record
// of the same slice, -1 for packages.
type Record struct {
	Parent     int    `json:"parent" yaml:"parent"`
	Kind       Kind   `json:"kind" yaml:"kind"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Obligation string `json:"obligation,omitempty" yaml:"obligation,omitempty"`
	Public     bool   `json:"public" yaml:"public"`
	Deprecated bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// ToRecords flattens s. Every container must be a member of s and precede
// its members.
func ToRecords(s *Set) ([]Record, error) {
	elems := s.Elements()
	index := make(map[*Element]int, len(elems))
	records := make([]Record, 0, len(elems))
	for i, e := range elems {
		parent := -1
		if e.container != nil {
			p, ok := index[e.container]
			if !ok {
				return nil, errors.Newf(errors.IntegrityError, "container of %s is not recorded before it", e.kind).
					WithInput(e.QualifiedName())
			}
			parent = p
		}
		index[e] = i
		records = append(records, Record{
			Parent:     parent,
			Kind:       e.kind,
			Name:       e.name,
			Type:       e.typ,
			Identifier: e.identifier,
			Obligation: e.obligation,
			Public:     e.public,
			Deprecated: e.deprecated,
		})
	}
	return records, nil
}

// FromRecords rebuilds a set from ToRecords output.
func FromRecords(records []Record) (*Set, error) {
	s := NewSet()
	built := make([]*Element, len(records))
	for i, r := range records {
		var container *Element
		if r.Parent >= 0 {
			if r.Parent >= i {
				return nil, errors.Newf(errors.IntegrityError, "record %d refers to parent %d", i, r.Parent).
					WithInput(r.Name)
			}
			container = built[r.Parent]
		}
		e := New(Spec{
			Container:  container,
			Kind:       r.Kind,
			Type:       r.Type,
			Name:       r.Name,
			Identifier: r.Identifier,
			Obligation: r.Obligation,
			Public:     r.Public,
			Deprecated: r.Deprecated,
		})
		if err := s.Add(e); err != nil {
			return nil, err
		}
		built[i] = e
	}
	return s, nil
}
