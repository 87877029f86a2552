package element

import (
	"apidiff/internal/errors"
)

// Set is an insertion-ordered collection of elements keyed by identity.
type Set struct {
	items []*Element // nil slots are removed elements
	pos   map[string]int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{pos: make(map[string]int)}
}

// Add inserts e. A second element with the same identity is an integrity
// fault and is rejected, never merged.
func (s *Set) Add(e *Element) error {
	key := e.Key()
	if _, ok := s.pos[key]; ok {
		return errors.Newf(errors.IntegrityError, "duplicate %s", e.kind).
			WithInput(e.QualifiedName()).
			WithDetails(map[string]string{"key": key})
	}
	s.pos[key] = len(s.items)
	s.items = append(s.items, e)
	return nil
}

// Get returns the element with the given identity key.
func (s *Set) Get(key string) (*Element, bool) {
	i, ok := s.pos[key]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// Lookup returns the member of s that is the same element as e.
func (s *Set) Lookup(e *Element) (*Element, bool) {
	return s.Get(e.Key())
}

// Contains reports whether s holds an element with the identity of e.
func (s *Set) Contains(e *Element) bool {
	_, ok := s.pos[e.Key()]
	return ok
}

// Remove deletes the element with the identity of e.
func (s *Set) Remove(e *Element) bool {
	key := e.Key()
	i, ok := s.pos[key]
	if !ok {
		return false
	}
	s.items[i] = nil
	delete(s.pos, key)
	if len(s.items) > 64 && len(s.pos) < len(s.items)/2 {
		s.compact()
	}
	return true
}

func (s *Set) compact() {
	items := make([]*Element, 0, len(s.pos))
	for _, e := range s.items {
		if e != nil {
			s.pos[e.Key()] = len(items)
			items = append(items, e)
		}
	}
	s.items = items
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.pos)
}

// Elements returns the elements in insertion order.
func (s *Set) Elements() []*Element {
	out := make([]*Element, 0, len(s.pos))
	for _, e := range s.items {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy of s. Containers are copied along with their
// members so that change records assigned to the copy never reach s. Change
// records are not copied.
func (s *Set) Clone() *Set {
	memo := make(map[*Element]*Element, len(s.pos))
	c := &Set{
		items: make([]*Element, 0, len(s.pos)),
		pos:   make(map[string]int, len(s.pos)),
	}
	for _, e := range s.items {
		if e == nil {
			continue
		}
		c.pos[e.Key()] = len(c.items)
		c.items = append(c.items, e.clone(memo))
	}
	return c
}
