package report

import (
	"sort"

	"apidiff/internal/element"
)

// Compare matches the elements of two releases of one artifact and returns
// the elements to report, sorted for rendering. Matched elements carry their
// change record, removed ones a removal record, added ones none. The inputs
// are cloned and left untouched.
func Compare(old, new *element.Set) []*element.Element {
	olds := old.Clone()
	news := new.Clone()

	// Unchanged elements are not reported.
	for _, n := range news.Elements() {
		if o, ok := olds.Lookup(n); ok && o.Equal(n) {
			olds.Remove(o)
			news.Remove(n)
		}
	}

	var matched []*element.Element
	for _, n := range news.Elements() {
		o, ok := olds.Lookup(n)
		if !ok {
			continue
		}
		n.CompareWith(o)
		olds.Remove(o)
		matched = append(matched, n)
	}
	for _, n := range matched {
		markIfMoved(n, news)
	}

	additions := make(map[*element.Element]bool)
	for _, n := range news.Elements() {
		if n.Changes() == nil {
			additions[n] = true
		}
	}

	// Newly added but already deprecated elements are slated for removal.
	for n := range additions {
		if n.IsDeprecated() {
			news.Remove(n)
		}
	}
	// Only the top-level addition is reported, not its members.
	for _, n := range news.Elements() {
		if additions[n.Container()] {
			news.Remove(n)
		}
	}

	out := news.Elements()
	for _, o := range olds.Elements() {
		o.MarkAsRemoved()
		out = append(out, o)
	}
	Sort(out)
	return out
}

// markIfMoved records on n the sibling that received the UML annotation n
// lost: the remaining new element of the same container whose identifier and
// obligation equal the old ones. The match is approximate; two unrelated
// members sharing both values are indistinguishable.
func markIfMoved(n *element.Element, news *element.Set) {
	c := n.Changes()
	if c == nil || !c.IsUMLRemoved() {
		return
	}
	for _, sibling := range news.Elements() {
		if sibling == n || !sameContainer(sibling, n) {
			continue
		}
		if sibling.Identifier() == c.Identifier.Old && sibling.Obligation() == c.Obligation.Old {
			c.MarkMovedTo(sibling.Name())
			return
		}
	}
}

func sameContainer(a, b *element.Element) bool {
	if a.Container() == nil || b.Container() == nil {
		return a.Container() == b.Container()
	}
	return a.Container().SameAs(b.Container())
}

// Sort orders elements by package, then packages and types before members,
// then container name and element name. Ties are broken by kind and by
// placing removals first.
func Sort(elems []*element.Element) {
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i], elems[j]
		if pa, pb := a.Package().Name(), b.Package().Name(); pa != pb {
			return pa < pb
		}
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if ca, cb := containerName(a), containerName(b); ca != cb {
			return ca < cb
		}
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		return isRemoved(a) && !isRemoved(b)
	})
}

func rank(e *element.Element) int {
	switch {
	case e.Kind() == element.Package:
		return 0
	case e.Kind().IsMember():
		return 2
	}
	return 1
}

// containerName is the enclosing type name of a member, the package name
// of a package-level member and empty for types and packages.
func containerName(e *element.Element) string {
	if !e.Kind().IsMember() || e.Container() == nil {
		return ""
	}
	return e.Container().Name()
}

func isRemoved(e *element.Element) bool {
	return e.Changes() != nil && e.Changes().Removed
}
