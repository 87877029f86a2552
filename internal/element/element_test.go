package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apidiff/internal/errors"
)

func pkg(path string) *Element {
	return New(Spec{Kind: Package, Name: path, Public: true})
}

func TestSameAs_IgnoresAttributes(t *testing.T) {
	p1, p2 := pkg("example.com/api/filter"), pkg("example.com/api/filter")
	foo1 := New(Spec{Container: p1, Kind: Interface, Name: "Foo", Public: true})
	foo2 := New(Spec{Container: p2, Kind: Interface, Name: "Foo", Type: "Bar", Public: false, Deprecated: true})

	a := New(Spec{Container: foo1, Kind: Method, Name: "Bar(int)", Type: "string", Identifier: "barCode", Obligation: "MANDATORY", Public: true})
	b := New(Spec{Container: foo2, Kind: Method, Name: "Bar(int)", Type: "int", Identifier: "other", Deprecated: true})

	assert.True(t, a.SameAs(b))
	assert.True(t, b.SameAs(a))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(b))
}

func TestSameAs_DiffersOnIdentity(t *testing.T) {
	p := pkg("example.com/api")
	foo := New(Spec{Container: p, Kind: Interface, Name: "Foo"})
	bar := New(Spec{Container: p, Kind: Interface, Name: "Bar"})

	tests := []struct {
		name string
		a, b *Element
	}{
		{"name", New(Spec{Container: foo, Kind: Method, Name: "A()"}), New(Spec{Container: foo, Kind: Method, Name: "B()"})},
		{"kind", New(Spec{Container: foo, Kind: Method, Name: "A"}), New(Spec{Container: foo, Kind: Field, Name: "A"})},
		{"container", New(Spec{Container: foo, Kind: Method, Name: "A()"}), New(Spec{Container: bar, Kind: Method, Name: "A()"})},
		{"package", New(Spec{Container: p, Kind: Class, Name: "T"}), New(Spec{Container: pkg("example.com/other"), Kind: Class, Name: "T"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.a.SameAs(tt.b))
			assert.NotEqual(t, tt.a.Key(), tt.b.Key())
		})
	}
}

func TestEqual(t *testing.T) {
	p := pkg("example.com/api")
	a := New(Spec{Container: p, Kind: Field, Name: "x", Type: "int", Public: true})
	b := New(Spec{Container: pkg("example.com/api"), Kind: Field, Name: "x", Type: "int", Public: true})
	assert.True(t, a.Equal(b))

	c := New(Spec{Container: p, Kind: Field, Name: "x", Type: "int64", Public: true})
	assert.False(t, a.Equal(c))
}

func TestNew_TrimsBlankAnnotation(t *testing.T) {
	e := New(Spec{Kind: Class, Name: "T", Identifier: "   ", Obligation: " MANDATORY "})
	assert.Empty(t, e.Identifier())
	assert.Equal(t, "MANDATORY", e.Obligation())
}

func TestNavigation(t *testing.T) {
	p := pkg("example.com/api")
	foo := New(Spec{Container: p, Kind: Interface, Name: "Foo"})
	m := New(Spec{Container: foo, Kind: Method, Name: "Bar(int)"})
	f := New(Spec{Container: p, Kind: Method, Name: "Parse(string)"})

	assert.Same(t, p, m.Package())
	assert.Same(t, p, p.Package())
	assert.Same(t, foo, m.EnclosingType())
	assert.Nil(t, f.EnclosingType())
	assert.Nil(t, foo.EnclosingType())
	assert.Equal(t, "example.com/api.Foo.Bar(int)", m.QualifiedName())
	assert.Equal(t, "METHOD example.com/api.Foo.Bar(int)", m.String())
}

func TestChangeRecord_AssignedOnce(t *testing.T) {
	old := New(Spec{Kind: Class, Name: "T"})
	cur := New(Spec{Kind: Class, Name: "T", Deprecated: true})

	cur.CompareWith(old)
	require.NotNil(t, cur.Changes())
	assert.Panics(t, func() { cur.CompareWith(old) })
	assert.Panics(t, func() { cur.MarkAsRemoved() })

	old.MarkAsRemoved()
	assert.True(t, old.Changes().Removed)
	assert.Panics(t, func() { old.MarkAsRemoved() })
}

func TestSet_AddRejectsDuplicates(t *testing.T) {
	s := NewSet()
	p := pkg("example.com/api")
	require.NoError(t, s.Add(p))
	require.NoError(t, s.Add(New(Spec{Container: p, Kind: Class, Name: "T"})))

	err := s.Add(New(Spec{Container: p, Kind: Class, Name: "T", Deprecated: true}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.IntegrityError))
	assert.Equal(t, 2, s.Len())
}

func TestSet_OrderAndRemove(t *testing.T) {
	s := NewSet()
	p := pkg("example.com/api")
	names := []string{"C", "A", "B"}
	require.NoError(t, s.Add(p))
	for _, n := range names {
		require.NoError(t, s.Add(New(Spec{Container: p, Kind: Class, Name: n})))
	}

	var got []string
	for _, e := range s.Elements() {
		got = append(got, e.Name())
	}
	assert.Equal(t, []string{"example.com/api", "C", "A", "B"}, got)

	probe := New(Spec{Container: pkg("example.com/api"), Kind: Class, Name: "A"})
	assert.True(t, s.Contains(probe))
	found, ok := s.Lookup(probe)
	require.True(t, ok)
	assert.Equal(t, "A", found.Name())

	assert.True(t, s.Remove(probe))
	assert.False(t, s.Remove(probe))
	assert.False(t, s.Contains(probe))
	assert.Equal(t, 3, s.Len())
	assert.Len(t, s.Elements(), 3)

	require.NoError(t, s.Add(probe), "removed identity can be added again")
}

func TestSet_RemoveCompacts(t *testing.T) {
	s := NewSet()
	p := pkg("example.com/api")
	require.NoError(t, s.Add(p))
	var elems []*Element
	for i := 0; i < 200; i++ {
		e := New(Spec{Container: p, Kind: Field, Name: string(rune('A'+i%26)) + string(rune('a'+i/26))})
		elems = append(elems, e)
		require.NoError(t, s.Add(e))
	}
	for _, e := range elems[:150] {
		require.True(t, s.Remove(e))
	}
	assert.Equal(t, 51, s.Len())
	for _, e := range elems[150:] {
		got, ok := s.Get(e.Key())
		require.True(t, ok)
		assert.Same(t, e, got)
	}
}

func TestSet_CloneIsDeep(t *testing.T) {
	s := NewSet()
	p := pkg("example.com/api")
	foo := New(Spec{Container: p, Kind: Interface, Name: "Foo"})
	m := New(Spec{Container: foo, Kind: Method, Name: "Bar()"})
	for _, e := range []*Element{p, foo, m} {
		require.NoError(t, s.Add(e))
	}

	c := s.Clone()
	require.Equal(t, 3, c.Len())
	cm, ok := c.Lookup(m)
	require.True(t, ok)
	assert.NotSame(t, m, cm)
	assert.True(t, cm.Equal(m))

	cfoo, _ := c.Lookup(foo)
	assert.Same(t, cfoo, cm.Container(), "cloned members point at cloned containers")

	cm.MarkAsRemoved()
	assert.Nil(t, m.Changes())
}

func TestRecords_RoundTrip(t *testing.T) {
	s := NewSet()
	p := pkg("example.com/api")
	foo := New(Spec{Container: p, Kind: Interface, Name: "Foo", Identifier: "MD_Foo", Obligation: "MANDATORY", Public: true})
	m := New(Spec{Container: foo, Kind: Method, Name: "Bar(int)", Type: "string", Public: true, Deprecated: true})
	for _, e := range []*Element{p, foo, m} {
		require.NoError(t, s.Add(e))
	}

	records, err := ToRecords(s)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, -1, records[0].Parent)
	assert.Equal(t, 0, records[1].Parent)
	assert.Equal(t, 1, records[2].Parent)

	back, err := FromRecords(records)
	require.NoError(t, err)
	require.Equal(t, s.Len(), back.Len())
	for _, e := range s.Elements() {
		got, ok := back.Lookup(e)
		require.True(t, ok, e.String())
		assert.True(t, got.Equal(e), e.String())
	}
}

func TestRecords_Integrity(t *testing.T) {
	_, err := FromRecords([]Record{{Parent: 0, Kind: Class, Name: "T"}})
	assert.True(t, errors.Is(err, errors.IntegrityError))

	s := NewSet()
	orphan := New(Spec{Container: pkg("example.com/api"), Kind: Class, Name: "T"})
	require.NoError(t, s.Add(orphan))
	_, err = ToRecords(s)
	assert.True(t, errors.Is(err, errors.IntegrityError))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "CODE_LIST", CodeList.String())
	assert.Equal(t, "Methods", Method.Heading())
	assert.True(t, Field.IsMember())
	assert.False(t, Interface.IsMember())
	assert.True(t, Enum.IsType())
	assert.False(t, Package.IsType())

	k, err := ParseKind("code_list")
	require.NoError(t, err)
	assert.Equal(t, CodeList, k)
	_, err = ParseKind("struct")
	assert.Error(t, err)

	kinds := Kinds()
	for i := 1; i < len(kinds); i++ {
		assert.Less(t, int(kinds[i-1]), int(kinds[i]))
	}
}
