package scip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		pkg     string
		members []Descriptor
	}{
		{
			name:    "type",
			id:      "scip-go gomod example.com/geoapi v3.1.0 `example.com/geoapi/metadata`/Citation#",
			pkg:     "example.com/geoapi/metadata",
			members: []Descriptor{{Name: "Citation", Suffix: SuffixType}},
		},
		{
			name: "method",
			id:   "scip-go gomod example.com/geoapi v3.1.0 `example.com/geoapi/metadata`/Citation#Title().",
			pkg:  "example.com/geoapi/metadata",
			members: []Descriptor{
				{Name: "Citation", Suffix: SuffixType},
				{Name: "Title", Suffix: SuffixMethod},
			},
		},
		{
			name: "field",
			id:   "scip-go gomod example.com/geoapi v3.1.0 `example.com/geoapi/geometry`/Point#X.",
			pkg:  "example.com/geoapi/geometry",
			members: []Descriptor{
				{Name: "Point", Suffix: SuffixType},
				{Name: "X", Suffix: SuffixTerm},
			},
		},
		{
			name:    "function with disambiguator",
			id:      "scip-go gomod example.com/geoapi v3.1.0 `example.com/geoapi/geometry`/NewPoint(+1).",
			pkg:     "example.com/geoapi/geometry",
			members: []Descriptor{{Name: "NewPoint", Disambiguator: "+1", Suffix: SuffixMethod}},
		},
		{
			name:    "unquoted namespaces",
			id:      "scip-go gomod geoapi v1 geoapi/util/Owner.",
			pkg:     "geoapi/util",
			members: []Descriptor{{Name: "Owner", Suffix: SuffixTerm}},
		},
		{
			name: "escaped backtick",
			id:   "scip-go gomod m v1 `a``b`/T#[K]",
			pkg:  "a`b",
			members: []Descriptor{
				{Name: "T", Suffix: SuffixType},
				{Name: "K", Suffix: SuffixTypeParameter},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := ParseSymbol(tt.id)
			require.NoError(t, err)
			assert.Equal(t, "scip-go", sym.Scheme)
			assert.Equal(t, tt.pkg, sym.PackagePath())
			assert.Equal(t, tt.members, sym.Members())
		})
	}
}

func TestParseSymbolErrors(t *testing.T) {
	for _, id := range []string{
		"",
		"local 12",
		"scip-go gomod m",
		"scip-go gomod m v1 `unterminated/T#",
		"scip-go gomod m v1 pkg/Name",
		"scip-go gomod m v1 pkg/Name(.",
		"scip-go gomod m v1 pkg/Name?",
	} {
		_, err := ParseSymbol(id)
		assert.Error(t, err, id)
	}
}
