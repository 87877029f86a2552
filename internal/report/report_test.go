package report

import (
	"bytes"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"apidiff/internal/artifact"
	"apidiff/internal/element"
	"apidiff/internal/errors"
	"apidiff/internal/release"
	"apidiff/internal/testutil"
)

func declaration() artifact.Declaration {
	return artifact.Declaration{Name: "main", Title: "Main API", Module: "example.com/geoapi"}
}

func sampleReport() *Report {
	return &Report{
		ID:          "0b6f5c3e-2f4a-4d7e-9d61-1f0c2b9e8a11",
		Title:       "GeoAPI changes",
		Old:         release.MustParse("3.0.2"),
		New:         release.MustParse("3.1-M07"),
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Sections: []Section{
			{
				Artifact: "main",
				Title:    "Main API",
				Rows: []Row{
					{Heading: "Interfaces", Kind: element.Interface, Identifier: "CI_Citation", Name: "Citation", Status: StatusAdded},
					{Heading: "Methods", Kind: element.Method, Identifier: "barCode", Type: "Foo", Name: "Bar(int)", Status: StatusModified,
						Notes: []string{`Return type changed from "string" to "int"`, "Deprecated"}},
					{Kind: element.Method, Type: "Foo", Name: "Baz()", Status: StatusRemoved, Deprecated: true},
				},
			},
			{Artifact: "conformance", Title: "Conformance API"},
		},
	}
}

func TestSectionCounts(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, Counts{Added: 1, Removed: 1, Modified: 1}, r.Sections[0].Counts())
	assert.Equal(t, Counts{}, r.Sections[1].Counts())
	assert.Equal(t, 3, r.Rows())
}

func TestRenderHTML(t *testing.T) {
	renderer, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "<title>GeoAPI changes</title>")
	assert.Contains(t, out, "Changes from version 3.0.2 to version 3.1-M07.")
	assert.Contains(t, out, "<h2>Legend</h2>")
	assert.Contains(t, out, "<h2>Main API</h2>")
	assert.Contains(t, out, `<tr class="heading"><th colspan="4">Interfaces</th></tr>`)
	assert.Contains(t, out, `<tr class="heading"><th colspan="4">Methods</th></tr>`)
	assert.Contains(t, out, "<td>CI_Citation</td><td></td><td><i>Citation</i></td>")
	assert.Contains(t, out, "<td>barCode</td><td>Foo</td><td>Bar(int)</td>")
	assert.Contains(t, out, "Return type changed from &#34;string&#34; to &#34;int&#34;, Deprecated")
	assert.Contains(t, out, "<del>Baz()</del> (was deprecated)")
	assert.NotContains(t, out, "<del>Bar(int)</del>")
	assert.Contains(t, out, "<h2>Conformance API</h2>\n<p>No changes.</p>")
}

func TestRenderHTMLEscapes(t *testing.T) {
	r := sampleReport()
	r.Sections[0].Rows[0].Name = "Map[K <script>]"

	var buf bytes.Buffer
	require.NoError(t, htmlRenderer{}.Render(&buf, r))
	assert.NotContains(t, buf.String(), "<script>")
}

func TestRenderJSON(t *testing.T) {
	renderer, err := NewRenderer("json")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, sampleReport()))

	var decoded struct {
		Old      string `json:"old"`
		New      string `json:"new"`
		Sections []struct {
			Artifact string `json:"artifact"`
			Rows     []struct {
				Kind   string   `json:"kind"`
				Status string   `json:"status"`
				Notes  []string `json:"notes"`
			} `json:"rows"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3.0.2", decoded.Old)
	assert.Equal(t, "3.1-M07", decoded.New)
	require.Len(t, decoded.Sections, 2)
	require.Len(t, decoded.Sections[0].Rows, 3)
	assert.Equal(t, "METHOD", decoded.Sections[0].Rows[1].Kind)
	assert.Equal(t, "modified", decoded.Sections[0].Rows[1].Status)
	assert.Len(t, decoded.Sections[0].Rows[1].Notes, 2)
}

func TestRenderYAML(t *testing.T) {
	renderer, err := NewRenderer("yaml")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, sampleReport()))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, release.MustParse("3.1-M07"), decoded.New)
	require.Len(t, decoded.Sections, 2)
	assert.Equal(t, sampleReport().Sections[0].Rows, decoded.Sections[0].Rows)
}

func TestRenderHuman(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHumanRenderer(false).Render(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "GeoAPI changes: 3.0.2 -> 3.1-M07\n")
	assert.Contains(t, out, "Main API (1 added, 1 removed, 1 modified)\n")
	assert.Contains(t, out, "    + Citation [CI_Citation]\n")
	assert.Contains(t, out, `    ~ Foo.Bar(int) [barCode]: Return type changed from "string" to "int", Deprecated`+"\n")
	assert.Contains(t, out, "    - Foo.Baz() (was deprecated)\n")
	assert.Contains(t, out, "Conformance API (0 added, 0 removed, 0 modified)\n  No changes.\n")
}

func TestGoldenHuman(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHumanRenderer(false).Render(&buf, sampleReport()))
	testutil.CompareGolden(t, "human", buf.Bytes())
}

func TestNewRendererUnknown(t *testing.T) {
	_, err := NewRenderer("pdf")
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ConfigInvalid, e.Code)
	assert.Equal(t, errors.StageRender, e.Stage)
}
