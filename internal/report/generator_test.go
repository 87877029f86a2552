package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apidiff/internal/artifact"
	"apidiff/internal/backends"
	"apidiff/internal/collector"
	"apidiff/internal/element"
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
	"apidiff/internal/release"
	"apidiff/internal/storage"
)

const fooV1 = `package foo

// Foo is the sample interface.
type Foo interface {
	//uml:identifier=barCode
	Bar(int) string
}
`

const fooV2 = `package foo

// Foo is the sample interface.
type Foo interface {
	// Deprecated: use Baz.
	//uml:identifier=barCode
	Bar(int) int
}
`

func writeRelease(t *testing.T, root, version, source string) {
	t.Helper()
	dir := filepath.Join(root, "releases", version)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "foo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/foo\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo", "foo.go"), []byte(source), 0644))
}

type fixture struct {
	root      string
	db        *storage.DB
	snapshots *storage.SnapshotStore
	history   *storage.History
	gen       *Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	writeRelease(t, root, "1.0.0", fooV1)
	writeRelease(t, root, "2.0.0", fooV2)

	db, err := storage.Open(filepath.Join(root, ".apidiff", "apidiff.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	snapshots, err := storage.NewSnapshotStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { snapshots.Close() })

	f := &fixture{root: root, db: db, snapshots: snapshots, history: storage.NewHistory(db)}
	f.gen = NewGenerator(Config{
		Locator:   artifact.NewLocator(root, nil),
		Ladder:    backends.NewLadder(backends.BackendSource, introspect.WalkOptions{}, nil),
		Collector: collector.New(collector.Options{CodeListType: "CodeList"}, nil),
		Snapshots: snapshots,
		History:   f.history,
		Artifacts: []artifact.Declaration{{
			Name:   "main",
			Title:  "Main API",
			Module: "example.com/foo",
			Source: "releases/{version}",
		}},
		Title:    "Foo changes",
		Settings: "CodeList",
	})
	f.gen.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestGeneratorBuild(t *testing.T) {
	f := newFixture(t)
	r, err := f.gen.Build(context.Background(), release.MustParse("1.0.0"), release.MustParse("2.0.0"))
	require.NoError(t, err)

	assert.Equal(t, "Foo changes", r.Title)
	assert.NotEmpty(t, r.ID)
	require.Len(t, r.Sections, 1)
	assert.Equal(t, "Main API", r.Sections[0].Title)
	require.Len(t, r.Sections[0].Rows, 1)
	assert.Equal(t, Row{
		Heading:    "Methods",
		Kind:       element.Method,
		Identifier: "barCode",
		Type:       "Foo",
		Name:       "Bar(int)",
		Status:     StatusModified,
		Notes:      []string{`Return type changed from "string" to "int"`, "Deprecated"},
	}, r.Sections[0].Rows[0])

	infos, err := f.snapshots.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "1.0.0", infos[0].Version)
	assert.Equal(t, "source", infos[0].Backend)

	// A second build is served from the cache and gives the same rows.
	again, err := f.gen.Build(context.Background(), release.MustParse("1.0.0"), release.MustParse("2.0.0"))
	require.NoError(t, err)
	assert.Equal(t, r.Sections, again.Sections)
}

func TestGeneratorCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.gen.cfg.Artifacts[0]

	set, err := f.gen.Collect(ctx, d, release.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())

	writeRelease(t, f.root, "1.0.0", fooV1+"\nfunc Parse(s string) error { return nil }\n")
	set, err = f.gen.Collect(ctx, d, release.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len(), "changed sources are collected again")
}

func TestGeneratorRun(t *testing.T) {
	f := newFixture(t)
	output := filepath.Join(f.root, "changes.html")

	res, err := f.gen.Run(context.Background(), RunOptions{
		Old:    release.MustParse("1.0.0"),
		New:    release.MustParse("2.0.0"),
		Output: output,
		Format: "html",
	})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Rows)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Return type changed from &#34;string&#34; to &#34;int&#34;, Deprecated")

	runs, err := f.history.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.ID, runs[0].ID)
	assert.Equal(t, "1.0.0", runs[0].OldVersion)
	assert.Equal(t, "2.0.0", runs[0].NewVersion)
	assert.Equal(t, 1, runs[0].Rows)

	entries, err := os.ReadDir(f.root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temporary file left behind: %s", e.Name())
	}
}

func TestGeneratorRunExistingOutput(t *testing.T) {
	f := newFixture(t)
	output := filepath.Join(f.root, "changes.html")
	require.NoError(t, os.WriteFile(output, []byte("keep"), 0644))

	res, err := f.gen.Run(context.Background(), RunOptions{
		Old:    release.MustParse("1.0.0"),
		New:    release.MustParse("2.0.0"),
		Output: output,
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	runs, err := f.history.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestWriteAtomicKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "changes.html")
	require.NoError(t, os.WriteFile(output, []byte("keep"), 0644))

	err := writeAtomic(output, []byte("report"))
	require.Error(t, err)
	assert.True(t, os.IsExist(err))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	fresh := filepath.Join(dir, "fresh.html")
	require.NoError(t, writeAtomic(fresh, []byte("report")))
	data, err = os.ReadFile(fresh)
	require.NoError(t, err)
	assert.Equal(t, "report", string(data))
}

func TestGeneratorRunMissingVersion(t *testing.T) {
	f := newFixture(t)
	output := filepath.Join(f.root, "changes.html")

	_, err := f.gen.Run(context.Background(), RunOptions{
		Old:    release.MustParse("1.0.0"),
		New:    release.MustParse("3.0.0"),
		Output: output,
	})
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.IOError, e.Code)
	assert.Equal(t, errors.StageCollect, e.Stage)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "a failed run leaves no output")
}

func TestGeneratorRunUnknownFormat(t *testing.T) {
	f := newFixture(t)
	output := filepath.Join(f.root, "changes.pdf")

	_, err := f.gen.Run(context.Background(), RunOptions{
		Old:    release.MustParse("1.0.0"),
		New:    release.MustParse("2.0.0"),
		Output: output,
		Format: "pdf",
	})
	assert.True(t, errors.Is(err, errors.ConfigInvalid))
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGeneratorRunUnwritableOutput(t *testing.T) {
	f := newFixture(t)
	output := filepath.Join(f.root, "missing-dir", "changes.html")

	_, err := f.gen.Run(context.Background(), RunOptions{
		Old:    release.MustParse("1.0.0"),
		New:    release.MustParse("2.0.0"),
		Output: output,
	})
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.IOError, e.Code)
	assert.Equal(t, errors.StageRender, e.Stage)
}

func TestGeneratorCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.gen.Build(ctx, release.MustParse("1.0.0"), release.MustParse("2.0.0"))
	assert.ErrorIs(t, err, context.Canceled)
}
