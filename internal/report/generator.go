package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"apidiff/internal/artifact"
	"apidiff/internal/backends"
	"apidiff/internal/collector"
	"apidiff/internal/element"
	"apidiff/internal/errors"
	"apidiff/internal/release"
	"apidiff/internal/storage"
)

// Config wires a Generator. Snapshots and History are optional.
type Config struct {
	Locator   *artifact.Locator
	Ladder    *backends.Ladder
	Collector *collector.Collector
	Snapshots *storage.SnapshotStore
	History   *storage.History
	Artifacts []artifact.Declaration
	Title     string
	// Settings is folded into snapshot fingerprints so that a change of
	// collection settings invalidates cached sets.
	Settings string
	Logger   *slog.Logger
}

// Generator builds and writes change reports.
type Generator struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a generator.
func NewGenerator(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(cfg.Artifacts) == 0 {
		cfg.Artifacts = artifact.DefaultDeclarations()
	}
	if cfg.Title == "" {
		cfg.Title = "API changes"
	}
	return &Generator{cfg: cfg, logger: logger, now: time.Now}
}

// RunOptions are the arguments of one report run.
type RunOptions struct {
	Old    release.Version
	New    release.Version
	Output string
	Format string
}

// Result describes a finished run.
type Result struct {
	ID     string
	Output string
	Rows   int
	// Skipped is set when the output already existed and nothing was done.
	Skipped bool
	Report  *Report
}

// Run builds the report of opts and writes it to opts.Output. An existing
// output file is never overwritten: the run is skipped with a warning and no
// error. The file only appears once the whole report has been rendered.
func (g *Generator) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if _, err := os.Stat(opts.Output); err == nil {
		g.logger.Warn("Output file already exists, not overwriting", "output", opts.Output)
		return &Result{Output: opts.Output, Skipped: true}, nil
	}

	renderer, err := NewRenderer(opts.Format)
	if err != nil {
		return nil, err
	}

	r, err := g.Build(ctx, opts.Old, opts.New)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, r); err != nil {
		return nil, errors.New(errors.InternalError, "cannot render report", err).
			WithStage(errors.StageRender).
			WithInput(opts.Format)
	}
	if err := writeAtomic(opts.Output, buf.Bytes()); err != nil {
		if os.IsExist(err) {
			g.logger.Warn("Output file already exists, not overwriting", "output", opts.Output)
			return &Result{Output: opts.Output, Skipped: true}, nil
		}
		return nil, errors.New(errors.IOError, "cannot write report", err).
			WithStage(errors.StageRender).
			WithInput(opts.Output)
	}

	res := &Result{ID: r.ID, Output: opts.Output, Rows: r.Rows(), Report: r}
	g.logger.Info("Report written",
		"output", opts.Output,
		"format", opts.Format,
		"rows", res.Rows,
	)

	if g.cfg.History != nil {
		_, err := g.cfg.History.Record(ctx, storage.Run{
			ID:         r.ID,
			OldVersion: opts.Old.String(),
			NewVersion: opts.New.String(),
			Output:     opts.Output,
			Format:     opts.Format,
			Rows:       res.Rows,
			CreatedAt:  r.GeneratedAt,
		})
		if err != nil {
			g.logger.Warn("Failed to record report history", "error", err.Error())
		}
	}
	return res, nil
}

// Build compares old and new for every declared artifact. Artifacts are
// processed in declaration order and the two releases of one artifact are
// collected one after the other.
func (g *Generator) Build(ctx context.Context, old, new release.Version) (*Report, error) {
	r := &Report{
		ID:          uuid.New().String(),
		Title:       g.cfg.Title,
		Old:         old,
		New:         new,
		GeneratedAt: g.now().UTC(),
	}
	for _, d := range g.cfg.Artifacts {
		oldSet, err := g.Collect(ctx, d, old)
		if err != nil {
			return nil, err
		}
		newSet, err := g.Collect(ctx, d, new)
		if err != nil {
			return nil, err
		}
		elems, err := compare(oldSet, newSet)
		if err != nil {
			return nil, errors.AtStage(err, errors.StageMatch)
		}
		section := NewSection(d, elems)
		c := section.Counts()
		g.logger.Info("Compared artifact",
			"artifact", d.Name,
			"added", c.Added,
			"removed", c.Removed,
			"modified", c.Modified,
		)
		r.Sections = append(r.Sections, section)
	}
	return r, nil
}

// compare runs Compare, turning a panic into an internal error.
func compare(old, new *element.Set) (elems []*element.Element, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.InternalError, fmt.Sprint(p), nil)
		}
	}()
	return Compare(old, new), nil
}

// Collect returns the element set of d at version v, from the snapshot cache
// when a snapshot with the current fingerprint exists.
func (g *Generator) Collect(ctx context.Context, d artifact.Declaration, v release.Version) (*element.Set, error) {
	a, err := g.cfg.Locator.Locate(ctx, d, v)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageCollect)
	}
	backend, err := g.cfg.Ladder.Select(a)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageCollect)
	}

	var key storage.SnapshotKey
	var fingerprint string
	if g.cfg.Snapshots != nil {
		fingerprint, err = artifact.Fingerprint(a)
		if err != nil {
			return nil, errors.AtStage(err, errors.StageCollect)
		}
		fingerprint += "+" + g.cfg.Settings
		key = storage.SnapshotKey{Artifact: d.Name, Version: v.String(), Backend: backend.Name()}
		set, ok, err := g.cfg.Snapshots.Get(ctx, key, fingerprint)
		switch {
		case err != nil:
			g.logger.Warn("Snapshot cache lookup failed", "snapshot", key.String(), "error", err.Error())
		case ok:
			g.logger.Debug("Using cached snapshot", "snapshot", key.String(), "elements", set.Len())
			return set, nil
		}
	}

	set, err := g.cfg.Collector.CollectArtifact(ctx, backend, a)
	if err != nil {
		return nil, err
	}
	if g.cfg.Snapshots != nil {
		if err := g.cfg.Snapshots.Put(ctx, key, fingerprint, set); err != nil {
			g.logger.Warn("Failed to cache snapshot", "snapshot", key.String(), "error", err.Error())
		}
	}
	return set, nil
}

// writeAtomic writes data to a temporary file next to path and links it
// into place. It fails with an os.IsExist error if path already exists.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	// Link fails on an existing path where Rename would replace it.
	err = os.Link(name, path)
	os.Remove(name)
	return err
}
