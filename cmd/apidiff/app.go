package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"apidiff/internal/artifact"
	"apidiff/internal/backends"
	"apidiff/internal/collector"
	"apidiff/internal/config"
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
	"apidiff/internal/paths"
	"apidiff/internal/report"
	"apidiff/internal/slogutil"
	"apidiff/internal/storage"
)

// skipConfig marks commands that run on the default configuration.
const skipConfig = "apidiff/skip-config"

// app is the state shared by the commands of one invocation.
type app struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer

	lock      *storage.Lock
	db        *storage.DB
	snapshots *storage.SnapshotStore
}

var current *app

func setupApp(cmd *cobra.Command, args []string) error {
	root := dirFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.New(errors.IOError, "cannot determine working directory", err).WithStage(errors.StageParse)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return errors.New(errors.IOError, "invalid project root", err).WithStage(errors.StageParse).WithInput(dirFlag)
	}

	cfg := config.DefaultConfig()
	if cmd.Annotations[skipConfig] == "" {
		cfg, err = config.LoadConfig(root, configFlag)
		if err != nil {
			return errors.New(errors.ConfigInvalid, "cannot load configuration", err).
				WithStage(errors.StageParse).
				WithInput(configFlag)
		}
		if err := cfg.Validate(); err != nil {
			return errors.New(errors.ConfigInvalid, "invalid configuration", err).WithStage(errors.StageParse)
		}
	}

	level, err := resolveLogLevel(cfg)
	if err != nil {
		return err
	}
	opts := slogutil.Options{
		Level:      level,
		Format:     slogutil.Format(cfg.Logging.Format),
		FileLevel:  slogutil.LevelFromString(cfg.Logging.FileLevel),
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	if cfg.Logging.File != "" {
		opts.File = resolvePath(root, cfg.Logging.File)
	}
	logger, closer, err := slogutil.Setup(cmd.ErrOrStderr(), opts)
	if err != nil {
		return errors.New(errors.IOError, "cannot open log file", err).WithStage(errors.StageParse).WithInput(opts.File)
	}

	current = &app{root: root, cfg: cfg, logger: logger, closer: closer}
	logger.Debug("Configuration loaded", "root", root, "backend", cfg.Backend, "cache", cfg.Cache.Enabled)
	return nil
}

func (a *app) close() {
	if a.snapshots != nil {
		_ = a.snapshots.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.lock.Release()
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// declarations returns the declared artifacts named in names, all when
// names is empty.
func (a *app) declarations(names []string) ([]artifact.Declaration, error) {
	decls, err := artifact.LoadDeclarations(a.root, a.cfg.ArtifactsFile)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageParse)
	}
	selected, err := artifact.Select(decls, names)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageParse)
	}
	return selected, nil
}

func (a *app) dependencyTable() (*artifact.DependencyTable, error) {
	table, err := artifact.LoadDependencyTable(resolvePath(a.root, a.cfg.DependenciesFile))
	if err != nil {
		return nil, errors.AtStage(err, errors.StageParse)
	}
	return table, nil
}

// open locks the state directory and opens the cache database, once per
// invocation.
func (a *app) open() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.lock == nil {
		lock, err := storage.AcquireLock(paths.StateDirPath(a.root))
		if err != nil {
			return nil, err
		}
		a.lock = lock
	}
	db, err := storage.Open(a.cfg.DatabasePath(a.root), a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) snapshotStore() (*storage.SnapshotStore, error) {
	if a.snapshots != nil {
		return a.snapshots, nil
	}
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	s, err := storage.NewSnapshotStore(db)
	if err != nil {
		return nil, err
	}
	a.snapshots = s
	return s, nil
}

// settings is folded into snapshot fingerprints.
func (a *app) settings() string {
	b := a.cfg.Build
	return strings.Join([]string{
		a.cfg.CodeListType,
		strings.Join(a.cfg.Exclude, ","),
		b.GOOS,
		b.GOARCH,
		strings.Join(b.Tags, ","),
	}, ";")
}

// generator wires a report generator for decls. The snapshot cache is used
// when enabled in the configuration and useCache is set. A database that
// cannot be opened only costs the cache and the history.
func (a *app) generator(decls []artifact.Declaration, useCache bool, title string) (*report.Generator, error) {
	table, err := a.dependencyTable()
	if err != nil {
		return nil, err
	}
	preferred, err := backends.ParseID(a.cfg.Backend)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageParse)
	}
	walk := introspect.WalkOptions{
		Exclude: a.cfg.Exclude,
		Build: introspect.BuildOptions{
			GOOS:   a.cfg.Build.GOOS,
			GOARCH: a.cfg.Build.GOARCH,
			Tags:   a.cfg.Build.Tags,
		},
		Logger: a.logger,
	}
	if title == "" {
		title = a.cfg.Output.Title
	}

	cfg := report.Config{
		Locator:   artifact.NewLocator(a.root, table),
		Ladder:    backends.NewLadder(preferred, walk, a.logger),
		Collector: collector.New(collector.Options{CodeListType: a.cfg.CodeListType}, a.logger),
		Artifacts: decls,
		Title:     title,
		Settings:  a.settings(),
		Logger:    a.logger,
	}

	if db, err := a.open(); err != nil {
		a.logger.Warn("Cache database unavailable, continuing without cache and history", "error", err.Error())
	} else {
		cfg.History = storage.NewHistory(db)
		if useCache && a.cfg.Cache.Enabled {
			s, err := a.snapshotStore()
			if err != nil {
				a.logger.Warn("Snapshot cache unavailable", "error", err.Error())
			} else {
				cfg.Snapshots = s
			}
		}
	}
	return report.NewGenerator(cfg), nil
}
