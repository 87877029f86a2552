package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"apidiff/internal/config"
	"apidiff/internal/errors"
	"apidiff/internal/slogutil"
	"apidiff/internal/version"
)

var (
	configFlag   string
	dirFlag      string
	logLevelFlag string
	verboseFlag  int
	quietFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "apidiff",
	Short: "apidiff - API change reports for annotated Go libraries",
	Long: `apidiff compares two releases of a Go API library whose declarations carry
//uml: annotations and lists what was added, removed or modified, keyed by the
UML identifiers of the abstract model the library implements.

Releases and their artifacts are described in ARTIFACTS.toml; settings live in
.apidiff/config.toml.`,
	Version:           version.Resolved(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
}

func init() {
	rootCmd.SetVersionTemplate("apidiff version {{.Version}}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Configuration file (default: .apidiff/config.toml)")
	pf.StringVarP(&dirFlag, "dir", "C", "", "Project root (default: current directory)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error or silent")
	pf.CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Silence all logging")
}

// resolveLogLevel determines the console log level.
// Precedence: --log-level > -v/--quiet > APIDIFF_LOG_LEVEL > config logging.level
func resolveLogLevel(cfg *config.Config) (slog.Level, error) {
	if logLevelFlag != "" {
		level, ok := slogutil.ParseLevel(logLevelFlag)
		if !ok {
			return 0, errors.Newf(errors.ConfigInvalid, "unknown log level %q", logLevelFlag).
				WithStage(errors.StageParse).
				WithInput(logLevelFlag)
		}
		return level, nil
	}
	if verboseFlag > 0 || quietFlag {
		return slogutil.LevelFromVerbosity(verboseFlag, quietFlag), nil
	}
	// The environment variable is folded into cfg by the loader.
	return slogutil.LevelFromString(cfg.Logging.Level), nil
}
