package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"apidiff/internal/artifact"
	"apidiff/internal/config"
	"apidiff/internal/errors"
	"apidiff/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize apidiff configuration",
	Long: `Creates .apidiff/config.toml and ARTIFACTS.toml with default settings in the
project root. Existing files are kept unless --force is given.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	root := current.root

	configPath := paths.ConfigPath(root)
	declPath := filepath.Join(root, artifact.DeclarationFile)
	_, configErr := os.Stat(configPath)
	_, declErr := os.Stat(declPath)
	if configErr == nil && declErr == nil && !initForce {
		// Already initialized is success.
		fmt.Fprintln(out, "apidiff already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'apidiff init --force' to reinitialize.")
		return nil
	}

	if configErr != nil || initForce {
		if err := config.DefaultConfig().Save(root); err != nil {
			return errors.New(errors.IOError, "failed to write config file", err).WithInput(configPath)
		}
		current.logger.Info("Configuration written", "path", configPath)
		fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	}
	if declErr != nil || initForce {
		if err := artifact.WriteDeclarations(declPath, artifact.DefaultDeclarations()); err != nil {
			return errors.New(errors.IOError, "failed to write artifact declarations", err).WithInput(declPath)
		}
		current.logger.Info("Artifact declarations written", "path", declPath)
		fmt.Fprintf(out, "Artifact declarations written to: %s\n", declPath)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Edit %s to point at your API modules\n", artifact.DeclarationFile)
	fmt.Fprintln(out, "  2. Run 'apidiff report <old> <new> changes.html'")
	return nil
}
