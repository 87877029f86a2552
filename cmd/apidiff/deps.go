package main

import (
	"fmt"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"apidiff/internal/artifact"
	"apidiff/internal/errors"
)

var depsFormat string

var depsCmd = &cobra.Command{
	Use:   "deps <version>",
	Short: "List the dependency modules of an API release",
	Long: `Print the modules the given API release builds against, as resolved from
the built-in dependency table and the configured dependenciesFile.

Examples:
  apidiff deps 3.1
  apidiff deps 3.0.2 --format toml`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsFormat, "format", "human", "Output format: human, toml or json")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	v, err := parseVersion(args[0])
	if err != nil {
		return err
	}
	table, err := current.dependencyTable()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch depsFormat {
	case "toml":
		err = artifact.WriteDependencyTable(out, table, v)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(struct {
			API          string                        `json:"api"`
			Dependencies []artifact.ResolvedDependency `json:"dependencies"`
		}{v.String(), table.Listing(v)})
	case "human":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODULE\tVERSION")
		for _, d := range table.Listing(v) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Module, d.Version)
		}
		err = w.Flush()
	default:
		return errors.Newf(errors.ConfigInvalid, "unknown format %q", depsFormat).
			WithStage(errors.StageParse).
			WithInput(depsFormat)
	}
	if err != nil {
		return errors.New(errors.IOError, "cannot write dependency table", err).WithStage(errors.StageRender)
	}
	return nil
}
