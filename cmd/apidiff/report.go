package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"apidiff/internal/errors"
	"apidiff/internal/release"
	"apidiff/internal/report"
)

var (
	reportFormat    string
	reportArtifacts []string
	reportNoCache   bool
	reportTitle     string
)

var reportCmd = &cobra.Command{
	Use:   "report <old-version> <new-version> <output>",
	Short: "Write the API changes between two releases",
	Long: `Compare every declared artifact at two releases and write the changes to
<output>. An existing output file is left untouched. An output of "-" prints
the report instead of writing a file.

Examples:
  apidiff report 3.0.2 3.1-M07 changes.html
  apidiff report 3.0.2 3.1 changes.json --format json
  apidiff report 3.0.2 3.1 - --format human --artifact main`,
	Args: cobra.ExactArgs(3),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Output format: html, json, yaml or human (default from config)")
	reportCmd.Flags().StringArrayVar(&reportArtifacts, "artifact", nil, "Only compare the named artifact (repeatable)")
	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "Collect both releases again instead of using cached snapshots")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "Report title (default from config)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	old, err := parseVersion(args[0])
	if err != nil {
		return err
	}
	new, err := parseVersion(args[1])
	if err != nil {
		return err
	}
	format := reportFormat
	if format == "" {
		format = current.cfg.Output.Format
	}

	decls, err := current.declarations(reportArtifacts)
	if err != nil {
		return err
	}
	gen, err := current.generator(decls, !reportNoCache, reportTitle)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if args[2] == "-" {
		renderer, err := report.NewRenderer(format)
		if err != nil {
			return err
		}
		r, err := gen.Build(cmd.Context(), old, new)
		if err != nil {
			return err
		}
		if err := renderer.Render(out, r); err != nil {
			return errors.New(errors.IOError, "cannot write report", err).WithStage(errors.StageRender)
		}
		return nil
	}

	res, err := gen.Run(cmd.Context(), report.RunOptions{
		Old:    old,
		New:    new,
		Output: args[2],
		Format: format,
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintf(out, "%s already exists, nothing written\n", res.Output)
		return nil
	}
	fmt.Fprintf(out, "Wrote %d changes to %s\n", res.Rows, res.Output)
	return nil
}

func parseVersion(s string) (release.Version, error) {
	v, err := release.Parse(s)
	if err != nil {
		return release.Version{}, errors.AtStage(err, errors.StageParse)
	}
	return v, nil
}
