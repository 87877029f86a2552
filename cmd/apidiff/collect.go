package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"apidiff/internal/element"
	"apidiff/internal/errors"
)

var (
	collectFormat    string
	collectArtifacts []string
	collectNoCache   bool
)

var collectCmd = &cobra.Command{
	Use:   "collect <version>",
	Short: "Print the API elements of one release",
	Long: `Collect the annotated API elements of every declared artifact at one release
and print them. Collected sets are stored in the snapshot cache.

Examples:
  apidiff collect 3.1
  apidiff collect 3.1 --artifact main --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&collectFormat, "format", "human", "Output format: human, json or yaml")
	collectCmd.Flags().StringArrayVar(&collectArtifacts, "artifact", nil, "Only collect the named artifact (repeatable)")
	collectCmd.Flags().BoolVar(&collectNoCache, "no-cache", false, "Ignore cached snapshots")
	rootCmd.AddCommand(collectCmd)
}

// collectedArtifact is the dump of one artifact.
type collectedArtifact struct {
	Artifact string           `json:"artifact" yaml:"artifact"`
	Title    string           `json:"title" yaml:"title"`
	Version  string           `json:"version" yaml:"version"`
	Elements []element.Record `json:"elements" yaml:"elements"`

	set *element.Set
}

func runCollect(cmd *cobra.Command, args []string) error {
	v, err := parseVersion(args[0])
	if err != nil {
		return err
	}
	switch collectFormat {
	case "human", "json", "yaml":
	default:
		return errors.Newf(errors.ConfigInvalid, "unknown format %q", collectFormat).
			WithStage(errors.StageParse).
			WithInput(collectFormat)
	}

	decls, err := current.declarations(collectArtifacts)
	if err != nil {
		return err
	}
	gen, err := current.generator(decls, !collectNoCache, "")
	if err != nil {
		return err
	}

	var dumps []collectedArtifact
	for _, d := range decls {
		set, err := gen.Collect(cmd.Context(), d, v)
		if err != nil {
			return errors.AtStage(err, errors.StageCollect)
		}
		records, err := element.ToRecords(set)
		if err != nil {
			return errors.AtStage(err, errors.StageCollect)
		}
		dumps = append(dumps, collectedArtifact{
			Artifact: d.Name,
			Title:    d.Heading(),
			Version:  v.String(),
			Elements: records,
			set:      set,
		})
	}

	out := cmd.OutOrStdout()
	switch collectFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(dumps)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err = enc.Encode(dumps); err == nil {
			err = enc.Close()
		}
	default:
		err = printElements(out, dumps)
	}
	if err != nil {
		return errors.New(errors.IOError, "cannot write elements", err).WithStage(errors.StageRender)
	}
	return nil
}

func printElements(w io.Writer, dumps []collectedArtifact) error {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	for i, d := range dumps {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if _, err := bold.Fprintf(w, "%s %s (%d elements)\n", d.Title, d.Version, d.set.Len()); err != nil {
			return err
		}
		for _, e := range d.set.Elements() {
			line := "  " + e.String()
			if id := e.Identifier(); id != "" {
				line += " [" + id + "]"
			}
			if e.IsDeprecated() {
				if _, err := faint.Fprintln(w, line+" (deprecated)"); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
